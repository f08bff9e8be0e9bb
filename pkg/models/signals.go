package models

import "time"

// SignalResult is the outcome of scoring one piece of text for pain-point
// signals. SignalScore is always within [0, 1] regardless of how the
// result was produced.
type SignalResult struct {
	IsQuestion         bool     `json:"is_question"`
	AsksRecommendation bool     `json:"asks_recommendation"`
	MentionsCost       bool     `json:"mentions_cost"`
	MentionsPlatform   bool     `json:"mentions_platform"`
	SignalScore        float64  `json:"signal_score"`
	DetectedKeywords   []string `json:"detected_keywords"`
}

// ScoreMethod records which tier produced a SignalResult
type ScoreMethod string

const (
	ScoreMethodRule ScoreMethod = "rule"
	ScoreMethodLLM  ScoreMethod = "llm"
)

// SignalRecord is a persisted signal row keyed by (content_type, content_id)
type SignalRecord struct {
	ContentType ContentType  `json:"content_type"`
	ContentID   string       `json:"content_id"`
	PostID      string       `json:"post_id"`
	Result      SignalResult `json:"result"`
	CollectedAt time.Time    `json:"collected_at"`
}

// TopSignal is one row of the highest-signal content listing
type TopSignal struct {
	SignalScore float64     `json:"signal_score"`
	ContentType ContentType `json:"content_type"`
	ContentID   string      `json:"content_id"`
	PostID      string      `json:"post_id"`
	Permalink   string      `json:"permalink,omitempty"`
	PostTitle   string      `json:"post_title,omitempty"`
}

// ScoreCandidate is an unscored (or force-rescored) piece of content
type ScoreCandidate struct {
	ContentID string
	PostID    string
	Text      string
}
