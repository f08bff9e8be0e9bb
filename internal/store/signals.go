package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"moneyradar/pkg/models"
)

// SignalStore owns the signals table: idempotent upserts keyed by
// (content_type, content_id), candidate selection for scoring runs, and
// the top-signal listing. Storage errors always propagate to the caller.
type SignalStore struct {
	db *sql.DB
}

// NewSignalStore creates a signal store
func NewSignalStore(db *sql.DB) *SignalStore {
	return &SignalStore{db: db}
}

// Upsert writes a signal record. A conflicting (content_type, content_id)
// row is fully overwritten and its collected_at timestamp refreshed.
func (s *SignalStore) Upsert(ctx context.Context, contentType models.ContentType, contentID, postID string, result models.SignalResult) error {
	keywords, err := json.Marshal(result.DetectedKeywords)
	if err != nil {
		return fmt.Errorf("marshal detected keywords: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signals (
		  content_type, content_id, post_id,
		  is_question, asks_recommendation, mentions_cost, mentions_platform,
		  signal_score, detected_keywords
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (content_type, content_id) DO UPDATE SET
		  is_question=EXCLUDED.is_question,
		  asks_recommendation=EXCLUDED.asks_recommendation,
		  mentions_cost=EXCLUDED.mentions_cost,
		  mentions_platform=EXCLUDED.mentions_platform,
		  signal_score=EXCLUDED.signal_score,
		  detected_keywords=EXCLUDED.detected_keywords,
		  collected_at=now()`,
		contentType, contentID, postID,
		result.IsQuestion, result.AsksRecommendation, result.MentionsCost, result.MentionsPlatform,
		result.SignalScore, keywords,
	)
	if err != nil {
		return fmt.Errorf("upsert signal %s/%s: %w", contentType, contentID, err)
	}
	return nil
}

// PostCandidates returns posts to score, newest first. Unless force is
// set, posts that already have a signal row are excluded.
func (s *SignalStore) PostCandidates(ctx context.Context, subreddit string, force bool, limit int) ([]models.ScoreCandidate, error) {
	query := `
		SELECT p.post_id, COALESCE(p.title,'') || E'\n\n' || COALESCE(p.body,'') AS text
		FROM posts p
		WHERE p.subreddit = $1`
	if !force {
		query += `
		AND NOT EXISTS (SELECT 1 FROM signals s WHERE s.content_type='post' AND s.content_id=p.post_id)`
	}
	query += `
		ORDER BY p.created_utc DESC NULLS LAST
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, subreddit, limit)
	if err != nil {
		return nil, fmt.Errorf("select post candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.ScoreCandidate
	for rows.Next() {
		var c models.ScoreCandidate
		if err := rows.Scan(&c.ContentID, &c.Text); err != nil {
			return nil, fmt.Errorf("scan post candidate: %w", err)
		}
		c.PostID = c.ContentID
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// CommentCandidates returns comments to score, newest first, restricted to
// comments whose parent post belongs to the subreddit.
func (s *SignalStore) CommentCandidates(ctx context.Context, subreddit string, force bool, limit int) ([]models.ScoreCandidate, error) {
	query := `
		SELECT c.comment_id, c.post_id, COALESCE(c.body,'') AS text
		FROM comments c
		JOIN posts p ON p.post_id = c.post_id
		WHERE p.subreddit = $1`
	if !force {
		query += `
		AND NOT EXISTS (SELECT 1 FROM signals s WHERE s.content_type='comment' AND s.content_id=c.comment_id)`
	}
	query += `
		ORDER BY c.created_utc DESC NULLS LAST
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, subreddit, limit)
	if err != nil {
		return nil, fmt.Errorf("select comment candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.ScoreCandidate
	for rows.Next() {
		var c models.ScoreCandidate
		if err := rows.Scan(&c.ContentID, &c.PostID, &c.Text); err != nil {
			return nil, fmt.Errorf("scan comment candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// TopSignalsFilter narrows the top-signal listing. ContentType empty means
// both posts and comments; MinScore 0 means no floor.
type TopSignalsFilter struct {
	ContentType models.ContentType
	MinScore    float64
}

// TopSignals lists the strongest signals for a subreddit, highest score
// first with the most recently collected winning ties.
func (s *SignalStore) TopSignals(ctx context.Context, subreddit string, filter TopSignalsFilter, limit int) ([]models.TopSignal, error) {
	query := `
		SELECT s.signal_score, s.content_type, s.content_id, s.post_id,
		       COALESCE(p.permalink,''), COALESCE(p.title,'')
		FROM signals s
		JOIN posts p ON p.post_id = s.post_id
		WHERE p.subreddit = $1 AND s.signal_score >= $2`
	args := []interface{}{subreddit, filter.MinScore}
	if filter.ContentType != "" {
		query += ` AND s.content_type = $3`
		args = append(args, filter.ContentType)
	}
	query += fmt.Sprintf(`
		ORDER BY s.signal_score DESC, s.collected_at DESC
		LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select top signals: %w", err)
	}
	defer rows.Close()

	var signals []models.TopSignal
	for rows.Next() {
		var ts models.TopSignal
		if err := rows.Scan(&ts.SignalScore, &ts.ContentType, &ts.ContentID, &ts.PostID, &ts.Permalink, &ts.PostTitle); err != nil {
			return nil, fmt.Errorf("scan top signal: %w", err)
		}
		signals = append(signals, ts)
	}
	return signals, rows.Err()
}
