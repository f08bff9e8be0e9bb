package signals

import (
	"fmt"
	"regexp"
	"strings"

	"moneyradar/pkg/models"
)

// RuleScorer is the deterministic pattern-based signal classifier. It is a
// pure function of its input text: same text, same result, and it never
// fails. Empty or whitespace-only input scores zero with no flags.
type RuleScorer struct {
	cfg           Config
	interrogative *regexp.Regexp
	recommend     *regexp.Regexp
	cost          *regexp.Regexp
	platform      *regexp.Regexp
}

// NewRuleScorer compiles the configured pattern sets
func NewRuleScorer(cfg Config) (*RuleScorer, error) {
	interrogative, err := regexp.Compile(`(?i)\b(` + strings.Join(cfg.Interrogatives, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile interrogative patterns: %w", err)
	}
	recommend, err := regexp.Compile(`(?i)\b(` + strings.Join(cfg.RecommendationPhrases, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile recommendation patterns: %w", err)
	}
	cost, err := regexp.Compile(`(?i)(£\s?\d+|\b\d+(?:\.\d+)?%\b|\b(?:` + strings.Join(cfg.CostTerms, "|") + `)\b)`)
	if err != nil {
		return nil, fmt.Errorf("compile cost patterns: %w", err)
	}

	// Brand names are literal phrases; spaces match with or without
	// whitespace so "Trading212" and "Trading 212" both hit.
	brands := make([]string, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		brands = append(brands, strings.ReplaceAll(regexp.QuoteMeta(p), ` `, `\s*`))
	}
	platform, err := regexp.Compile(`(?i)\b(` + strings.Join(brands, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile platform gazetteer: %w", err)
	}

	return &RuleScorer{
		cfg:           cfg,
		interrogative: interrogative,
		recommend:     recommend,
		cost:          cost,
		platform:      platform,
	}, nil
}

// MustNewRuleScorer is like NewRuleScorer but panics on an invalid config
func MustNewRuleScorer(cfg Config) *RuleScorer {
	scorer, err := NewRuleScorer(cfg)
	if err != nil {
		panic(err)
	}
	return scorer
}

// Score classifies a text blob for pain-point signals
func (s *RuleScorer) Score(text string) models.SignalResult {
	norm := strings.TrimSpace(text)
	if norm == "" {
		return models.SignalResult{SignalScore: 0.0, DetectedKeywords: []string{}}
	}

	isQuestion := strings.Contains(norm, "?") || s.interrogative.MatchString(norm)
	asksRecommendation := s.recommend.MatchString(norm)
	mentionsCost := s.cost.MatchString(norm)
	mentionsPlatform := s.platform.MatchString(norm)

	return models.SignalResult{
		IsQuestion:         isQuestion,
		AsksRecommendation: asksRecommendation,
		MentionsCost:       mentionsCost,
		MentionsPlatform:   mentionsPlatform,
		SignalScore:        s.cfg.ScoreFromFlags(isQuestion, asksRecommendation, mentionsCost, mentionsPlatform),
		DetectedKeywords:   KeywordsFromFlags(isQuestion, asksRecommendation, mentionsCost, mentionsPlatform),
	}
}
