package signals

import (
	"context"

	"moneyradar/pkg/models"
)

// HybridPolicy scores with rules first and only pays for an LLM call when
// the rule result is inconclusive: a rule score at or above the threshold,
// or either of the question/recommendation flags, is treated as confident
// enough on its own.
type HybridPolicy struct {
	rules *RuleScorer
	llm   Classifier
}

// NewHybridPolicy creates a hybrid decision policy
func NewHybridPolicy(rules *RuleScorer, llm Classifier) *HybridPolicy {
	return &HybridPolicy{rules: rules, llm: llm}
}

// Classify applies the hybrid decision rule with a caller-supplied threshold
func (p *HybridPolicy) Classify(ctx context.Context, text string, minScore float64) ScoredResult {
	rule := p.rules.Score(text)
	if rule.SignalScore >= minScore || rule.IsQuestion || rule.AsksRecommendation {
		return ScoredResult{SignalResult: rule, Method: models.ScoreMethodRule}
	}
	return p.llm.Classify(ctx, text)
}
