package signals

import "moneyradar/pkg/config"

// Weights are the additive contributions of each flag to the rule score.
// The sum of all four exceeds 1.0, so a fully-flagged text caps at 1.0.
type Weights struct {
	Question       float64
	Recommendation float64
	Cost           float64
	Platform       float64
}

// Config holds the scoring policy: pattern vocabularies, the platform
// gazetteer, weights and the hybrid threshold. Everything here is tunable
// data, not algorithm.
type Config struct {
	// Interrogative leads that mark a question even without a "?".
	Interrogatives []string
	// Phrases that ask for a product or provider recommendation.
	RecommendationPhrases []string
	// Cost vocabulary beyond the currency and percentage patterns.
	CostTerms []string
	// UK financial brands and platforms, matched on word boundaries.
	Platforms []string

	Weights Weights

	// HybridMinScore is the rule score at or above which the hybrid
	// policy skips the LLM call.
	HybridMinScore float64

	// MaxLLMChars is the character budget for text sent to the LLM.
	MaxLLMChars int
}

// DefaultConfig returns the scoring policy for UK personal finance content
func DefaultConfig() Config {
	return Config{
		Interrogatives: []string{"how", "what", "why", "which", "can i", "should i"},
		RecommendationPhrases: []string{
			`anyone recommend`,
			`recommendations?`,
			`what (?:should|shall) i (?:do|use)`,
			`best (?:platform|broker|bank|card)`,
			`which (?:bank|card|platform|broker)`,
			`worth it`,
		},
		CostTerms: []string{"apr", "interest", "fees?", "costs?"},
		Platforms: []string{
			"trading 212", "vanguard", "hl", "hargreaves", "freetrade",
			"aj bell", "ii", "interactive investor", "monzo", "starling",
			"revolut", "barclays", "lloyds", "natwest", "hsbc", "amex",
			"american express",
		},
		Weights: Weights{
			Question:       0.35,
			Recommendation: 0.35,
			Cost:           0.2,
			Platform:       0.2,
		},
		HybridMinScore: 0.2,
		MaxLLMChars:    1000,
	}
}

// LoadConfig returns the default policy with env-tunable knobs applied
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.HybridMinScore = config.GetEnvFloat("SCORE_HYBRID_MIN_SCORE", cfg.HybridMinScore)
	cfg.MaxLLMChars = config.GetEnvInt("SCORE_LLM_MAX_CHARS", cfg.MaxLLMChars)
	return cfg
}

// ScoreFromFlags recomputes the additive score from flags, capped to [0, 1].
// Used both by the rule scorer and to repair invalid LLM-supplied scores.
func (c Config) ScoreFromFlags(isQuestion, asksRecommendation, mentionsCost, mentionsPlatform bool) float64 {
	score := 0.0
	if isQuestion {
		score += c.Weights.Question
	}
	if asksRecommendation {
		score += c.Weights.Recommendation
	}
	if mentionsCost {
		score += c.Weights.Cost
	}
	if mentionsPlatform {
		score += c.Weights.Platform
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// KeywordsFromFlags builds the keyword labels in their fixed order
func KeywordsFromFlags(isQuestion, asksRecommendation, mentionsCost, mentionsPlatform bool) []string {
	keywords := []string{}
	if isQuestion {
		keywords = append(keywords, "question")
	}
	if asksRecommendation {
		keywords = append(keywords, "recommendation")
	}
	if mentionsCost {
		keywords = append(keywords, "cost")
	}
	if mentionsPlatform {
		keywords = append(keywords, "platform")
	}
	return keywords
}
