package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"moneyradar/pkg/llm"
	"moneyradar/pkg/logging"
	"moneyradar/pkg/models"
)

// ScoredResult tags a SignalResult with the tier that produced it, so
// callers can tell a rule fallback apart from a genuine LLM classification.
type ScoredResult struct {
	models.SignalResult
	Method models.ScoreMethod
}

// Classifier scores one text blob
type Classifier interface {
	Classify(ctx context.Context, text string) ScoredResult
}

const signalPrompt = `You are classifying a UK personal finance Reddit post/comment for pain-point signals.

TEXT:
%s

Respond with ONLY valid JSON in this exact format:
{
  "is_question": true/false,
  "asks_recommendation": true/false,
  "mentions_cost": true/false,
  "mentions_platform": true/false,
  "signal_score": 0.0 to 1.0,
  "detected_keywords": ["short", "keywords"]
}

Rules:
- is_question: direct or implied question/seeking advice
- asks_recommendation: asks for product/bank/broker/app recommendation or comparison
- mentions_cost: mentions fees, interest rates, APR, prices, or costs
- mentions_platform: names a bank/platform/broker/app/product
- signal_score: higher for multiple signals (0.7+ for question+recommendation, ~0.5 for one strong signal)

JSON response:`

// LLMClassifier scores text through a completion provider, falling back to
// the rule scorer whenever the provider fails or returns an unusable
// response. Classification therefore always succeeds from the caller's
// point of view.
type LLMClassifier struct {
	provider llm.Provider
	rules    *RuleScorer
	cfg      Config
	logger   logging.Logger
}

// NewLLMClassifier creates a classifier with a mandatory rule fallback
func NewLLMClassifier(provider llm.Provider, rules *RuleScorer, cfg Config, logger logging.Logger) *LLMClassifier {
	return &LLMClassifier{provider: provider, rules: rules, cfg: cfg, logger: logger}
}

// Classify scores text via the provider, or via rules on any failure
func (c *LLMClassifier) Classify(ctx context.Context, text string) ScoredResult {
	if strings.TrimSpace(text) == "" {
		return ScoredResult{SignalResult: c.rules.Score(text), Method: models.ScoreMethodRule}
	}

	snippet := strings.TrimSpace(text)
	if runes := []rune(snippet); len(runes) > c.cfg.MaxLLMChars {
		snippet = string(runes[:c.cfg.MaxLLMChars]) + "..."
	}

	response, err := c.provider.Complete(ctx, fmt.Sprintf(signalPrompt, snippet))
	if err != nil {
		c.logger.WithError(err).Debug("LLM call failed, falling back to rule scoring")
		return ScoredResult{SignalResult: c.rules.Score(text), Method: models.ScoreMethodRule}
	}

	if parsed, ok := c.parseResponse(response); ok {
		return ScoredResult{SignalResult: parsed, Method: models.ScoreMethodLLM}
	}

	c.logger.Debug("Unparseable LLM response, falling back to rule scoring")
	return ScoredResult{SignalResult: c.rules.Score(text), Method: models.ScoreMethodRule}
}

// parseResponse leniently extracts a signal payload from raw model output
func (c *LLMClassifier) parseResponse(response string) (models.SignalResult, bool) {
	payload, ok := extractJSON(response)
	if !ok {
		return models.SignalResult{}, false
	}

	isQuestion := coerceBool(payload["is_question"])
	asksRecommendation := coerceBool(payload["asks_recommendation"])
	mentionsCost := coerceBool(payload["mentions_cost"])
	mentionsPlatform := coerceBool(payload["mentions_platform"])

	computed := c.cfg.ScoreFromFlags(isQuestion, asksRecommendation, mentionsCost, mentionsPlatform)

	// A missing, non-numeric or out-of-range score is replaced with the
	// flag-derived one, so the [0,1] invariant survives any provider.
	score, ok := coerceFloat(payload["signal_score"])
	if !ok || score < 0 || score > 1 {
		score = computed
	}

	keywords := coerceKeywords(payload["detected_keywords"])
	if len(keywords) == 0 {
		keywords = KeywordsFromFlags(isQuestion, asksRecommendation, mentionsCost, mentionsPlatform)
	}

	return models.SignalResult{
		IsQuestion:         isQuestion,
		AsksRecommendation: asksRecommendation,
		MentionsCost:       mentionsCost,
		MentionsPlatform:   mentionsPlatform,
		SignalScore:        score,
		DetectedKeywords:   keywords,
	}, true
}

var codeFencePattern = regexp.MustCompile("(?i)```(?:json)?")

// extractJSON pulls the first brace-delimited object out of model output,
// tolerating code fences and surrounding prose.
func extractJSON(response string) (map[string]interface{}, bool) {
	cleaned := codeFencePattern.ReplaceAllString(strings.TrimSpace(response), "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func coerceFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func coerceKeywords(value interface{}) []string {
	switch v := value.(type) {
	case []interface{}:
		keywords := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				keywords = append(keywords, s)
			}
		}
		return keywords
	case string:
		var keywords []string
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' }) {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
		return keywords
	}
	return nil
}
