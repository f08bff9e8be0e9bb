package scoring

import (
	"context"
	"fmt"

	"moneyradar/internal/signals"
	"moneyradar/pkg/logging"
	"moneyradar/pkg/models"
)

// Method selects which scoring tier a run uses
type Method string

const (
	MethodRules  Method = "rules"
	MethodLLM    Method = "llm"
	MethodHybrid Method = "hybrid"
)

// Scope selects which content a run scores
type Scope string

const (
	ScopePosts    Scope = "posts"
	ScopeComments Scope = "comments"
	ScopeBoth     Scope = "both"
)

// SignalStorage is the slice of the signal store a scoring run needs
type SignalStorage interface {
	PostCandidates(ctx context.Context, subreddit string, force bool, limit int) ([]models.ScoreCandidate, error)
	CommentCandidates(ctx context.Context, subreddit string, force bool, limit int) ([]models.ScoreCandidate, error)
	Upsert(ctx context.Context, contentType models.ContentType, contentID, postID string, result models.SignalResult) error
}

// Options configures one scoring run
type Options struct {
	Subreddit    string
	Scope        Scope
	Method       Method
	Force        bool
	PostLimit    int
	CommentLimit int
}

// Result reports what a scoring run did
type Result struct {
	PostsScored    int `json:"posts_scored"`
	CommentsScored int `json:"comments_scored"`
	RuleScored     int `json:"rule_scored"`
	LLMScored      int `json:"llm_scored"`
}

// Runner scores unscored content in batches and persists the results.
// Classifier failures degrade to rule results inside the signals package,
// so a run only aborts when storage itself fails.
type Runner struct {
	store  SignalStorage
	rules  *signals.RuleScorer
	hybrid *signals.HybridPolicy
	llm    signals.Classifier
	cfg    signals.Config
	logger logging.Logger
}

// NewRunner creates a scoring runner. llm may be nil when no provider is
// configured; llm and hybrid runs then fall back to rules.
func NewRunner(store SignalStorage, rules *signals.RuleScorer, llm signals.Classifier, cfg signals.Config, logger logging.Logger) *Runner {
	r := &Runner{store: store, rules: rules, llm: llm, cfg: cfg, logger: logger}
	if llm != nil {
		r.hybrid = signals.NewHybridPolicy(rules, llm)
	}
	return r
}

// Run scores candidates per opts. It stops at the first storage error and
// returns the counts accumulated up to that point.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	var result Result

	if opts.Scope == "" {
		opts.Scope = ScopeBoth
	}
	if opts.Method == "" {
		opts.Method = MethodRules
	}
	if opts.PostLimit <= 0 {
		opts.PostLimit = 500
	}
	if opts.CommentLimit <= 0 {
		opts.CommentLimit = 2000
	}

	if opts.Scope == ScopePosts || opts.Scope == ScopeBoth {
		candidates, err := r.store.PostCandidates(ctx, opts.Subreddit, opts.Force, opts.PostLimit)
		if err != nil {
			return result, fmt.Errorf("load post candidates: %w", err)
		}
		for _, c := range candidates {
			scored := r.classify(ctx, c.Text, opts.Method)
			if err := r.store.Upsert(ctx, models.ContentTypePost, c.ContentID, c.PostID, scored.SignalResult); err != nil {
				return result, err
			}
			result.PostsScored++
			result.count(scored.Method)
		}
	}

	if opts.Scope == ScopeComments || opts.Scope == ScopeBoth {
		candidates, err := r.store.CommentCandidates(ctx, opts.Subreddit, opts.Force, opts.CommentLimit)
		if err != nil {
			return result, fmt.Errorf("load comment candidates: %w", err)
		}
		for _, c := range candidates {
			scored := r.classify(ctx, c.Text, opts.Method)
			if err := r.store.Upsert(ctx, models.ContentTypeComment, c.ContentID, c.PostID, scored.SignalResult); err != nil {
				return result, err
			}
			result.CommentsScored++
			result.count(scored.Method)
		}
	}

	r.logger.WithFields(logging.Fields{
		"subreddit": opts.Subreddit,
		"method":    opts.Method,
		"posts":     result.PostsScored,
		"comments":  result.CommentsScored,
		"llm":       result.LLMScored,
	}).Info("Signal scoring run complete")
	return result, nil
}

func (r *Runner) classify(ctx context.Context, text string, method Method) signals.ScoredResult {
	switch method {
	case MethodLLM:
		if r.llm != nil {
			return r.llm.Classify(ctx, text)
		}
	case MethodHybrid:
		if r.hybrid != nil {
			return r.hybrid.Classify(ctx, text, r.cfg.HybridMinScore)
		}
	}
	return signals.ScoredResult{SignalResult: r.rules.Score(text), Method: models.ScoreMethodRule}
}

func (r *Result) count(m models.ScoreMethod) {
	if m == models.ScoreMethodLLM {
		r.LLMScored++
	} else {
		r.RuleScored++
	}
}
