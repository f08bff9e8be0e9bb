package scoring

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneyradar/internal/signals"
	"moneyradar/pkg/models"
)

type fakeStore struct {
	posts      []models.ScoreCandidate
	comments   []models.ScoreCandidate
	upserts    []models.SignalRecord
	upsertErr  error
	lastForce  bool
	lastLimits map[models.ContentType]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{lastLimits: map[models.ContentType]int{}}
}

func (f *fakeStore) PostCandidates(_ context.Context, _ string, force bool, limit int) ([]models.ScoreCandidate, error) {
	f.lastForce = force
	f.lastLimits[models.ContentTypePost] = limit
	return f.posts, nil
}

func (f *fakeStore) CommentCandidates(_ context.Context, _ string, force bool, limit int) ([]models.ScoreCandidate, error) {
	f.lastLimits[models.ContentTypeComment] = limit
	return f.comments, nil
}

func (f *fakeStore) Upsert(_ context.Context, ct models.ContentType, contentID, postID string, result models.SignalResult) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, models.SignalRecord{ContentType: ct, ContentID: contentID, PostID: postID, Result: result})
	return nil
}

type stubClassifier struct {
	calls  int
	result signals.ScoredResult
}

func (s *stubClassifier) Classify(_ context.Context, _ string) signals.ScoredResult {
	s.calls++
	return s.result
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunScoresPostsAndComments(t *testing.T) {
	store := newFakeStore()
	store.posts = []models.ScoreCandidate{
		{ContentID: "p1", PostID: "p1", Text: "What's the best cash ISA?"},
	}
	store.comments = []models.ScoreCandidate{
		{ContentID: "c1", PostID: "p1", Text: "Trading 212 has no fees"},
		{ContentID: "c2", PostID: "p1", Text: "thanks"},
	}

	cfg := signals.DefaultConfig()
	r := NewRunner(store, signals.MustNewRuleScorer(cfg), nil, cfg, testLogger())
	result, err := r.Run(context.Background(), Options{Subreddit: "UKPersonalFinance", Method: MethodRules})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PostsScored)
	assert.Equal(t, 2, result.CommentsScored)
	assert.Equal(t, 3, result.RuleScored)
	assert.Equal(t, 0, result.LLMScored)
	require.Len(t, store.upserts, 3)
	assert.Equal(t, models.ContentTypePost, store.upserts[0].ContentType)
	assert.True(t, store.upserts[0].Result.IsQuestion)
	assert.Equal(t, models.ContentTypeComment, store.upserts[1].ContentType)
	assert.True(t, store.upserts[1].Result.MentionsPlatform)
}

func TestRunScopePostsOnly(t *testing.T) {
	store := newFakeStore()
	store.posts = []models.ScoreCandidate{{ContentID: "p1", PostID: "p1", Text: "hello"}}
	store.comments = []models.ScoreCandidate{{ContentID: "c1", PostID: "p1", Text: "hi"}}

	cfg := signals.DefaultConfig()
	r := NewRunner(store, signals.MustNewRuleScorer(cfg), nil, cfg, testLogger())
	result, err := r.Run(context.Background(), Options{Scope: ScopePosts})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PostsScored)
	assert.Equal(t, 0, result.CommentsScored)
	_, touchedComments := store.lastLimits[models.ContentTypeComment]
	assert.False(t, touchedComments)
}

func TestRunHybridCountsMethods(t *testing.T) {
	store := newFakeStore()
	store.posts = []models.ScoreCandidate{
		// Strong rule signal, stays on the rule tier.
		{ContentID: "p1", PostID: "p1", Text: "Which bank has the best ISA?"},
		// No rule signal, delegated to the classifier.
		{ContentID: "p2", PostID: "p2", Text: "I went for a walk today"},
	}

	llm := &stubClassifier{result: signals.ScoredResult{
		SignalResult: models.SignalResult{SignalScore: 0.7, DetectedKeywords: []string{"question"}},
		Method:       models.ScoreMethodLLM,
	}}

	cfg := signals.DefaultConfig()
	r := NewRunner(store, signals.MustNewRuleScorer(cfg), llm, cfg, testLogger())
	result, err := r.Run(context.Background(), Options{Scope: ScopePosts, Method: MethodHybrid})
	require.NoError(t, err)

	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, 1, result.RuleScored)
	assert.Equal(t, 1, result.LLMScored)
}

func TestRunLLMMethodFallsBackWithoutProvider(t *testing.T) {
	store := newFakeStore()
	store.posts = []models.ScoreCandidate{{ContentID: "p1", PostID: "p1", Text: "Best broker?"}}

	cfg := signals.DefaultConfig()
	r := NewRunner(store, signals.MustNewRuleScorer(cfg), nil, cfg, testLogger())
	result, err := r.Run(context.Background(), Options{Scope: ScopePosts, Method: MethodLLM})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RuleScored)
	assert.Equal(t, 0, result.LLMScored)
}

func TestRunAbortsOnStorageError(t *testing.T) {
	store := newFakeStore()
	store.posts = []models.ScoreCandidate{{ContentID: "p1", PostID: "p1", Text: "hello"}}
	store.upsertErr = assert.AnError

	cfg := signals.DefaultConfig()
	r := NewRunner(store, signals.MustNewRuleScorer(cfg), nil, cfg, testLogger())
	result, err := r.Run(context.Background(), Options{Scope: ScopePosts})
	assert.Error(t, err)
	assert.Equal(t, 0, result.PostsScored)
}

func TestRunDefaultsAndForce(t *testing.T) {
	store := newFakeStore()
	cfg := signals.DefaultConfig()
	r := NewRunner(store, signals.MustNewRuleScorer(cfg), nil, cfg, testLogger())
	_, err := r.Run(context.Background(), Options{Force: true})
	require.NoError(t, err)
	assert.True(t, store.lastForce)
	assert.Equal(t, 500, store.lastLimits[models.ContentTypePost])
	assert.Equal(t, 2000, store.lastLimits[models.ContentTypeComment])
}
