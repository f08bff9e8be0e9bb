package scheduler

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"moneyradar/internal/ingest"
	"moneyradar/internal/metrics"
	"moneyradar/internal/scoring"
	"moneyradar/pkg/models"
)

type stubListings struct {
	result ingest.ListingResult
	err    error
	calls  int
}

func (s *stubListings) Run(context.Context, string, int, int) (ingest.ListingResult, error) {
	s.calls++
	return s.result, s.err
}

type stubThreads struct {
	result ingest.ThreadResult
	calls  int
}

func (s *stubThreads) Run(context.Context, string, int, int) (ingest.ThreadResult, error) {
	s.calls++
	return s.result, nil
}

type stubScorer struct {
	result scoring.Result
	opts   scoring.Options
}

func (s *stubScorer) Run(_ context.Context, opts scoring.Options) (scoring.Result, error) {
	s.opts = opts
	return s.result, nil
}

type stubTrends struct {
	result models.TrendsRunResult
	err    error
}

func (s *stubTrends) Run(context.Context, int) (models.TrendsRunResult, error) {
	return s.result, s.err
}

func testMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		PostsIngested:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_posts_ingested"}, []string{"subreddit"}),
		CommentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_comments_ingested"}, []string{"subreddit"}),
		IngestFailures:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_ingest_failures"}, []string{"stage"}),
		ContentScored:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_content_scored"}, []string{"method"}),
		ScoringDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_scoring_duration"}, []string{"method"}),
		TrendRuns:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_trend_runs"}, []string{"status"}),
		TrendRowCount:    prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_trend_rows"}, []string{"table"}),
	}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestScheduler(listings *stubListings, threads *stubThreads, scorer *stubScorer, trends *stubTrends, m *metrics.Metrics) *Scheduler {
	return NewScheduler(listings, threads, scorer, trends, m, "UKPersonalFinance", testLogger())
}

func TestRunIngestUpdatesMetrics(t *testing.T) {
	listings := &stubListings{result: ingest.ListingResult{Pages: 2, PostsUpserted: 150}}
	threads := &stubThreads{result: ingest.ThreadResult{ThreadsFetched: 5, CommentsUpserted: 80}}
	m := testMetrics()

	s := newTestScheduler(listings, threads, &stubScorer{}, &stubTrends{}, m)
	s.runIngest()

	assert.Equal(t, 1, listings.calls)
	assert.Equal(t, 1, threads.calls)
	assert.Equal(t, 150.0, testutil.ToFloat64(m.PostsIngested.WithLabelValues("UKPersonalFinance")))
	assert.Equal(t, 80.0, testutil.ToFloat64(m.CommentsIngested.WithLabelValues("UKPersonalFinance")))
}

func TestRunIngestListingFailureSkipsThreads(t *testing.T) {
	listings := &stubListings{err: assert.AnError}
	threads := &stubThreads{}
	m := testMetrics()

	s := newTestScheduler(listings, threads, &stubScorer{}, &stubTrends{}, m)
	s.runIngest()

	assert.Equal(t, 0, threads.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestFailures.WithLabelValues("listings")))
}

func TestRunScoreUsesConfiguredMethod(t *testing.T) {
	scorer := &stubScorer{result: scoring.Result{RuleScored: 7, LLMScored: 3}}
	m := testMetrics()

	s := newTestScheduler(&stubListings{}, &stubThreads{}, scorer, &stubTrends{}, m)
	s.runScore()

	assert.Equal(t, scoring.MethodHybrid, scorer.opts.Method)
	assert.Equal(t, "UKPersonalFinance", scorer.opts.Subreddit)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ContentScored.WithLabelValues("rule")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ContentScored.WithLabelValues("llm")))
}

func TestRunTrends(t *testing.T) {
	trends := &stubTrends{result: models.TrendsRunResult{WeeksComputed: 6, RowsInserted: 42}}
	m := testMetrics()

	s := newTestScheduler(&stubListings{}, &stubThreads{}, &stubScorer{}, trends, m)
	s.runTrends()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrendRuns.WithLabelValues("ok")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.TrendRowCount.WithLabelValues("weekly_theme_stats")))
}

func TestRunTrendsError(t *testing.T) {
	trends := &stubTrends{err: assert.AnError}
	m := testMetrics()

	s := newTestScheduler(&stubListings{}, &stubThreads{}, &stubScorer{}, trends, m)
	s.runTrends()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrendRuns.WithLabelValues("error")))
}
