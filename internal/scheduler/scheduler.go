package scheduler

import (
	"context"
	"time"

	"moneyradar/internal/handlers"
	"moneyradar/internal/metrics"
	"moneyradar/internal/scoring"
	"moneyradar/pkg/config"
	"moneyradar/pkg/logging"
)

// Scheduler drives the pipeline stages on timers: ingest new content,
// score the backlog, then recompute the weekly trend materialization.
type Scheduler struct {
	logger    logging.Logger
	listings  handlers.ListingRunner
	threads   handlers.ThreadRunner
	scorer    handlers.ScoreRunner
	trends    handlers.TrendsRunner
	metrics   *metrics.Metrics
	subreddit string

	ingestTicker *time.Ticker
	scoreTicker  *time.Ticker
	trendsTicker *time.Ticker
	stopChan     chan bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(listings handlers.ListingRunner, threads handlers.ThreadRunner, scorer handlers.ScoreRunner, trends handlers.TrendsRunner, serviceMetrics *metrics.Metrics, subreddit string, logger logging.Logger) *Scheduler {
	return &Scheduler{
		logger:    logger,
		listings:  listings,
		threads:   threads,
		scorer:    scorer,
		trends:    trends,
		metrics:   serviceMetrics,
		subreddit: subreddit,
		stopChan:  make(chan bool),
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	ingestInterval := time.Duration(config.GetEnvInt("INGEST_INTERVAL_MINUTES", 30)) * time.Minute
	scoreInterval := time.Duration(config.GetEnvInt("SCORE_INTERVAL_MINUTES", 60)) * time.Minute
	trendsInterval := time.Duration(config.GetEnvInt("TRENDS_INTERVAL_MINUTES", 360)) * time.Minute

	s.logger.WithFields(logging.Fields{
		"ingest_interval": ingestInterval,
		"score_interval":  scoreInterval,
		"trends_interval": trendsInterval,
		"subreddit":       s.subreddit,
	}).Info("Pipeline scheduler configured")

	s.ingestTicker = time.NewTicker(ingestInterval)
	s.scoreTicker = time.NewTicker(scoreInterval)
	s.trendsTicker = time.NewTicker(trendsInterval)
	go s.run()

	// Kick off an ingest shortly after startup so a fresh deployment has
	// data before the first tick.
	go func() {
		time.Sleep(10 * time.Second)
		s.runIngest()
	}()
}

// Stop stops all scheduled tasks
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping pipeline scheduler")

	if s.ingestTicker != nil {
		s.ingestTicker.Stop()
	}
	if s.scoreTicker != nil {
		s.scoreTicker.Stop()
	}
	if s.trendsTicker != nil {
		s.trendsTicker.Stop()
	}
	close(s.stopChan)
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.ingestTicker.C:
			s.runIngest()
		case <-s.scoreTicker.C:
			s.runScore()
		case <-s.trendsTicker.C:
			s.runTrends()
		case <-s.stopChan:
			s.logger.Info("Pipeline task runner stopped")
			return
		}
	}
}

func (s *Scheduler) runIngest() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	listing, err := s.listings.Run(ctx, s.subreddit, 0, 0)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled listing ingestion failed")
		s.metrics.IngestFailures.WithLabelValues("listings").Inc()
		return
	}
	s.metrics.PostsIngested.WithLabelValues(s.subreddit).Add(float64(listing.PostsUpserted))

	threads, err := s.threads.Run(ctx, s.subreddit, 0, 0)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled thread ingestion failed")
		s.metrics.IngestFailures.WithLabelValues("threads").Inc()
		return
	}
	s.metrics.CommentsIngested.WithLabelValues(s.subreddit).Add(float64(threads.CommentsUpserted))
}

func (s *Scheduler) runScore() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	method := scoring.Method(config.GetEnv("SCORE_METHOD", string(scoring.MethodHybrid)))
	start := time.Now()
	result, err := s.scorer.Run(ctx, scoring.Options{Subreddit: s.subreddit, Method: method})
	if err != nil {
		s.logger.WithError(err).Error("Scheduled scoring run failed")
		return
	}
	s.metrics.ScoringDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	s.metrics.ContentScored.WithLabelValues("rule").Add(float64(result.RuleScored))
	s.metrics.ContentScored.WithLabelValues("llm").Add(float64(result.LLMScored))
}

func (s *Scheduler) runTrends() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.trends.Run(ctx, 0)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled trend recompute failed")
		s.metrics.TrendRuns.WithLabelValues("error").Inc()
		return
	}
	s.metrics.TrendRuns.WithLabelValues("ok").Inc()
	s.metrics.TrendRowCount.WithLabelValues("weekly_theme_stats").Set(float64(result.RowsInserted))
}
