package main

import (
	"moneyradar/internal/eval"
	"moneyradar/internal/handlers"
	"moneyradar/internal/ingest"
	"moneyradar/internal/metrics"
	"moneyradar/internal/scheduler"
	"moneyradar/internal/scoring"
	"moneyradar/internal/signals"
	"moneyradar/internal/store"
	"moneyradar/internal/trends"
	"moneyradar/pkg/clients/reddit"
	"moneyradar/pkg/config"
	"moneyradar/pkg/database"
	"moneyradar/pkg/llm"
	"moneyradar/pkg/logging"
	"moneyradar/pkg/monitoring"
	"moneyradar/pkg/server"
	"moneyradar/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("radar")

	// Load environment variables
	config.LoadEnv(logger)

	logger.WithFields(logging.Fields{
		"version": version.Version,
		"commit":  version.GetShortCommit(),
	}).Info("Starting Radar (Reddit pain-point pipeline)")

	dbURL := config.RequireEnv("DATABASE_URL")
	subreddit := config.GetEnv("SUBREDDIT", "UKPersonalFinance")

	// Connect to Postgres and apply the schema
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, logger); err != nil {
		logger.WithError(err).Fatal("Schema migration failed")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("radar", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("radar", version.Version, version.GitCommit)

	healthChecker.AddCheck("postgres", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": dbURL,
		"SUBREDDIT":    subreddit,
	}))

	serviceMetrics := &metrics.Metrics{
		PostsIngested:    metricsCollector.NewCounter("radar_posts_ingested_total", "Posts ingested from Reddit", []string{"subreddit"}),
		CommentsIngested: metricsCollector.NewCounter("radar_comments_ingested_total", "Comments ingested from Reddit", []string{"subreddit"}),
		IngestFailures:   metricsCollector.NewCounter("radar_ingest_failures_total", "Failed ingestion runs", []string{"stage"}),
		ContentScored:    metricsCollector.NewCounter("radar_content_scored_total", "Content items scored for signals", []string{"method"}),
		ScoringDuration:  metricsCollector.NewHistogram("radar_scoring_run_duration_seconds", "Scoring run duration", []string{"method"}, nil),
		TrendRuns:        metricsCollector.NewCounter("radar_trend_runs_total", "Weekly trend recomputes", []string{"status"}),
		TrendRowCount:    metricsCollector.NewGauge("radar_trend_rows", "Rows in the weekly trend materialization", []string{"table"}),
	}

	// Stores
	contentStore := store.NewContentStore(db)
	signalStore := store.NewSignalStore(db)
	readStore := store.NewReadStore(db)

	// Reddit ingestion. BRONZE_DIR enables raw payload capture.
	var bronze *ingest.Bronze
	if dir := config.GetEnv("BRONZE_DIR", ""); dir != "" {
		bronze = ingest.NewBronze(dir)
		logger.WithField("dir", dir).Info("Bronze capture enabled")
	}
	redditClient := reddit.NewClient(reddit.LoadConfig(), logger)
	listingIngester := ingest.NewListingIngester(redditClient, contentStore, bronze, logger)
	threadIngester := ingest.NewThreadIngester(redditClient, contentStore, bronze, logger)

	// Signal scoring. Without an LLM API key the pipeline runs rule-only.
	signalConfig := signals.LoadConfig()
	ruleScorer := signals.MustNewRuleScorer(signalConfig)

	var classifier signals.Classifier
	llmConfig := llm.LoadConfig()
	if llmConfig.APIKey != "" || llmConfig.Provider == "ollama" {
		provider, err := llm.NewProvider(llmConfig)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create LLM provider")
		}
		classifier = signals.NewLLMClassifier(provider, ruleScorer, signalConfig, logger)
		logger.WithField("provider", llmConfig.Provider).Info("LLM classifier enabled")
	} else {
		logger.Info("No LLM credentials configured, scoring with rules only")
	}

	scoringRunner := scoring.NewRunner(signalStore, ruleScorer, classifier, signalConfig, logger)

	// Trends
	aggregator := trends.NewAggregator(db, logger)
	trendQueries := trends.NewQueryService(db)

	// Signal evaluation against the labelled test set
	evaluator := eval.NewEvaluator(db, logger)

	// Scheduler for periodic ingest, score and trend runs
	taskScheduler := scheduler.NewScheduler(listingIngester, threadIngester, scoringRunner, aggregator, serviceMetrics, subreddit, logger)
	taskScheduler.Start()
	defer taskScheduler.Stop()

	// HTTP API
	router := server.SetupServiceRouter(logger, "radar", healthChecker, metricsCollector)
	apiHandlers := handlers.NewHandlers(readStore, signalStore, trendQueries, subreddit, logger)
	adminHandlers := handlers.NewAdminHandlers(listingIngester, threadIngester, scoringRunner, aggregator, evaluator, subreddit, logger)
	handlers.RegisterRoutes(router, apiHandlers, adminHandlers)

	serverConfig := server.DefaultConfig("radar", "18010")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
