package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus metrics for the radar service
type Metrics struct {
	// Ingestion metrics
	PostsIngested    *prometheus.CounterVec
	CommentsIngested *prometheus.CounterVec
	IngestFailures   *prometheus.CounterVec

	// Scoring metrics
	ContentScored   *prometheus.CounterVec
	ScoringDuration *prometheus.HistogramVec

	// Trend metrics
	TrendRuns     *prometheus.CounterVec
	TrendRowCount *prometheus.GaugeVec
}
