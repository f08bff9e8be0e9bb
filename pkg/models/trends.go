package models

import "time"

// WeeklyThemeStat is one materialized row of weekly_theme_stats: one
// cluster's activity in one ISO week (Monday-aligned). GrowthPct is nil
// when the cluster has no computable non-zero prior-week baseline. Weeks
// with zero eligible documents are absent, not present with DocCount 0.
type WeeklyThemeStat struct {
	WeekStart    time.Time `json:"week_start"`
	ClusterID    int       `json:"cluster_id"`
	ClusterLabel string    `json:"cluster_label"`
	DocCount     int       `json:"doc_count"`
	SignalSum    float64   `json:"signal_sum"`
	AvgScore     *float64  `json:"avg_score"`
	GrowthPct    *float64  `json:"growth_pct"`
}

// TrendingTheme is one ranked row from the trending-themes query.
// AvgGrowth is nil when no week in the window had a computable growth
// value; it is coalesced to 0 inside TrendScore but still reported nil.
type TrendingTheme struct {
	ClusterID  int      `json:"cluster_id"`
	Label      string   `json:"label"`
	TotalDocs  int      `json:"total_docs"`
	AvgSignal  float64  `json:"avg_signal"`
	AvgGrowth  *float64 `json:"avg_growth"`
	TrendScore float64  `json:"trend_score"`
}

// ThemeWeek is one point of a single theme's weekly time series
type ThemeWeek struct {
	Week      time.Time `json:"week"`
	Docs      int       `json:"docs"`
	SignalSum float64   `json:"signal_sum"`
	AvgScore  *float64  `json:"avg_score"`
	GrowthPct *float64  `json:"growth_pct"`
}

// WeeklySummary aggregates all themes' activity for one week
type WeeklySummary struct {
	Week           time.Time `json:"week"`
	ActiveThemes   int       `json:"active_themes"`
	TotalDocs      int       `json:"total_docs"`
	TotalSignal    float64   `json:"total_signal"`
	AvgRedditScore *float64  `json:"avg_reddit_score"`
}

// TrendsRunResult reports what a weekly trend recompute produced
type TrendsRunResult struct {
	WeeksComputed int `json:"weeks_computed"`
	RowsInserted  int `json:"rows_inserted"`
}
