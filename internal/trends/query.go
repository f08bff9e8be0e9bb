package trends

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"moneyradar/pkg/models"
)

// QueryService reads the materialized weekly_theme_stats table. It never
// touches the raw posts or signals tables.
type QueryService struct {
	db *sql.DB
}

// NewQueryService creates a trend query service
func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// TrendingThemes ranks themes over the last weeksBack weeks by a composite
// of average growth and volume. AvgSignal is the mean of the per-week
// signal_sum values. Themes with fewer than minDocs documents in the window
// are dropped. AvgGrowth stays nil when no week in the window had a
// computable growth value; the trend score treats it as 0.
func (q *QueryService) TrendingThemes(ctx context.Context, weeksBack, minDocs, limit int) ([]models.TrendingTheme, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT cluster_id,
		       MAX(cluster_label) AS label,
		       SUM(doc_count) AS total_docs,
		       COALESCE(AVG(signal_sum), 0) AS avg_signal,
		       AVG(growth_pct) FILTER (WHERE growth_pct IS NOT NULL) AS avg_growth,
		       COALESCE(AVG(growth_pct) FILTER (WHERE growth_pct IS NOT NULL), 0) + SUM(doc_count) * 0.5 AS trend_score
		FROM weekly_theme_stats
		WHERE week_start >= (date_trunc('week', now()) - ($1 || ' weeks')::interval)::date
		GROUP BY cluster_id
		HAVING SUM(doc_count) >= $2
		ORDER BY trend_score DESC
		LIMIT $3`,
		weeksBack, minDocs, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select trending themes: %w", err)
	}
	defer rows.Close()

	var themes []models.TrendingTheme
	for rows.Next() {
		var t models.TrendingTheme
		var growth sql.NullFloat64
		if err := rows.Scan(&t.ClusterID, &t.Label, &t.TotalDocs, &t.AvgSignal, &growth, &t.TrendScore); err != nil {
			return nil, fmt.Errorf("scan trending theme: %w", err)
		}
		t.AvgSignal = math.Round(t.AvgSignal*100) / 100
		t.TrendScore = math.Round(t.TrendScore*100) / 100
		if growth.Valid {
			v := math.Round(growth.Float64*10) / 10
			t.AvgGrowth = &v
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// ThemeTimeseries returns one cluster's weekly activity within the last
// weeksBack weeks, oldest first.
func (q *QueryService) ThemeTimeseries(ctx context.Context, clusterID, weeksBack int) ([]models.ThemeWeek, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT week_start, doc_count, signal_sum, avg_score, growth_pct
		FROM weekly_theme_stats
		WHERE cluster_id = $1
		  AND week_start >= (date_trunc('week', now()) - ($2 || ' weeks')::interval)::date
		ORDER BY week_start ASC`,
		clusterID, weeksBack,
	)
	if err != nil {
		return nil, fmt.Errorf("select theme timeseries: %w", err)
	}
	defer rows.Close()

	var weeks []models.ThemeWeek
	for rows.Next() {
		var w models.ThemeWeek
		var avgScore, growth sql.NullFloat64
		if err := rows.Scan(&w.Week, &w.Docs, &w.SignalSum, &avgScore, &growth); err != nil {
			return nil, fmt.Errorf("scan theme week: %w", err)
		}
		if avgScore.Valid {
			v := avgScore.Float64
			w.AvgScore = &v
		}
		if growth.Valid {
			v := growth.Float64
			w.GrowthPct = &v
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// WeeklySummary aggregates all themes per week, newest first.
func (q *QueryService) WeeklySummary(ctx context.Context, weeksBack int) ([]models.WeeklySummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT week_start,
		       COUNT(DISTINCT cluster_id) AS active_themes,
		       SUM(doc_count) AS total_docs,
		       SUM(signal_sum) AS total_signal,
		       AVG(avg_score) AS avg_reddit_score
		FROM weekly_theme_stats
		WHERE week_start >= (date_trunc('week', now()) - ($1 || ' weeks')::interval)::date
		GROUP BY week_start
		ORDER BY week_start DESC`,
		weeksBack,
	)
	if err != nil {
		return nil, fmt.Errorf("select weekly summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.WeeklySummary
	for rows.Next() {
		var s models.WeeklySummary
		var avg sql.NullFloat64
		if err := rows.Scan(&s.Week, &s.ActiveThemes, &s.TotalDocs, &s.TotalSignal, &avg); err != nil {
			return nil, fmt.Errorf("scan weekly summary: %w", err)
		}
		if avg.Valid {
			v := avg.Float64
			s.AvgRedditScore = &v
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
