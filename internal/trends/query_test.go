package trends

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrendingThemesRanking(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)HAVING SUM\(doc_count\) >= \$2.*ORDER BY trend_score DESC`).
		WithArgs(8, 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "label", "total_docs", "avg_signal", "avg_growth", "trend_score"}).
			AddRow(3, "isa fees", 40, 0.45, 120.5, 140.5).
			AddRow(1, "credit score", 60, 0.30, nil, 30.0))

	q := NewQueryService(db)
	themes, err := q.TrendingThemes(context.Background(), 8, 5, 10)
	require.NoError(t, err)
	require.Len(t, themes, 2)

	assert.Equal(t, 3, themes[0].ClusterID)
	require.NotNil(t, themes[0].AvgGrowth)
	assert.Equal(t, 120.5, *themes[0].AvgGrowth)
	assert.Equal(t, 140.5, themes[0].TrendScore)

	// A theme with no computable growth still ranks on volume alone.
	assert.Nil(t, themes[1].AvgGrowth)
	assert.Equal(t, 30.0, themes[1].TrendScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendingThemesAvgSignalFromSignalSum(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// avg_signal is the mean of the weekly signal_sum values, not of the
	// per-week Reddit score averages, and comes back rounded like the
	// growth and trend figures.
	mock.ExpectQuery(`(?s)COALESCE\(AVG\(signal_sum\), 0\) AS avg_signal.*FROM weekly_theme_stats`).
		WithArgs(4, 2, 10).
		WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "label", "total_docs", "avg_signal", "avg_growth", "trend_score"}).
			AddRow(3, "isa fees", 12, 4.666666666666667, 33.333333333333336, 39.666666666666664))

	q := NewQueryService(db)
	themes, err := q.TrendingThemes(context.Background(), 4, 2, 10)
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, 4.67, themes[0].AvgSignal)
	require.NotNil(t, themes[0].AvgGrowth)
	assert.Equal(t, 33.3, *themes[0].AvgGrowth)
	assert.Equal(t, 39.67, themes[0].TrendScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendingThemesEmptyWindow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM weekly_theme_stats`).
		WithArgs(8, 5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"cluster_id", "label", "total_docs", "avg_signal", "avg_growth", "trend_score"}))

	q := NewQueryService(db)
	themes, err := q.TrendingThemes(context.Background(), 8, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, themes)
}

func TestThemeTimeseriesAscending(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	w1 := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	w2 := w1.AddDate(0, 0, 7)

	mock.ExpectQuery(`(?s)WHERE cluster_id = \$1.*ORDER BY week_start ASC`).
		WithArgs(3, 12).
		WillReturnRows(sqlmock.NewRows([]string{"week_start", "doc_count", "signal_sum", "avg_score", "growth_pct"}).
			AddRow(w1, 10, 4.5, 0.45, nil).
			AddRow(w2, 5, 2.0, 0.40, -50.0))

	q := NewQueryService(db)
	weeks, err := q.ThemeTimeseries(context.Background(), 3, 12)
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, w1, weeks[0].Week)
	assert.Nil(t, weeks[0].GrowthPct)
	require.NotNil(t, weeks[1].GrowthPct)
	assert.Equal(t, -50.0, *weeks[1].GrowthPct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklySummaryDescending(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	w1 := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	w2 := w1.AddDate(0, 0, 7)

	mock.ExpectQuery(`GROUP BY week_start\s+ORDER BY week_start DESC`).
		WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"week_start", "active_themes", "total_docs", "total_signal", "avg_reddit_score"}).
			AddRow(w2, 4, 80, 22.5, 0.42).
			AddRow(w1, 3, 60, 18.0, nil))

	q := NewQueryService(db)
	summaries, err := q.WeeklySummary(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, w2, summaries[0].Week)
	assert.Equal(t, 4, summaries[0].ActiveThemes)
	require.NotNil(t, summaries[0].AvgRedditScore)
	assert.Nil(t, summaries[1].AvgRedditScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}
