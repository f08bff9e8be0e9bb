package trends

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func week(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func docsForWeek(start time.Time, cluster int, label string, n int, score *float64) []WeeklyDoc {
	docs := make([]WeeklyDoc, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, WeeklyDoc{
			CreatedUTC:   start.Add(time.Duration(i) * time.Hour),
			ClusterID:    cluster,
			ClusterLabel: label,
			SignalScore:  score,
		})
	}
	return docs
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func TestTruncateWeekMondayAligned(t *testing.T) {
	// 2026-08-31 is a Monday.
	monday := week(2026, time.August, 31)
	assert.Equal(t, monday, TruncateWeek(monday))
	assert.Equal(t, monday, TruncateWeek(time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, monday, TruncateWeek(week(2026, time.September, 3)))  // Thursday
	assert.Equal(t, monday, TruncateWeek(time.Date(2026, time.September, 6, 12, 0, 0, 0, time.UTC))) // Sunday
	assert.Equal(t, week(2026, time.September, 7), TruncateWeek(week(2026, time.September, 7)))
}

func TestComputeWeeklyStatsGrowth(t *testing.T) {
	w1 := week(2026, time.August, 3)
	w2 := week(2026, time.August, 10)
	w3 := week(2026, time.August, 17)

	var docs []WeeklyDoc
	docs = append(docs, docsForWeek(w1, 0, "isa fees", 10, fptr(0.5))...)
	docs = append(docs, docsForWeek(w2, 0, "isa fees", 5, fptr(0.5))...)
	docs = append(docs, docsForWeek(w3, 0, "isa fees", 20, fptr(0.5))...)

	stats := ComputeWeeklyStats(docs)
	require.Len(t, stats, 3)

	assert.Equal(t, w1, stats[0].WeekStart)
	assert.Equal(t, 10, stats[0].DocCount)
	assert.Nil(t, stats[0].GrowthPct)

	require.NotNil(t, stats[1].GrowthPct)
	assert.Equal(t, -50.0, *stats[1].GrowthPct)

	require.NotNil(t, stats[2].GrowthPct)
	assert.Equal(t, 300.0, *stats[2].GrowthPct)
}

func TestComputeWeeklyStatsGrowthRounding(t *testing.T) {
	w1 := week(2026, time.August, 3)
	w2 := week(2026, time.August, 10)

	var docs []WeeklyDoc
	docs = append(docs, docsForWeek(w1, 2, "mortgage rates", 3, nil)...)
	docs = append(docs, docsForWeek(w2, 2, "mortgage rates", 7, nil)...)

	stats := ComputeWeeklyStats(docs)
	require.Len(t, stats, 2)
	require.NotNil(t, stats[1].GrowthPct)
	// (7-3)/3 = 133.333... rounded to one decimal place.
	assert.Equal(t, 133.3, *stats[1].GrowthPct)
}

func TestComputeWeeklyStatsSparseWeeks(t *testing.T) {
	// A week with no documents has no row; growth compares against the
	// previous week that had any, not the previous calendar week.
	w1 := week(2026, time.August, 3)
	w3 := week(2026, time.August, 17)

	var docs []WeeklyDoc
	docs = append(docs, docsForWeek(w1, 0, "pension", 4, nil)...)
	docs = append(docs, docsForWeek(w3, 0, "pension", 8, nil)...)

	stats := ComputeWeeklyStats(docs)
	require.Len(t, stats, 2)
	assert.Equal(t, w1, stats[0].WeekStart)
	assert.Equal(t, w3, stats[1].WeekStart)
	require.NotNil(t, stats[1].GrowthPct)
	assert.Equal(t, 100.0, *stats[1].GrowthPct)
}

func TestComputeWeeklyStatsPerClusterGrowth(t *testing.T) {
	w1 := week(2026, time.August, 3)
	w2 := week(2026, time.August, 10)

	var docs []WeeklyDoc
	docs = append(docs, docsForWeek(w1, 0, "isa fees", 10, nil)...)
	docs = append(docs, docsForWeek(w2, 0, "isa fees", 5, nil)...)
	docs = append(docs, docsForWeek(w2, 1, "credit score", 5, nil)...)

	stats := ComputeWeeklyStats(docs)
	require.Len(t, stats, 3)

	// Rows come back week ascending, cluster ascending within a week.
	assert.Equal(t, 0, stats[0].ClusterID)
	assert.Equal(t, 0, stats[1].ClusterID)
	assert.Equal(t, 1, stats[2].ClusterID)

	require.NotNil(t, stats[1].GrowthPct)
	assert.Equal(t, -50.0, *stats[1].GrowthPct)
	// Cluster 1's first week must not borrow cluster 0's baseline.
	assert.Nil(t, stats[2].GrowthPct)
}

func TestComputeWeeklyStatsScores(t *testing.T) {
	w1 := week(2026, time.August, 3)

	docs := []WeeklyDoc{
		{CreatedUTC: w1, ClusterID: 0, ClusterLabel: "isa fees", Score: iptr(40), SignalScore: fptr(0.9)},
		{CreatedUTC: w1.Add(time.Hour), ClusterID: 0, ClusterLabel: "isa fees", Score: iptr(10), SignalScore: fptr(0.3)},
		{CreatedUTC: w1.Add(2 * time.Hour), ClusterID: 0, ClusterLabel: "isa fees"},
	}

	stats := ComputeWeeklyStats(docs)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].DocCount)
	assert.InDelta(t, 1.2, stats[0].SignalSum, 1e-9)
	require.NotNil(t, stats[0].AvgScore)
	// AvgScore averages the Reddit scores that are present.
	assert.InDelta(t, 25.0, *stats[0].AvgScore, 1e-9)
}

func TestComputeWeeklyStatsAvgScoreFromRedditOnly(t *testing.T) {
	// Signal scores feed SignalSum, never AvgScore. Docs with signals but
	// no Reddit score leave the average nil.
	w1 := week(2026, time.August, 3)

	docs := []WeeklyDoc{
		{CreatedUTC: w1, ClusterID: 0, ClusterLabel: "isa fees", SignalScore: fptr(0.7)},
		{CreatedUTC: w1.Add(time.Hour), ClusterID: 0, ClusterLabel: "isa fees", SignalScore: fptr(0.7)},
	}

	stats := ComputeWeeklyStats(docs)
	require.Len(t, stats, 1)
	assert.InDelta(t, 1.4, stats[0].SignalSum, 1e-9)
	assert.Nil(t, stats[0].AvgScore)
}

func TestComputeWeeklyStatsNoScores(t *testing.T) {
	stats := ComputeWeeklyStats(docsForWeek(week(2026, time.August, 3), 0, "isa fees", 2, nil))
	require.Len(t, stats, 1)
	assert.Nil(t, stats[0].AvgScore)
	assert.Equal(t, 0.0, stats[0].SignalSum)
}

func TestComputeWeeklyStatsEmpty(t *testing.T) {
	assert.Empty(t, ComputeWeeklyStats(nil))
}

func TestAggregatorRunReplacesTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	w1 := week(2026, time.August, 3)
	w2 := week(2026, time.August, 10)

	rows := sqlmock.NewRows([]string{"created_utc", "cluster_id", "label", "score", "signal_score"})
	for i := 0; i < 2; i++ {
		rows.AddRow(w1.Add(time.Duration(i)*time.Hour), 0, "isa fees", 10+20*i, 0.5)
	}
	for i := 0; i < 4; i++ {
		rows.AddRow(w2.Add(time.Duration(i)*time.Hour), 0, "isa fees", nil, nil)
	}

	mock.ExpectQuery(`(?s)JOIN cluster_membership cm.*WHERE cm\.cluster_id >= 0`).
		WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM weekly_theme_stats`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO weekly_theme_stats`).
		WithArgs(w1, 0, "isa fees", 2, 1.0, sql.NullFloat64{Float64: 20.0, Valid: true}, sql.NullFloat64{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO weekly_theme_stats`).
		WithArgs(w2, 0, "isa fees", 4, 0.0, sql.NullFloat64{}, sql.NullFloat64{Float64: 100.0, Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	agg := NewAggregator(db, testLogger())
	result, err := agg.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.WeeksComputed)
	assert.Equal(t, 2, result.RowsInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregatorRunLookbackStillClearsWholeTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"created_utc", "cluster_id", "label", "score", "signal_score"}).
		AddRow(TruncateWeek(time.Now()), 0, "isa fees", 12, 0.5)

	mock.ExpectQuery(`(?s)JOIN cluster_membership cm.*AND p\.created_utc >= \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectBegin()
	// The delete carries no WHERE clause: rows outside the lookback window
	// must not survive a recompute.
	mock.ExpectExec(`DELETE FROM weekly_theme_stats$`).
		WillReturnResult(sqlmock.NewResult(0, 9))
	mock.ExpectExec(`INSERT INTO weekly_theme_stats`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	agg := NewAggregator(db, testLogger())
	result, err := agg.Run(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 1, result.WeeksComputed)
	assert.Equal(t, 1, result.RowsInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregatorRunRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"created_utc", "cluster_id", "label", "score", "signal_score"}).
		AddRow(week(2026, time.August, 3), 0, "isa fees", 15, 0.5)

	mock.ExpectQuery(`JOIN cluster_membership cm`).WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM weekly_theme_stats`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO weekly_theme_stats`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	agg := NewAggregator(db, testLogger())
	_, err = agg.Run(context.Background(), 0)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
