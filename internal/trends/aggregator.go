package trends

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"moneyradar/pkg/logging"
	"moneyradar/pkg/models"
)

// WeeklyDoc is one clustered post eligible for trend aggregation.
// Score is the Reddit score of the post, nil when Reddit never reported
// one. SignalScore is nil when the post was never scored for signals.
type WeeklyDoc struct {
	CreatedUTC   time.Time
	ClusterID    int
	ClusterLabel string
	Score        *int
	SignalScore  *float64
}

// TruncateWeek returns the Monday 00:00 UTC that starts the ISO week
// containing t.
func TruncateWeek(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	// time.Weekday counts Sunday as 0, Monday as 1.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ComputeWeeklyStats folds clustered documents into per-week, per-cluster
// trend rows. SignalSum adds up signal scores; AvgScore averages the Reddit
// scores present that week and stays nil when none were reported. Growth
// compares each week's doc count against the cluster's previous week that
// had any documents; the first such week, or a zero baseline, yields a nil
// growth. Weeks with no documents produce no row.
func ComputeWeeklyStats(docs []WeeklyDoc) []models.WeeklyThemeStat {
	type key struct {
		week    time.Time
		cluster int
	}
	type bucket struct {
		label     string
		docs      int
		signalSum float64
		rated     int
		scoreSum  int
	}

	buckets := make(map[key]*bucket)
	for _, d := range docs {
		k := key{week: TruncateWeek(d.CreatedUTC), cluster: d.ClusterID}
		b := buckets[k]
		if b == nil {
			b = &bucket{}
			buckets[k] = b
		}
		if d.ClusterLabel != "" {
			b.label = d.ClusterLabel
		}
		b.docs++
		if d.SignalScore != nil {
			b.signalSum += *d.SignalScore
		}
		if d.Score != nil {
			b.scoreSum += *d.Score
			b.rated++
		}
	}

	stats := make([]models.WeeklyThemeStat, 0, len(buckets))
	for k, b := range buckets {
		stat := models.WeeklyThemeStat{
			WeekStart:    k.week,
			ClusterID:    k.cluster,
			ClusterLabel: b.label,
			DocCount:     b.docs,
			SignalSum:    b.signalSum,
		}
		if b.rated > 0 {
			avg := float64(b.scoreSum) / float64(b.rated)
			stat.AvgScore = &avg
		}
		stats = append(stats, stat)
	}

	// Growth needs each cluster's rows in week order.
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ClusterID != stats[j].ClusterID {
			return stats[i].ClusterID < stats[j].ClusterID
		}
		return stats[i].WeekStart.Before(stats[j].WeekStart)
	})

	for i := range stats {
		if i == 0 || stats[i-1].ClusterID != stats[i].ClusterID {
			continue
		}
		prior := stats[i-1].DocCount
		if prior == 0 {
			continue
		}
		growth := math.Round(float64(stats[i].DocCount-prior)/float64(prior)*1000) / 10
		stats[i].GrowthPct = &growth
	}

	sort.Slice(stats, func(i, j int) bool {
		if !stats[i].WeekStart.Equal(stats[j].WeekStart) {
			return stats[i].WeekStart.Before(stats[j].WeekStart)
		}
		return stats[i].ClusterID < stats[j].ClusterID
	})
	return stats
}

// Aggregator recomputes the weekly_theme_stats materialization from the
// clustered posts currently in the database.
type Aggregator struct {
	db     *sql.DB
	logger logging.Logger
}

// NewAggregator creates a trend aggregator
func NewAggregator(db *sql.DB, logger logging.Logger) *Aggregator {
	return &Aggregator{db: db, logger: logger}
}

const weeklyDocsQuery = `
	SELECT p.created_utc, cm.cluster_id, COALESCE(c.label,''), p.score, s.signal_score
	FROM posts p
	JOIN cluster_membership cm ON cm.content_type='post' AND cm.content_id=p.post_id
	JOIN clusters c ON c.cluster_id = cm.cluster_id
	LEFT JOIN signals s ON s.content_type='post' AND s.content_id=p.post_id
	WHERE cm.cluster_id >= 0 AND p.created_utc IS NOT NULL`

// Run recomputes weekly_theme_stats in one transaction: the whole table is
// deleted and replaced with the freshly computed rows. When lookbackWeeks
// is positive only posts created at or after the cutoff feed the recompute,
// so older weeks simply produce no rows.
func (a *Aggregator) Run(ctx context.Context, lookbackWeeks int) (models.TrendsRunResult, error) {
	var result models.TrendsRunResult

	query := weeklyDocsQuery
	args := []interface{}{}
	if lookbackWeeks > 0 {
		cutoff := TruncateWeek(time.Now()).AddDate(0, 0, -7*lookbackWeeks)
		query += ` AND p.created_utc >= $1`
		args = append(args, cutoff)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return result, fmt.Errorf("select clustered posts: %w", err)
	}
	defer rows.Close()

	var docs []WeeklyDoc
	for rows.Next() {
		var d WeeklyDoc
		var score sql.NullInt64
		var signal sql.NullFloat64
		if err := rows.Scan(&d.CreatedUTC, &d.ClusterID, &d.ClusterLabel, &score, &signal); err != nil {
			return result, fmt.Errorf("scan clustered post: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			d.Score = &v
		}
		if signal.Valid {
			v := signal.Float64
			d.SignalScore = &v
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate clustered posts: %w", err)
	}

	stats := ComputeWeeklyStats(docs)

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin trends transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weekly_theme_stats`); err != nil {
		return result, fmt.Errorf("clear weekly stats: %w", err)
	}

	weeks := map[time.Time]struct{}{}
	for _, stat := range stats {
		var avgScore, growth sql.NullFloat64
		if stat.AvgScore != nil {
			avgScore = sql.NullFloat64{Float64: *stat.AvgScore, Valid: true}
		}
		if stat.GrowthPct != nil {
			growth = sql.NullFloat64{Float64: *stat.GrowthPct, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_theme_stats (week_start, cluster_id, cluster_label, doc_count, signal_sum, avg_score, growth_pct)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			stat.WeekStart, stat.ClusterID, stat.ClusterLabel, stat.DocCount, stat.SignalSum, avgScore, growth,
		)
		if err != nil {
			return result, fmt.Errorf("insert weekly stat %s/%d: %w", stat.WeekStart.Format("2006-01-02"), stat.ClusterID, err)
		}
		weeks[stat.WeekStart] = struct{}{}
		result.RowsInserted++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit trends transaction: %w", err)
	}

	result.WeeksComputed = len(weeks)
	a.logger.WithFields(logging.Fields{
		"weeks": result.WeeksComputed,
		"rows":  result.RowsInserted,
	}).Info("Weekly theme stats recomputed")
	return result, nil
}
