package database

import (
	"fmt"

	"moneyradar/pkg/logging"
)

// migrations run in order on every startup; each statement must be
// idempotent (IF NOT EXISTS / ADD COLUMN IF NOT EXISTS) so re-running is a
// no-op on an up-to-date database.
var migrations = []string{
	// Ingestion cursor state per (source, subreddit, feed).
	`CREATE TABLE IF NOT EXISTS ingestion_state (
		source TEXT NOT NULL,
		subreddit TEXT NOT NULL,
		feed TEXT NOT NULL,
		after_token TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (source, subreddit, feed)
	)`,

	`CREATE TABLE IF NOT EXISTS posts (
		post_id TEXT PRIMARY KEY,
		subreddit TEXT NOT NULL,
		title TEXT,
		body TEXT,
		created_utc TIMESTAMPTZ,
		score INTEGER,
		num_comments INTEGER,
		permalink TEXT,
		collected_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS comments (
		comment_id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(post_id) ON DELETE CASCADE,
		parent_id TEXT,
		depth INTEGER,
		body TEXT,
		created_utc TIMESTAMPTZ,
		score INTEGER,
		collected_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`ALTER TABLE posts ADD COLUMN IF NOT EXISTS thread_fetched_at TIMESTAMPTZ`,
	`ALTER TABLE posts ADD COLUMN IF NOT EXISTS thread_comment_count INTEGER`,
	`ALTER TABLE posts ADD COLUMN IF NOT EXISTS raw_blob_path TEXT`,
	`ALTER TABLE posts ADD COLUMN IF NOT EXISTS thread_blob_path TEXT`,

	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_parent_id ON comments(parent_id)`,

	// Pain-point signal scores, one row per scored post or comment.
	`CREATE TABLE IF NOT EXISTS signals (
		content_type TEXT NOT NULL CHECK (content_type IN ('post','comment')),
		content_id TEXT NOT NULL,
		post_id TEXT NOT NULL REFERENCES posts(post_id) ON DELETE CASCADE,
		is_question BOOLEAN NOT NULL,
		asks_recommendation BOOLEAN NOT NULL,
		mentions_cost BOOLEAN NOT NULL,
		mentions_platform BOOLEAN NOT NULL,
		signal_score DOUBLE PRECISION NOT NULL,
		detected_keywords JSONB NOT NULL,
		collected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (content_type, content_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_signals_post_id ON signals(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_score ON signals(signal_score DESC)`,

	// Theme clusters, written by the external topic-model stage. This
	// service only reads them, but creates the tables so a fresh database
	// accepts the collaborator's writes.
	`CREATE TABLE IF NOT EXISTS clusters (
		cluster_id INTEGER PRIMARY KEY,
		label TEXT,
		top_terms JSONB,
		representative_docs JSONB,
		doc_count INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS cluster_membership (
		content_type TEXT NOT NULL CHECK (content_type IN ('post','comment')),
		content_id TEXT NOT NULL,
		cluster_id INTEGER NOT NULL REFERENCES clusters(cluster_id) ON DELETE CASCADE,
		probability DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (content_type, content_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_cluster_membership_cluster ON cluster_membership(cluster_id)`,

	// Materialized weekly aggregates. Fully replaced on every trends run.
	`CREATE TABLE IF NOT EXISTS weekly_theme_stats (
		week_start DATE NOT NULL,
		cluster_id INTEGER NOT NULL REFERENCES clusters(cluster_id) ON DELETE CASCADE,
		cluster_label TEXT,
		doc_count INTEGER NOT NULL DEFAULT 0,
		signal_sum DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_score DOUBLE PRECISION,
		growth_pct DOUBLE PRECISION,
		computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (week_start, cluster_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_weekly_theme_stats_cluster ON weekly_theme_stats(cluster_id)`,
	`CREATE INDEX IF NOT EXISTS idx_weekly_theme_stats_week ON weekly_theme_stats(week_start DESC)`,
}

// Migrate applies the schema to the connected database.
func Migrate(db PostgresConn, logger logging.Logger) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	logger.WithField("statements", len(migrations)).Debug("Schema migrations applied")
	return nil
}
