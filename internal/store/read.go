package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"moneyradar/pkg/api/radar"
	"moneyradar/pkg/models"
)

// ReadStore serves the read-only API views: corpus stats, theme listings
// and post browsing. Trend views live in the trends package.
type ReadStore struct {
	db *sql.DB
}

// NewReadStore creates a read store
func NewReadStore(db *sql.DB) *ReadStore {
	return &ReadStore{db: db}
}

// Stats returns corpus-wide counts. The theme count excludes the noise
// bucket.
func (s *ReadStore) Stats(ctx context.Context) (radar.Stats, error) {
	var stats radar.Stats
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM posts),
		  (SELECT COUNT(*) FROM comments),
		  (SELECT COUNT(*) FROM signals),
		  (SELECT COUNT(*) FROM clusters WHERE cluster_id >= 0),
		  (SELECT MAX(collected_at) FROM posts)`,
	).Scan(&stats.Posts, &stats.Comments, &stats.Signals, &stats.Themes, &last)
	if err != nil {
		return stats, fmt.Errorf("select stats: %w", err)
	}
	if last.Valid {
		t := last.Time
		stats.LastCollected = &t
	}
	return stats, nil
}

// Themes lists non-noise clusters, largest first.
func (s *ReadStore) Themes(ctx context.Context, limit int) ([]models.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_id, COALESCE(label,''), COALESCE(top_terms,'[]'), COALESCE(doc_count,0)
		FROM clusters
		WHERE cluster_id >= 0
		ORDER BY doc_count DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select themes: %w", err)
	}
	defer rows.Close()

	var themes []models.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, c)
	}
	return themes, rows.Err()
}

// Theme returns one cluster. sql.ErrNoRows propagates when it does not
// exist.
func (s *ReadStore) Theme(ctx context.Context, clusterID int) (models.Cluster, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cluster_id, COALESCE(label,''), COALESCE(top_terms,'[]'), COALESCE(doc_count,0)
		FROM clusters
		WHERE cluster_id = $1`,
		clusterID,
	)
	return scanCluster(row)
}

// ThemePosts returns a cluster's posts, strongest signal first. Unscored
// posts sort last.
func (s *ReadStore) ThemePosts(ctx context.Context, clusterID, limit int) ([]radar.PostSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.post_id, COALESCE(p.title,''), COALESCE(p.score,0), COALESCE(p.num_comments,0),
		       COALESCE(p.permalink,''), p.created_utc, sg.signal_score
		FROM posts p
		JOIN cluster_membership cm ON cm.content_type='post' AND cm.content_id=p.post_id
		LEFT JOIN signals sg ON sg.content_type='post' AND sg.content_id=p.post_id
		WHERE cm.cluster_id = $1
		ORDER BY sg.signal_score DESC NULLS LAST, p.created_utc DESC NULLS LAST
		LIMIT $2`,
		clusterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select theme posts: %w", err)
	}
	defer rows.Close()
	return collectPostSummaries(rows)
}

// Posts lists a subreddit's posts, newest first.
func (s *ReadStore) Posts(ctx context.Context, subreddit string, limit, offset int) ([]radar.PostSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.post_id, COALESCE(p.title,''), COALESCE(p.score,0), COALESCE(p.num_comments,0),
		       COALESCE(p.permalink,''), p.created_utc, sg.signal_score
		FROM posts p
		LEFT JOIN signals sg ON sg.content_type='post' AND sg.content_id=p.post_id
		WHERE p.subreddit = $1
		ORDER BY p.created_utc DESC NULLS LAST
		LIMIT $2 OFFSET $3`,
		subreddit, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select posts: %w", err)
	}
	defer rows.Close()
	return collectPostSummaries(rows)
}

// Post returns one post with its signal row and comments. sql.ErrNoRows
// propagates when the post does not exist.
func (s *ReadStore) Post(ctx context.Context, postID string) (radar.PostDetail, error) {
	var detail radar.PostDetail
	var created sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, subreddit, COALESCE(title,''), COALESCE(body,''), created_utc,
		       COALESCE(score,0), COALESCE(num_comments,0), COALESCE(permalink,''), collected_at
		FROM posts WHERE post_id = $1`,
		postID,
	).Scan(&detail.Post.PostID, &detail.Post.Subreddit, &detail.Post.Title, &detail.Post.Body,
		&created, &detail.Post.Score, &detail.Post.NumComments, &detail.Post.Permalink, &detail.Post.CollectedAt)
	if err != nil {
		return detail, err
	}
	if created.Valid {
		t := created.Time
		detail.Post.CreatedUTC = &t
	}

	var rec models.SignalRecord
	var keywords []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT content_type, content_id, post_id, is_question, asks_recommendation,
		       mentions_cost, mentions_platform, signal_score, detected_keywords, collected_at
		FROM signals WHERE content_type='post' AND content_id = $1`,
		postID,
	).Scan(&rec.ContentType, &rec.ContentID, &rec.PostID,
		&rec.Result.IsQuestion, &rec.Result.AsksRecommendation,
		&rec.Result.MentionsCost, &rec.Result.MentionsPlatform,
		&rec.Result.SignalScore, &keywords, &rec.CollectedAt)
	switch {
	case err == sql.ErrNoRows:
		// Unscored post, signal stays nil.
	case err != nil:
		return detail, fmt.Errorf("select post signal: %w", err)
	default:
		if err := json.Unmarshal(keywords, &rec.Result.DetectedKeywords); err != nil {
			return detail, fmt.Errorf("decode detected keywords: %w", err)
		}
		detail.Signal = &rec
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT comment_id, post_id, COALESCE(parent_id,''), COALESCE(depth,0), COALESCE(body,''),
		       created_utc, COALESCE(score,0), collected_at
		FROM comments WHERE post_id = $1
		ORDER BY created_utc ASC NULLS LAST`,
		postID,
	)
	if err != nil {
		return detail, fmt.Errorf("select post comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		var commentCreated sql.NullTime
		if err := rows.Scan(&c.CommentID, &c.PostID, &c.ParentID, &c.Depth, &c.Body,
			&commentCreated, &c.Score, &c.CollectedAt); err != nil {
			return detail, fmt.Errorf("scan comment: %w", err)
		}
		if commentCreated.Valid {
			t := commentCreated.Time
			c.CreatedUTC = &t
		}
		detail.Comments = append(detail.Comments, c)
	}
	return detail, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCluster(row rowScanner) (models.Cluster, error) {
	var c models.Cluster
	var terms []byte
	if err := row.Scan(&c.ClusterID, &c.Label, &terms, &c.DocCount); err != nil {
		return c, err
	}
	if err := json.Unmarshal(terms, &c.TopTerms); err != nil {
		return c, fmt.Errorf("decode top terms: %w", err)
	}
	return c, nil
}

func collectPostSummaries(rows *sql.Rows) ([]radar.PostSummary, error) {
	var posts []radar.PostSummary
	for rows.Next() {
		var p radar.PostSummary
		var created sql.NullTime
		var score sql.NullFloat64
		if err := rows.Scan(&p.PostID, &p.Title, &p.Score, &p.NumComments, &p.Permalink, &created, &score); err != nil {
			return nil, fmt.Errorf("scan post summary: %w", err)
		}
		if created.Valid {
			t := created.Time
			p.CreatedUTC = &t
		}
		if score.Valid {
			v := score.Float64
			p.SignalScore = &v
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
