package store

import (
	"context"
	"database/sql"
	"fmt"

	"moneyradar/pkg/models"
)

// ContentStore owns the posts and comments tables plus the per-feed
// ingestion cursor.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore creates a content store
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

// UpsertPost writes a post. Re-ingesting an existing post refreshes its
// mutable fields (score, comment count, body edits) but keeps the original
// collected_at.
func (s *ContentStore) UpsertPost(ctx context.Context, p models.Post) error {
	var blobPath sql.NullString
	if p.RawBlobPath != "" {
		blobPath = sql.NullString{String: p.RawBlobPath, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (post_id, subreddit, title, body, created_utc, score, num_comments, permalink, raw_blob_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (post_id) DO UPDATE SET
		  title=EXCLUDED.title,
		  body=EXCLUDED.body,
		  score=EXCLUDED.score,
		  num_comments=EXCLUDED.num_comments,
		  permalink=EXCLUDED.permalink,
		  raw_blob_path=COALESCE(EXCLUDED.raw_blob_path, posts.raw_blob_path)`,
		p.PostID, p.Subreddit, p.Title, p.Body, p.CreatedUTC, p.Score, p.NumComments, p.Permalink, blobPath,
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.PostID, err)
	}
	return nil
}

// UpsertComment writes one comment, refreshing score and body on conflict.
func (s *ContentStore) UpsertComment(ctx context.Context, c models.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (comment_id, post_id, parent_id, depth, body, created_utc, score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (comment_id) DO UPDATE SET
		  body=EXCLUDED.body,
		  score=EXCLUDED.score`,
		c.CommentID, c.PostID, c.ParentID, c.Depth, c.Body, c.CreatedUTC, c.Score,
	)
	if err != nil {
		return fmt.Errorf("upsert comment %s: %w", c.CommentID, err)
	}
	return nil
}

// AfterToken returns the stored pagination cursor for a feed, empty when
// the feed has never been ingested.
func (s *ContentStore) AfterToken(ctx context.Context, source, subreddit, feed string) (string, error) {
	var token sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT after_token FROM ingestion_state
		WHERE source = $1 AND subreddit = $2 AND feed = $3`,
		source, subreddit, feed,
	).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load ingestion cursor: %w", err)
	}
	return token.String, nil
}

// SetAfterToken stores the pagination cursor for a feed. An empty token
// resets the cursor so the next run starts from the top of the feed.
func (s *ContentStore) SetAfterToken(ctx context.Context, source, subreddit, feed, token string) error {
	var val sql.NullString
	if token != "" {
		val = sql.NullString{String: token, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_state (source, subreddit, feed, after_token, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (source, subreddit, feed) DO UPDATE SET
		  after_token=EXCLUDED.after_token,
		  updated_at=now()`,
		source, subreddit, feed, val,
	)
	if err != nil {
		return fmt.Errorf("save ingestion cursor: %w", err)
	}
	return nil
}

// ThreadCandidates returns posts whose comment threads need fetching:
// never fetched, or grown since the last fetch. Newest posts first.
func (s *ContentStore) ThreadCandidates(ctx context.Context, subreddit string, limit int) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, subreddit, COALESCE(title,''), COALESCE(num_comments,0)
		FROM posts
		WHERE subreddit = $1
		  AND COALESCE(num_comments,0) > 0
		  AND (thread_fetched_at IS NULL OR COALESCE(num_comments,0) > COALESCE(thread_comment_count,0))
		ORDER BY created_utc DESC NULLS LAST
		LIMIT $2`,
		subreddit, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select thread candidates: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.PostID, &p.Subreddit, &p.Title, &p.NumComments); err != nil {
			return nil, fmt.Errorf("scan thread candidate: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// MarkThreadFetched records a completed thread fetch, the comment count it
// captured and, when capture is enabled, the bronze file the raw thread
// payload was written to.
func (s *ContentStore) MarkThreadFetched(ctx context.Context, postID string, commentCount int, blobPath string) error {
	var blob sql.NullString
	if blobPath != "" {
		blob = sql.NullString{String: blobPath, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE posts SET thread_fetched_at = now(), thread_comment_count = $2,
		  thread_blob_path = COALESCE($3, thread_blob_path)
		WHERE post_id = $1`,
		postID, commentCount, blob,
	)
	if err != nil {
		return fmt.Errorf("mark thread fetched %s: %w", postID, err)
	}
	return nil
}
