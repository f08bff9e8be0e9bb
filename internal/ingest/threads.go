package ingest

import (
	"context"
	"fmt"
	"time"

	"moneyradar/pkg/clients/reddit"
	"moneyradar/pkg/logging"
)

// ThreadClient is the slice of the Reddit client thread ingestion needs
type ThreadClient interface {
	CommentThread(ctx context.Context, subreddit, postID string, limit int) ([]reddit.ThreadComment, error)
}

// threadCapture is the bronze payload for one fetched comment thread
type threadCapture struct {
	Subreddit string                 `json:"subreddit"`
	PostID    string                 `json:"post_id"`
	Comments  []reddit.ThreadComment `json:"comments"`
}

// ThreadResult reports one thread ingestion run
type ThreadResult struct {
	ThreadsFetched   int `json:"threads_fetched"`
	ThreadsFailed    int `json:"threads_failed"`
	CommentsUpserted int `json:"comments_upserted"`
}

// ThreadIngester fetches comment threads for posts that have never been
// fetched or have grown since the last fetch. One post's thread failing
// does not abort the run; storage errors do.
type ThreadIngester struct {
	client ThreadClient
	store  ContentStorage
	bronze *Bronze
	logger logging.Logger
}

// NewThreadIngester creates a thread ingester. A nil bronze skips raw
// payload capture.
func NewThreadIngester(client ThreadClient, store ContentStorage, bronze *Bronze, logger logging.Logger) *ThreadIngester {
	return &ThreadIngester{client: client, store: store, bronze: bronze, logger: logger}
}

// Run fetches threads for up to maxPosts candidate posts, storing up to
// commentLimit comments per thread.
func (i *ThreadIngester) Run(ctx context.Context, subreddit string, maxPosts, commentLimit int) (ThreadResult, error) {
	var result ThreadResult

	if maxPosts <= 0 {
		maxPosts = 25
	}
	if commentLimit <= 0 {
		commentLimit = 500
	}

	posts, err := i.store.ThreadCandidates(ctx, subreddit, maxPosts)
	if err != nil {
		return result, err
	}

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		comments, err := i.client.CommentThread(ctx, subreddit, post.PostID, commentLimit)
		if err != nil {
			result.ThreadsFailed++
			i.logger.WithFields(logging.Fields{
				"post_id": post.PostID,
				"error":   err.Error(),
			}).Warn("Thread fetch failed, skipping post")
			continue
		}

		blobPath, err := i.bronze.Write(
			fmt.Sprintf("threads/%s/%s/%s.json", subreddit, post.PostID, stamp(time.Now())),
			threadCapture{Subreddit: subreddit, PostID: post.PostID, Comments: comments},
		)
		if err != nil {
			return result, fmt.Errorf("capture thread %s: %w", post.PostID, err)
		}

		for _, comment := range comments {
			if err := i.store.UpsertComment(ctx, comment); err != nil {
				return result, err
			}
			result.CommentsUpserted++
		}

		if err := i.store.MarkThreadFetched(ctx, post.PostID, len(comments), blobPath); err != nil {
			return result, err
		}
		result.ThreadsFetched++
	}

	i.logger.WithFields(logging.Fields{
		"subreddit": subreddit,
		"threads":   result.ThreadsFetched,
		"failed":    result.ThreadsFailed,
		"comments":  result.CommentsUpserted,
	}).Info("Thread ingestion complete")
	return result, nil
}
