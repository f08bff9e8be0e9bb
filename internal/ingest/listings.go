package ingest

import (
	"context"
	"fmt"
	"time"

	"moneyradar/pkg/clients/reddit"
	"moneyradar/pkg/logging"
	"moneyradar/pkg/models"
)

const (
	sourceReddit = "reddit"
	feedNew      = "new"
)

// ListingClient is the slice of the Reddit client listing ingestion needs
type ListingClient interface {
	NewPosts(ctx context.Context, subreddit string, limit int, after string) (*reddit.ListingPage, error)
}

// ContentStorage is the persistence surface shared by the ingesters
type ContentStorage interface {
	UpsertPost(ctx context.Context, p models.Post) error
	UpsertComment(ctx context.Context, c models.Comment) error
	AfterToken(ctx context.Context, source, subreddit, feed string) (string, error)
	SetAfterToken(ctx context.Context, source, subreddit, feed, token string) error
	ThreadCandidates(ctx context.Context, subreddit string, limit int) ([]models.Post, error)
	MarkThreadFetched(ctx context.Context, postID string, commentCount int, blobPath string) error
}

// listingCapture is the bronze payload for one fetched listing page
type listingCapture struct {
	Subreddit string        `json:"subreddit"`
	Feed      string        `json:"feed"`
	After     string        `json:"after"`
	NextAfter string        `json:"next_after"`
	Posts     []models.Post `json:"posts"`
}

// ListingResult reports one listing ingestion run
type ListingResult struct {
	Pages         int `json:"pages"`
	PostsUpserted int `json:"posts_upserted"`
}

// ListingIngester pages through a subreddit's /new feed and persists the
// posts. The pagination cursor survives restarts via ingestion_state, so
// an interrupted backfill resumes where it stopped.
type ListingIngester struct {
	client ListingClient
	store  ContentStorage
	bronze *Bronze
	logger logging.Logger
}

// NewListingIngester creates a listing ingester. A nil bronze skips raw
// payload capture.
func NewListingIngester(client ListingClient, store ContentStorage, bronze *Bronze, logger logging.Logger) *ListingIngester {
	return &ListingIngester{client: client, store: store, bronze: bronze, logger: logger}
}

// Run ingests up to maxPages pages of pageSize posts. It stops early when
// Reddit signals the end of the feed, and resets the stored cursor at that
// point so the next run starts fresh from the newest posts.
func (i *ListingIngester) Run(ctx context.Context, subreddit string, maxPages, pageSize int) (ListingResult, error) {
	var result ListingResult

	if maxPages <= 0 {
		maxPages = 10
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	after, err := i.store.AfterToken(ctx, sourceReddit, subreddit, feedNew)
	if err != nil {
		return result, err
	}

	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		listing, err := i.client.NewPosts(ctx, subreddit, pageSize, after)
		if err != nil {
			return result, fmt.Errorf("fetch listing page %d: %w", page, err)
		}
		result.Pages++

		cursor := after
		if cursor == "" {
			cursor = "start"
		}
		blobPath, err := i.bronze.Write(
			fmt.Sprintf("listings/%s/%s/%s_%s.json", subreddit, feedNew, stamp(time.Now()), cursor),
			listingCapture{Subreddit: subreddit, Feed: feedNew, After: after, NextAfter: listing.After, Posts: listing.Posts},
		)
		if err != nil {
			return result, fmt.Errorf("capture listing page %d: %w", page, err)
		}

		for _, post := range listing.Posts {
			post.RawBlobPath = blobPath
			if err := i.store.UpsertPost(ctx, post); err != nil {
				return result, err
			}
			result.PostsUpserted++
		}

		after = listing.After
		if err := i.store.SetAfterToken(ctx, sourceReddit, subreddit, feedNew, after); err != nil {
			return result, err
		}
		if after == "" {
			break
		}
	}

	i.logger.WithFields(logging.Fields{
		"subreddit": subreddit,
		"pages":     result.Pages,
		"posts":     result.PostsUpserted,
	}).Info("Listing ingestion complete")
	return result, nil
}
