package models

import "time"

// ContentType discriminates posts from comments in composite-keyed tables
type ContentType string

const (
	ContentTypePost    ContentType = "post"
	ContentTypeComment ContentType = "comment"
)

// Post represents an ingested Reddit submission. RawBlobPath points at the
// bronze capture of the listing page the post arrived on, when capture is
// enabled.
type Post struct {
	PostID       string     `json:"post_id"`
	Subreddit    string     `json:"subreddit"`
	Title        string     `json:"title"`
	Body         string     `json:"body,omitempty"`
	CreatedUTC   *time.Time `json:"created_utc,omitempty"`
	Score        int        `json:"score"`
	NumComments  int        `json:"num_comments"`
	Permalink    string     `json:"permalink"`
	RawBlobPath  string     `json:"raw_blob_path,omitempty"`
	CollectedAt  time.Time  `json:"collected_at"`
}

// Comment represents one flattened comment from a post's thread
type Comment struct {
	CommentID   string     `json:"comment_id"`
	PostID      string     `json:"post_id"`
	ParentID    string     `json:"parent_id,omitempty"`
	Depth       int        `json:"depth"`
	Body        string     `json:"body"`
	CreatedUTC  *time.Time `json:"created_utc,omitempty"`
	Score       int        `json:"score"`
	CollectedAt time.Time  `json:"collected_at"`
}

// Cluster is a theme discovered by the external topic-model stage.
// Cluster -1 is the noise bucket and is excluded from trend computation.
type Cluster struct {
	ClusterID int      `json:"cluster_id"`
	Label     string   `json:"label"`
	TopTerms  []string `json:"top_terms"`
	DocCount  int      `json:"doc_count"`
}

// NoiseClusterID is the reserved id for unclustered content
const NoiseClusterID = -1
