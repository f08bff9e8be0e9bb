package reddit

import (
	"encoding/json"
	"time"

	"moneyradar/pkg/models"
)

const (
	kindPost    = "t3"
	kindComment = "t1"
)

// thing is Reddit's generic envelope. Children carry raw JSON because a
// t1 comment's replies field is either a nested thing or the empty string.
type thing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []child `json:"children"`
	} `json:"data"`
}

type child struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
}

type commentData struct {
	ID         string          `json:"id"`
	ParentID   string          `json:"parent_id"`
	Body       string          `json:"body"`
	CreatedUTC float64         `json:"created_utc"`
	Score      int             `json:"score"`
	Replies    json.RawMessage `json:"replies"`
}

// ListingPage is one page of a subreddit listing. After is empty on the
// final page.
type ListingPage struct {
	After string
	Posts []models.Post
}

// ThreadComment is one flattened comment from a post's thread
type ThreadComment = models.Comment

func epochToTime(epoch float64) *time.Time {
	if epoch <= 0 {
		return nil
	}
	t := time.Unix(int64(epoch), 0).UTC()
	return &t
}

func (p postData) toPost(subreddit string) models.Post {
	return models.Post{
		PostID:      p.ID,
		Subreddit:   subreddit,
		Title:       p.Title,
		Body:        p.SelfText,
		CreatedUTC:  epochToTime(p.CreatedUTC),
		Score:       p.Score,
		NumComments: p.NumComments,
		Permalink:   p.Permalink,
	}
}

func (c commentData) toComment(postID string, depth int) models.Comment {
	return models.Comment{
		CommentID:  c.ID,
		PostID:     postID,
		ParentID:   c.ParentID,
		Depth:      depth,
		Body:       c.Body,
		CreatedUTC: epochToTime(c.CreatedUTC),
		Score:      c.Score,
	}
}
