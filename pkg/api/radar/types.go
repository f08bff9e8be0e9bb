package radar

import (
	"time"

	"moneyradar/pkg/models"
)

// Stats is the corpus overview returned by /api/stats
type Stats struct {
	Posts         int        `json:"posts"`
	Comments      int        `json:"comments"`
	Signals       int        `json:"signals"`
	Themes        int        `json:"themes"`
	LastCollected *time.Time `json:"last_collected,omitempty"`
}

// PostSummary is one post row in listings and theme detail views.
// SignalScore is nil when the post has not been scored.
type PostSummary struct {
	PostID      string     `json:"post_id"`
	Title       string     `json:"title"`
	Score       int        `json:"score"`
	NumComments int        `json:"num_comments"`
	Permalink   string     `json:"permalink"`
	CreatedUTC  *time.Time `json:"created_utc,omitempty"`
	SignalScore *float64   `json:"signal_score,omitempty"`
}

// PostDetail is the full post view with its comments
type PostDetail struct {
	Post     models.Post      `json:"post"`
	Signal   *models.SignalRecord `json:"signal,omitempty"`
	Comments []models.Comment `json:"comments"`
}

// ThemeDetail is one cluster with its highest-signal posts
type ThemeDetail struct {
	Theme models.Cluster `json:"theme"`
	Posts []PostSummary  `json:"posts"`
}

// ThemesResponse wraps the theme listing
type ThemesResponse struct {
	Themes []models.Cluster `json:"themes"`
}

// SignalsResponse wraps the top-signal listing
type SignalsResponse struct {
	Signals []models.TopSignal `json:"signals"`
}

// PostsResponse wraps a post listing page
type PostsResponse struct {
	Posts []PostSummary `json:"posts"`
}

// TrendingResponse wraps the ranked trending themes
type TrendingResponse struct {
	Themes []models.TrendingTheme `json:"themes"`
}

// TimeseriesResponse wraps one theme's weekly series
type TimeseriesResponse struct {
	ClusterID int                `json:"cluster_id"`
	Weeks     []models.ThemeWeek `json:"weeks"`
}

// WeeklyResponse wraps the all-themes weekly summary
type WeeklyResponse struct {
	Weeks []models.WeeklySummary `json:"weeks"`
}

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string `json:"error"`
}
