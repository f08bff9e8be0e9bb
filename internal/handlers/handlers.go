package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"moneyradar/internal/store"
	"moneyradar/pkg/api/radar"
	"moneyradar/pkg/logging"
	"moneyradar/pkg/models"
)

// ReadStorage serves the corpus browsing endpoints
type ReadStorage interface {
	Stats(ctx context.Context) (radar.Stats, error)
	Themes(ctx context.Context, limit int) ([]models.Cluster, error)
	Theme(ctx context.Context, clusterID int) (models.Cluster, error)
	ThemePosts(ctx context.Context, clusterID, limit int) ([]radar.PostSummary, error)
	Posts(ctx context.Context, subreddit string, limit, offset int) ([]radar.PostSummary, error)
	Post(ctx context.Context, postID string) (radar.PostDetail, error)
}

// SignalReader serves the top-signal listing
type SignalReader interface {
	TopSignals(ctx context.Context, subreddit string, filter store.TopSignalsFilter, limit int) ([]models.TopSignal, error)
}

// TrendReader serves the trend endpoints
type TrendReader interface {
	TrendingThemes(ctx context.Context, weeksBack, minDocs, limit int) ([]models.TrendingTheme, error)
	ThemeTimeseries(ctx context.Context, clusterID, weeksBack int) ([]models.ThemeWeek, error)
	WeeklySummary(ctx context.Context, weeksBack int) ([]models.WeeklySummary, error)
}

// Handlers holds the read-side endpoint dependencies
type Handlers struct {
	reads     ReadStorage
	signals   SignalReader
	trends    TrendReader
	subreddit string
	logger    logging.Logger
}

// NewHandlers creates the read-side handlers. subreddit is the default
// for endpoints that accept a subreddit query parameter.
func NewHandlers(reads ReadStorage, signals SignalReader, trends TrendReader, subreddit string, logger logging.Logger) *Handlers {
	return &Handlers{reads: reads, signals: signals, trends: trends, subreddit: subreddit, logger: logger}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func (h *Handlers) serverError(c *gin.Context, msg string, err error) {
	h.logger.WithField("error", err.Error()).Error(msg)
	c.JSON(http.StatusInternalServerError, radar.ErrorResponse{Error: msg})
}

// GetStats handles GET /api/stats
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.reads.Stats(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to load stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetThemes handles GET /api/themes
func (h *Handlers) GetThemes(c *gin.Context) {
	themes, err := h.reads.Themes(c.Request.Context(), intQuery(c, "limit", 50))
	if err != nil {
		h.serverError(c, "Failed to load themes", err)
		return
	}
	c.JSON(http.StatusOK, radar.ThemesResponse{Themes: themes})
}

// GetTheme handles GET /api/themes/:id
func (h *Handlers) GetTheme(c *gin.Context) {
	clusterID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, radar.ErrorResponse{Error: "Invalid theme id"})
		return
	}

	theme, err := h.reads.Theme(c.Request.Context(), clusterID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, radar.ErrorResponse{Error: "Theme not found"})
		return
	}
	if err != nil {
		h.serverError(c, "Failed to load theme", err)
		return
	}

	posts, err := h.reads.ThemePosts(c.Request.Context(), clusterID, intQuery(c, "limit", 20))
	if err != nil {
		h.serverError(c, "Failed to load theme posts", err)
		return
	}
	c.JSON(http.StatusOK, radar.ThemeDetail{Theme: theme, Posts: posts})
}

// GetSignals handles GET /api/signals
func (h *Handlers) GetSignals(c *gin.Context) {
	subreddit := c.DefaultQuery("subreddit", h.subreddit)

	var filter store.TopSignalsFilter
	if raw := c.Query("min_score"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			filter.MinScore = v
		}
	}
	switch c.Query("content_type") {
	case "post":
		filter.ContentType = models.ContentTypePost
	case "comment":
		filter.ContentType = models.ContentTypeComment
	}

	signals, err := h.signals.TopSignals(c.Request.Context(), subreddit, filter, intQuery(c, "limit", 50))
	if err != nil {
		h.serverError(c, "Failed to load signals", err)
		return
	}
	c.JSON(http.StatusOK, radar.SignalsResponse{Signals: signals})
}

// GetPosts handles GET /api/posts
func (h *Handlers) GetPosts(c *gin.Context) {
	subreddit := c.DefaultQuery("subreddit", h.subreddit)
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	posts, err := h.reads.Posts(c.Request.Context(), subreddit, intQuery(c, "limit", 50), offset)
	if err != nil {
		h.serverError(c, "Failed to load posts", err)
		return
	}
	c.JSON(http.StatusOK, radar.PostsResponse{Posts: posts})
}

// GetPost handles GET /api/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	detail, err := h.reads.Post(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, radar.ErrorResponse{Error: "Post not found"})
		return
	}
	if err != nil {
		h.serverError(c, "Failed to load post", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetTrendingThemes handles GET /api/trends/themes
func (h *Handlers) GetTrendingThemes(c *gin.Context) {
	themes, err := h.trends.TrendingThemes(c.Request.Context(),
		intQuery(c, "weeks", 8), intQuery(c, "min_docs", 5), intQuery(c, "limit", 20))
	if err != nil {
		h.serverError(c, "Failed to load trending themes", err)
		return
	}
	c.JSON(http.StatusOK, radar.TrendingResponse{Themes: themes})
}

// GetThemeTimeseries handles GET /api/trends/themes/:id
func (h *Handlers) GetThemeTimeseries(c *gin.Context) {
	clusterID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, radar.ErrorResponse{Error: "Invalid theme id"})
		return
	}
	weeks, err := h.trends.ThemeTimeseries(c.Request.Context(), clusterID, intQuery(c, "weeks", 12))
	if err != nil {
		h.serverError(c, "Failed to load theme timeseries", err)
		return
	}
	c.JSON(http.StatusOK, radar.TimeseriesResponse{ClusterID: clusterID, Weeks: weeks})
}

// GetWeeklySummary handles GET /api/trends/weekly
func (h *Handlers) GetWeeklySummary(c *gin.Context) {
	weeks, err := h.trends.WeeklySummary(c.Request.Context(), intQuery(c, "weeks", 12))
	if err != nil {
		h.serverError(c, "Failed to load weekly summary", err)
		return
	}
	c.JSON(http.StatusOK, radar.WeeklyResponse{Weeks: weeks})
}
