package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"moneyradar/internal/eval"
	"moneyradar/internal/ingest"
	"moneyradar/internal/scoring"
	"moneyradar/pkg/api/radar"
	"moneyradar/pkg/logging"
	"moneyradar/pkg/models"
)

// ListingRunner triggers one listing ingestion run
type ListingRunner interface {
	Run(ctx context.Context, subreddit string, maxPages, pageSize int) (ingest.ListingResult, error)
}

// ThreadRunner triggers one comment-thread ingestion run
type ThreadRunner interface {
	Run(ctx context.Context, subreddit string, maxPosts, commentLimit int) (ingest.ThreadResult, error)
}

// ScoreRunner triggers one signal scoring run
type ScoreRunner interface {
	Run(ctx context.Context, opts scoring.Options) (scoring.Result, error)
}

// TrendsRunner triggers one weekly trend recompute
type TrendsRunner interface {
	Run(ctx context.Context, lookbackWeeks int) (models.TrendsRunResult, error)
}

// EvalRunner runs the signal evaluation regression against a labelled
// test set
type EvalRunner interface {
	RunRegression(ctx context.Context, testSetPath string) (eval.Report, bool, error)
}

// AdminHandlers exposes the pipeline stages as on-demand triggers. These
// run synchronously; the scheduler drives the same runners periodically.
type AdminHandlers struct {
	listings  ListingRunner
	threads   ThreadRunner
	scorer    ScoreRunner
	trends    TrendsRunner
	evaluator EvalRunner
	subreddit string
	logger    logging.Logger
}

// NewAdminHandlers creates the admin trigger handlers
func NewAdminHandlers(listings ListingRunner, threads ThreadRunner, scorer ScoreRunner, trends TrendsRunner, evaluator EvalRunner, subreddit string, logger logging.Logger) *AdminHandlers {
	return &AdminHandlers{listings: listings, threads: threads, scorer: scorer, trends: trends, evaluator: evaluator, subreddit: subreddit, logger: logger}
}

type ingestRequest struct {
	Subreddit    string `json:"subreddit"`
	MaxPages     int    `json:"max_pages"`
	PageSize     int    `json:"page_size"`
	Threads      bool   `json:"threads"`
	MaxPosts     int    `json:"max_posts"`
	CommentLimit int    `json:"comment_limit"`
}

type ingestResponse struct {
	Listing ingest.ListingResult `json:"listing"`
	Threads *ingest.ThreadResult `json:"threads,omitempty"`
}

// TriggerIngest handles POST /api/admin/ingest
func (h *AdminHandlers) TriggerIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, radar.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Subreddit == "" {
		req.Subreddit = h.subreddit
	}

	listing, err := h.listings.Run(c.Request.Context(), req.Subreddit, req.MaxPages, req.PageSize)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Listing ingestion failed")
		c.JSON(http.StatusInternalServerError, radar.ErrorResponse{Error: "Ingestion failed"})
		return
	}

	resp := ingestResponse{Listing: listing}
	if req.Threads {
		threads, err := h.threads.Run(c.Request.Context(), req.Subreddit, req.MaxPosts, req.CommentLimit)
		if err != nil {
			h.logger.WithField("error", err.Error()).Error("Thread ingestion failed")
			c.JSON(http.StatusInternalServerError, radar.ErrorResponse{Error: "Thread ingestion failed"})
			return
		}
		resp.Threads = &threads
	}
	c.JSON(http.StatusOK, resp)
}

type scoreRequest struct {
	Subreddit    string `json:"subreddit"`
	Scope        string `json:"scope"`
	Method       string `json:"method"`
	Force        bool   `json:"force"`
	PostLimit    int    `json:"post_limit"`
	CommentLimit int    `json:"comment_limit"`
}

// TriggerScore handles POST /api/admin/score
func (h *AdminHandlers) TriggerScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, radar.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Subreddit == "" {
		req.Subreddit = h.subreddit
	}

	result, err := h.scorer.Run(c.Request.Context(), scoring.Options{
		Subreddit:    req.Subreddit,
		Scope:        scoring.Scope(req.Scope),
		Method:       scoring.Method(req.Method),
		Force:        req.Force,
		PostLimit:    req.PostLimit,
		CommentLimit: req.CommentLimit,
	})
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Scoring run failed")
		c.JSON(http.StatusInternalServerError, radar.ErrorResponse{Error: "Scoring failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type trendsRequest struct {
	LookbackWeeks int `json:"lookback_weeks"`
}

// TriggerTrends handles POST /api/admin/trends
func (h *AdminHandlers) TriggerTrends(c *gin.Context) {
	var req trendsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, radar.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.trends.Run(c.Request.Context(), req.LookbackWeeks)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Trend recompute failed")
		c.JSON(http.StatusInternalServerError, radar.ErrorResponse{Error: "Trend recompute failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

type evalRequest struct {
	TestSetPath string `json:"test_set_path"`
}

type evalResponse struct {
	Report eval.Report `json:"report"`
	Passed bool        `json:"passed"`
}

// TriggerEval handles POST /api/admin/eval
func (h *AdminHandlers) TriggerEval(c *gin.Context) {
	var req evalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, radar.ErrorResponse{Error: "Invalid request body"})
		return
	}

	report, passed, err := h.evaluator.RunRegression(c.Request.Context(), req.TestSetPath)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Evaluation run failed")
		c.JSON(http.StatusInternalServerError, radar.ErrorResponse{Error: "Evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, evalResponse{Report: report, Passed: passed})
}
