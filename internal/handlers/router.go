package handlers

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the read and admin endpoints under /api. The
// health and metrics endpoints are registered by the shared server setup.
func RegisterRoutes(router *gin.Engine, h *Handlers, admin *AdminHandlers) {
	api := router.Group("/api")
	{
		api.GET("/stats", h.GetStats)
		api.GET("/themes", h.GetThemes)
		api.GET("/themes/:id", h.GetTheme)
		api.GET("/signals", h.GetSignals)
		api.GET("/posts", h.GetPosts)
		api.GET("/posts/:id", h.GetPost)
		api.GET("/trends/themes", h.GetTrendingThemes)
		api.GET("/trends/themes/:id", h.GetThemeTimeseries)
		api.GET("/trends/weekly", h.GetWeeklySummary)
	}

	if admin != nil {
		adminGroup := api.Group("/admin")
		{
			adminGroup.POST("/ingest", admin.TriggerIngest)
			adminGroup.POST("/score", admin.TriggerScore)
			adminGroup.POST("/trends", admin.TriggerTrends)
			adminGroup.POST("/eval", admin.TriggerEval)
		}
	}
}
