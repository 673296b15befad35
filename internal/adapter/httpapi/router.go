package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// NewRouter wires the desk API routes
func NewRouter(h *Handler, hub *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/checklist", h.GetChecklist)
		v1.POST("/checklist/:id/toggle", h.ToggleChecklistItem)

		v1.GET("/draft", h.GetDraft)
		v1.PUT("/draft", h.UpdateDraft)
		v1.PUT("/draft/screenshot", h.AttachScreenshot)
		v1.DELETE("/draft/screenshot", h.ClearScreenshot)
		v1.POST("/draft/submit", h.SubmitDraft)

		v1.GET("/trades", h.ListTrades)
		v1.DELETE("/trades/:id", h.DeleteTrade)
		v1.POST("/pending/:key/retry", h.RetryPending)
		v1.DELETE("/pending/:key", h.DiscardPending)

		v1.GET("/settings", h.GetSettings)
		v1.PUT("/settings", h.UpdateSettings)

		v1.GET("/stats", h.GetStats)
		v1.GET("/ws", hub.ServeWS)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
