package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shortsfactory/types"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TopicService previews feed topics and triggers scheduled runs by hand.
type TopicService interface {
	Topics(ctx context.Context, feedURL string, n int) ([]types.Topic, error)
	RunOnce(ctx context.Context) ([]types.JobStatus, error)
}

// RegisterTopicRoutes registers feed topic endpoints.
func RegisterTopicRoutes(r *gin.Engine, svc TopicService) {
	h := &topicsController{topics: svc}
	g := r.Group("/api/topics")
	g.GET("", h.handlePreview)
	g.POST("/refresh", h.handleRefresh)
}

type topicsController struct {
	topics TopicService
}

// handlePreview lists topics from ?feed= (preset name or URL) without
// submitting anything.
func (h *topicsController) handlePreview(c *gin.Context) {
	feed := c.Query("feed")
	if feed == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feed query parameter is required"})
		return
	}
	n := 10
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}

	list, err := h.topics.Topics(c.Request.Context(), feed, n)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": list, "count": len(list)})
}

// handleRefresh runs the feed scheduler once, asynchronously, and returns 202
// Accepted immediately.
func (h *topicsController) handleRefresh(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := h.topics.RunOnce(ctx); err != nil {
			log.Warn().Err(err).Msg("manual topic refresh failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}
