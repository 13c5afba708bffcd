package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// NewRouter constructs a Gin engine with registered routes. topics may be
// nil when no feed scheduler is configured.
func NewRouter(jobs JobService, topics TopicService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	// Register resource routers
	RegisterJobRoutes(r, jobs)
	if topics != nil {
		RegisterTopicRoutes(r, topics)
	}
	RegisterHealthRoutes(r)
	return r
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
