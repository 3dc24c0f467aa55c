package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/upasthit/attendance-api/internal/service"
)

// Metrics times every request and records it against the route template so
// parameterised paths share one label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			// Unregistered routes (404s) fall back to the raw path.
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
