package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crewbook/portal/internal/metrics"
)

// HTTPMetrics records per-route request counts and latency. Routes are
// reported by template (c.FullPath) so path parameters do not explode the
// label space.
func HTTPMetrics(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
