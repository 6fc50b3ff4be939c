// File: internal/middleware/metrics.go
package middleware

import (
	"time"

	"launchpad_backend/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records one observation per request, labelled by route template.
func Metrics(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
