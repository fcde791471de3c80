// Package middleware provides HTTP middleware for cross-cutting concerns.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linelink/linelink-go/internal/logging"
	"github.com/linelink/linelink-go/internal/metrics"
)

// RequestLogger logs every request and feeds the API metrics collector.
// The collector may be nil.
func RequestLogger(logger *logging.StandardLogger, collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.LogAPIRequest(c.Request.Method, path, c.Writer.Status(), duration.Milliseconds())
		if collector != nil {
			collector.RecordAPIRequestMetrics(c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}
