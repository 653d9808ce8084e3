package middleware

import (
	"time"

	"storekeep/internal/monitor"

	"github.com/gin-gonic/gin"
)

// Metrics counts every request and records its latency against the matched route.
func Metrics(mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		mon.Record(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
