package middleware

import (
	"strconv"

	"lockproxy/internal/metrics"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics counts requests by route template
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
