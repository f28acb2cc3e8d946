package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/piyushdolas8/skillswap/shared/logger"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		// Tokens may ride in the query string on the WebSocket endpoint.
		if raw != "" && c.Query("token") == "" {
			path = path + "?" + raw
		}

		logger.Infof("[%s] %s - %d (%v)", c.Request.Method, path, statusCode, latency)
	}
}
