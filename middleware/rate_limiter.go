// middleware/rate_limiter.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trackmeet/api/db"
	logger "github.com/trackmeet/api/logging"
)

func RateLimiter(limit int, per time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		allowed, err := db.RateLimit(c, key, limit, per)
		if err != nil {
			// Rate limiting rides on Redis; if it is down, let traffic
			// through rather than failing every request.
			logger.Warn("Rate limiting unavailable, allowing request", zap.Error(err), zap.String("ip", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Duration", per.String())

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", key),
				zap.Int("limit", limit),
				zap.Duration("per", per))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
