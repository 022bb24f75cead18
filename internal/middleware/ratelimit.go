package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/logger"
	"github.com/charlesng35/tenancy/pkg/response"
)

var errRateLimited = errors.New("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)

// RateLimit limits requests per (caller, route) within a fixed window. The
// caller is the authenticated user when known, otherwise the client IP.
// A nil store or non-positive limit disables the middleware.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		caller := c.GetString(CtxUserIDKey)
		if caller == "" {
			caller = c.ClientIP()
		}
		key := caller + "|" + c.FullPath()

		count, ttl, err := store.Increment(c.Request.Context(), key, window)
		if err != nil {
			logger.WithModule("http").Warn("rate limit store failed", zap.Error(err))
			c.Next()
			return
		}

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))

		if count > maxRequests {
			response.Error(c, errRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
