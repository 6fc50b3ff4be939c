// File: internal/middleware/ratelimit.go
package middleware

import (
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/platform/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateLimit throttles callers by account when authenticated, otherwise by
// client IP. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := common.GetUserIDFromContext(c); id != uuid.Nil {
			key = "user:" + id.String()
		}
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			common.RespondWithError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
