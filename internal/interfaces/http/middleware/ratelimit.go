package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payhole/payments/internal/infrastructure/ratelimit"
	"github.com/payhole/payments/internal/shared/logger"
	"github.com/payhole/payments/internal/shared/utils"
)

// RateLimit enforces limiter per client IP. When the limiter itself fails the
// request is let through so a redis outage never blocks payments.
func RateLimit(limiter ratelimit.RateLimiter, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			log.Warnw("rate limiter unavailable, allowing request",
				"client_ip", clientIP,
				"error", err,
			)
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
