package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/OxMxDev/portfolio/internal/ratelimit"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/gin-gonic/gin"
)

// RateLimit rejects a client IP past the limiter's budget with 429.
func RateLimit(l *ratelimit.Limiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Error("rate limiter unavailable", "error", err, "request_id", response.RequestID(c))
			response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := int(time.Until(d.ResetAt).Seconds())
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
