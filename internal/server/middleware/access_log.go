package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/gin-gonic/gin"
)

var quietPrefixes = []string{"/static/", "/images/", "/favicon"}

// HashIP returns a short salted digest so visitors can be told apart in the
// logs without recording their address.
func HashIP(ip, salt string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

// AccessLog writes one structured line per request. Static assets are
// skipped, and visitors sending DNT: 1 are logged without a visitor hash.
func AccessLog(log *slog.Logger, salt string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range quietPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", response.RequestID(c),
		}
		if c.GetHeader("DNT") != "1" {
			attrs = append(attrs, "visitor", HashIP(c.ClientIP(), salt))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", attrs...)
		case status >= 400:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}
