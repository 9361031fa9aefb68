package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds the baseline browser hardening headers. The policy
// allows the web3forms endpoint, the page's own websocket, and the remix
// icon CDN the page uses.
func SecurityHeaders(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secure {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
		c.Header("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; "+
				"img-src 'self' data:; "+
				"font-src 'self' https://cdn.jsdelivr.net; "+
				"connect-src 'self' ws: wss: https://api.web3forms.com; "+
				"frame-ancestors 'none'; "+
				"base-uri 'self'; "+
				"form-action 'self'")

		c.Next()
	}
}
