package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"

	// the docs page loads swagger-ui from unpkg and boots it inline
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; " +
		"connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; " +
		"style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"

	hsts = "max-age=31536000; includeSubDomains"
)

// SecurityHeaders hardens every response. docsPrefixes are the paths the
// swagger page lives under, one per mount of the API.
func SecurityHeaders(docsPrefixes ...string) gin.HandlerFunc {
	if len(docsPrefixes) == 0 {
		docsPrefixes = []string{"/swagger"}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")

		path := c.Request.URL.Path
		csp := apiCSP
		for _, p := range docsPrefixes {
			if strings.HasPrefix(path, p) {
				csp = docsCSP
				break
			}
		}
		h.Set("Content-Security-Policy", csp)

		// auth responses carry bearer tokens
		if strings.Contains(path, "/auth/") {
			h.Set("Cache-Control", "no-store")
		}

		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", hsts)
		}

		c.Next()
	}
}
