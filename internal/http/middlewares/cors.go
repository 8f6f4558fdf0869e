package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsHeaders = "Authorization,Content-Type,If-None-Match,X-Request-Id"
	corsExpose  = "ETag,X-Request-Id"
	corsMaxAge  = "600"
)

// CORSMiddleware allows the listed origins. "*" allows any origin but then
// credentials are not advertised. OPTIONS is answered here since no route
// registers it.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	anyOrigin := false
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			anyOrigin = true
			continue
		}
		allowed[o] = true
	}

	return func(ctx *gin.Context) {
		h := ctx.Writer.Header()
		h.Add("Vary", "Origin")

		origin := ctx.GetHeader("Origin")
		switch {
		case origin == "":
		case allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExpose)
		case anyOrigin:
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Expose-Headers", corsExpose)
		}

		if ctx.Request.Method != http.MethodOptions {
			ctx.Next()
			return
		}

		if h.Get("Access-Control-Allow-Origin") != "" && ctx.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}
		ctx.AbortWithStatus(http.StatusNoContent)
	}
}
