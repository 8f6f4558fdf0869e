package middlewares

import (
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON answers 415 to a POST, PUT or PATCH whose body is not JSON.
// A write with neither body nor Content-Type (PATCH /todos/:id/toggle) passes.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		ct := c.GetHeader("Content-Type")
		if ct == "" && c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		if !isJSONMediaType(ct) {
			abortWithError(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "Content-Type must be application/json")
			return
		}
		c.Next()
	}
}

// application/json or any application/*+json, parameters ignored
func isJSONMediaType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" ||
		(strings.HasPrefix(mt, "application/") && strings.HasSuffix(mt, "+json"))
}
