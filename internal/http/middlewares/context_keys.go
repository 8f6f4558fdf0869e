package middlewares

import "github.com/gin-gonic/gin"

const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.userID"
)

// UserIDFromContext returns the user id the auth gate resolved for this request.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func RequestIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	// fallback header
	return c.GetHeader(requestIDHeader)
}

// abortWithError writes the standard error envelope and stops the chain.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"error":     message,
		"code":      code,
		"requestId": RequestIDFromContext(c),
	})
}
