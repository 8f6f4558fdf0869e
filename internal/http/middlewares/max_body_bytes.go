package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes caps request bodies at 1 MiB.
const DefaultMaxBodyBytes int64 = 1 << 20

// MaxBodyBytes rejects a declared oversize body up front and caps streamed
// bodies; BindJSON turns a tripped cap into the same 413.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		req := ctx.Request
		if req.Body == nil || req.Body == http.NoBody {
			ctx.Next()
			return
		}

		if req.ContentLength > limit {
			abortWithError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return
		}

		req.Body = http.MaxBytesReader(ctx.Writer, req.Body, limit)
		ctx.Next()
	}
}
