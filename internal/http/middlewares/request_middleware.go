package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

// RequestID honours a caller supplied X-Request-Id of sane length and mints
// one otherwise. The id is echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		ctx.Set(CtxRequestID, id)
		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Next()
	}
}

// RequestLogger writes one "http_request" record per request after it ran.
// The acting user is added by the logger's context handler.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := ctx.Writer.Status()

		attrs := []slog.Attr{
			slog.String("method", ctx.Request.Method),
			slog.String("route", route),
			slog.String("path", ctx.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", max(ctx.Writer.Size(), 0)),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", ctx.ClientIP()),
			slog.String("request_id", RequestIDFromContext(ctx)),
		}
		if len(ctx.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", ctx.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status == 429:
			level = slog.LevelWarn
		}

		log.LogAttrs(ctx.Request.Context(), level, "http_request", attrs...)
	}
}
