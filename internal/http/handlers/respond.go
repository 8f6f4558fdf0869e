package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func RespondOK(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		RequestID: middlewares.RequestIDFromContext(ctx),
		Details:   details,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// RespondDomainError maps a service or store error onto the HTTP contract.
// Anything unrecognised is logged and answered with a generic 500.
func RespondDomainError(ctx *gin.Context, err error) {
	var ve *todo.ValidationError

	switch {
	case errors.As(err, &ve):
		RespondBadRequest(ctx, ve.Message, gin.H{"field": ve.Field})
	case errors.Is(err, todo.ErrNotFound):
		RespondNotFound(ctx, "Todo not found")
	case errors.Is(err, todo.ErrForbidden):
		RespondUnAuthorized(ctx, "forbidden", "Not authorized")
	case errors.Is(err, user.ErrEmailTaken):
		RespondError(ctx, http.StatusBadRequest, "email_taken", "User already exists", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
			"err", err,
			"route", ctx.FullPath(),
			"request_id", middlewares.RequestIDFromContext(ctx),
		)
		RespondInternal(ctx, "Server Error")
	}
}
