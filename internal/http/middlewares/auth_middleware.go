package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/todohub/internal/actorctx"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const (
	msgNoToken     = "Not authorized, no token"
	msgTokenFailed = "Not authorized, token failed"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
	users  UserResolver
}

func NewAuthMiddleware(tokens TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", msgNoToken)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", msgNoToken)
			return
		}

		userID, err := m.tokens.VerifyToken(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", msgTokenFailed)
			return
		}

		cctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// a deleted account must look exactly like a bad token
		if _, err := m.users.GetByID(cctx, userID); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", msgTokenFailed)
				return
			}

			slog.Default().ErrorContext(c.Request.Context(), "auth user lookup failed", "err", err, "request_id", RequestIDFromContext(c))
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Server Error")
			return
		}

		c.Set(CtxUserID, userID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), userID))

		c.Next()
	}
}
