package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/geocoder89/todohub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	tokens     TokenIssuer
	now        func() time.Time
}

func NewAuthHandler(users UserReader, userWriter UserWriter, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		tokens:     tokens,
		now:        time.Now,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// AuthResponse is the profile plus bearer token returned by register and login.
type AuthResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	now := h.now().UTC().Truncate(time.Millisecond)

	u, err := h.userWriter.Create(cctx, user.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	token, err := h.tokens.GenerateToken(u.ID)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	slog.Default().InfoContext(ctx.Request.Context(), "user registered", "user_id", u.ID)

	RespondOK(ctx, http.StatusCreated, AuthResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Token: token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondDomainError(ctx, auth.ErrInvalidCredentials)
			return
		}
		RespondDomainError(ctx, err)
		return
	}

	ok, err := security.CheckPassword(foundUser.PasswordHash, req.Password)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}
	if !ok {
		RespondDomainError(ctx, auth.ErrInvalidCredentials)
		return
	}

	token, err := h.tokens.GenerateToken(foundUser.ID)
	if err != nil {
		RespondDomainError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, AuthResponse{
		ID:    foundUser.ID,
		Name:  foundUser.Name,
		Email: foundUser.Email,
		Token: token,
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authorized, no token")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Not authorized, token failed")
			return
		}
		RespondDomainError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, u)
}
