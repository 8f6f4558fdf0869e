package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type TodoService interface {
	List(ctx context.Context, userID, filter string) ([]todo.Todo, error)
	Create(ctx context.Context, userID string, req todo.CreateTodoRequest) (todo.Todo, error)
	Update(ctx context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error)
	Delete(ctx context.Context, userID, id string) error
	Toggle(ctx context.Context, userID, id string) (todo.Todo, error)
}

type TodosHandler struct {
	todos   TodoService
	timeout time.Duration
}

func NewTodosHandler(todos TodoService) *TodosHandler {
	return &TodosHandler{todos: todos, timeout: 3 * time.Second}
}

// withUser runs fn with the authenticated user id and a bounded context.
func (h *TodosHandler) withUser(ctx *gin.Context, fn func(cctx context.Context, userID string)) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Not authorized, no token")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	fn(cctx, userID)
}

func (h *TodosHandler) ListTodos(ctx *gin.Context) {
	h.withUser(ctx, func(cctx context.Context, userID string) {
		items, err := h.todos.List(cctx, userID, ctx.Query("filter"))
		if err != nil {
			RespondDomainError(ctx, err)
			return
		}

		ctx.Header("Cache-Control", "private, no-cache")
		RespondOwnedJSONWithETag(ctx, userID, http.StatusOK, gin.H{
			"success": true,
			"count":   len(items),
			"data":    items,
		})
	})
}

func (h *TodosHandler) CreateTodo(ctx *gin.Context) {
	var req todo.CreateTodoRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.withUser(ctx, func(cctx context.Context, userID string) {
		created, err := h.todos.Create(cctx, userID, req)
		if err != nil {
			RespondDomainError(ctx, err)
			return
		}

		RespondOK(ctx, http.StatusCreated, created)
	})
}

func (h *TodosHandler) UpdateTodo(ctx *gin.Context) {
	var req todo.UpdateTodoRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.withUser(ctx, func(cctx context.Context, userID string) {
		updated, err := h.todos.Update(cctx, userID, ctx.Param("id"), req)
		if err != nil {
			RespondDomainError(ctx, err)
			return
		}

		RespondOK(ctx, http.StatusOK, updated)
	})
}

func (h *TodosHandler) DeleteTodo(ctx *gin.Context) {
	h.withUser(ctx, func(cctx context.Context, userID string) {
		if err := h.todos.Delete(cctx, userID, ctx.Param("id")); err != nil {
			RespondDomainError(ctx, err)
			return
		}

		RespondOK(ctx, http.StatusOK, gin.H{})
	})
}

func (h *TodosHandler) ToggleTodo(ctx *gin.Context) {
	h.withUser(ctx, func(cctx context.Context, userID string) {
		toggled, err := h.todos.Toggle(cctx, userID, ctx.Param("id"))
		if err != nil {
			RespondDomainError(ctx, err)
			return
		}

		RespondOK(ctx, http.StatusOK, toggled)
	})
}
