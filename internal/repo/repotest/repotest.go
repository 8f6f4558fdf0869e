// Package repotest holds behaviour checks every todo and user store must pass.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/google/uuid"
)

type TodosRepo interface {
	Create(ctx context.Context, t todo.Todo) (todo.Todo, error)
	GetByID(ctx context.Context, id string) (todo.Todo, error)
	ListByOwner(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, error)
	Update(ctx context.Context, t todo.Todo) (todo.Todo, error)
	Delete(ctx context.Context, id, userID string) error
}

type UsersRepo interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Stores is built fresh for every subtest.
type Stores struct {
	Todos TodosRepo
	Users UsersRepo
}

func NewUser(email string) user.User {
	now := todo.Now()
	return user.User{
		ID:           uuid.NewString(),
		Name:         "Test " + email,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func mustUser(t *testing.T, s Stores, email string) user.User {
	t.Helper()
	u, err := s.Users.Create(context.Background(), NewUser(email))
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func mustTodo(t *testing.T, s Stores, owner, title string, createdAt time.Time) todo.Todo {
	t.Helper()
	td := todo.NewFromCreateRequest(owner, todo.CreateTodoRequest{Title: title}, createdAt)
	out, err := s.Todos.Create(context.Background(), td)
	if err != nil {
		t.Fatalf("create todo %s: %v", title, err)
	}
	return out
}

func ids(items []todo.Todo) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

// RunUsers exercises a users store.
func RunUsers(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("create_and_lookup", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		u := mustUser(t, s, "ada@example.com")

		byEmail, err := s.Users.GetByEmail(ctx, "ada@example.com")
		if err != nil || byEmail.ID != u.ID {
			t.Fatalf("GetByEmail: got %+v err=%v", byEmail, err)
		}

		byID, err := s.Users.GetByID(ctx, u.ID)
		if err != nil || byID.Email != u.Email || byID.PasswordHash != "hash" {
			t.Fatalf("GetByID: got %+v err=%v", byID, err)
		}
		if !byID.CreatedAt.Equal(u.CreatedAt) {
			t.Fatalf("created_at did not round-trip: %v vs %v", byID.CreatedAt, u.CreatedAt)
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		s := newStores(t)
		mustUser(t, s, "dup@example.com")

		_, err := s.Users.Create(context.Background(), NewUser("dup@example.com"))
		if !errors.Is(err, user.ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("email_is_case_sensitive", func(t *testing.T) {
		s := newStores(t)
		mustUser(t, s, "case@example.com")

		if _, err := s.Users.Create(context.Background(), NewUser("Case@example.com")); err != nil {
			t.Fatalf("differently cased email should be distinct: %v", err)
		}
		if _, err := s.Users.GetByEmail(context.Background(), "CASE@example.com"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown casing, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()

		if _, err := s.Users.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.Users.GetByID(ctx, uuid.NewString()); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.Users.GetByID(ctx, "not-a-uuid"); !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
		}
	})
}

// RunTodos exercises a todos store.
func RunTodos(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("list_scoped_and_newest_first", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		a := mustUser(t, s, "a@example.com")
		b := mustUser(t, s, "b@example.com")

		base := todo.Now().Add(-time.Hour)
		first := mustTodo(t, s, a.ID, "first", base)
		second := mustTodo(t, s, a.ID, "second", base.Add(time.Minute))
		other := mustTodo(t, s, b.ID, "other", base.Add(2*time.Minute))

		got, err := s.Todos.ListByOwner(ctx, a.ID, todo.Filter{})
		if err != nil {
			t.Fatalf("ListByOwner: %v", err)
		}
		gotIDs := ids(got)
		if len(gotIDs) != 2 || gotIDs[0] != second.ID || gotIDs[1] != first.ID {
			t.Fatalf("unexpected order/scope: %v", gotIDs)
		}

		got, err = s.Todos.ListByOwner(ctx, b.ID, todo.Filter{})
		if err != nil || len(got) != 1 || got[0].ID != other.ID {
			t.Fatalf("other owner list: %v err=%v", ids(got), err)
		}
	})

	t.Run("list_filter", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		a := mustUser(t, s, "f@example.com")

		open := mustTodo(t, s, a.ID, "open", todo.Now())
		done := mustTodo(t, s, a.ID, "done", todo.Now())
		done.Completed = true
		done.UpdatedAt = todo.NextUpdatedAt(todo.Now(), done.UpdatedAt)
		if _, err := s.Todos.Update(ctx, done); err != nil {
			t.Fatalf("Update: %v", err)
		}

		pending, err := s.Todos.ListByOwner(ctx, a.ID, todo.ParseFilter("pending"))
		if err != nil || len(pending) != 1 || pending[0].ID != open.ID {
			t.Fatalf("pending: %v err=%v", ids(pending), err)
		}

		completed, err := s.Todos.ListByOwner(ctx, a.ID, todo.ParseFilter("completed"))
		if err != nil || len(completed) != 1 || completed[0].ID != done.ID {
			t.Fatalf("completed: %v err=%v", ids(completed), err)
		}
	})

	t.Run("empty_list_is_not_nil", func(t *testing.T) {
		s := newStores(t)
		a := mustUser(t, s, "empty@example.com")

		got, err := s.Todos.ListByOwner(context.Background(), a.ID, todo.Filter{})
		if err != nil {
			t.Fatalf("ListByOwner: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("get_update_round_trip", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		a := mustUser(t, s, "u@example.com")
		td := mustTodo(t, s, a.ID, "title", todo.Now())

		got, err := s.Todos.GetByID(ctx, td.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Title != "title" || got.UserID != a.ID || !got.CreatedAt.Equal(td.CreatedAt) {
			t.Fatalf("unexpected todo: %+v", got)
		}

		got.Title = "renamed"
		got.Description = "desc"
		got.UpdatedAt = todo.NextUpdatedAt(todo.Now(), got.UpdatedAt)

		updated, err := s.Todos.Update(ctx, got)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Title != "renamed" || updated.Description != "desc" || !updated.UpdatedAt.Equal(got.UpdatedAt) {
			t.Fatalf("unexpected updated todo: %+v", updated)
		}
		if !updated.CreatedAt.Equal(td.CreatedAt) {
			t.Fatalf("created_at must not change on update")
		}
	})

	t.Run("update_and_delete_scoped_by_owner", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		a := mustUser(t, s, "owner@example.com")
		b := mustUser(t, s, "intruder@example.com")
		td := mustTodo(t, s, a.ID, "mine", todo.Now())

		stolen := td
		stolen.UserID = b.ID
		stolen.Title = "hijacked"
		if _, err := s.Todos.Update(ctx, stolen); !errors.Is(err, todo.ErrNotFound) {
			t.Fatalf("expected owner-scoped update to miss, got %v", err)
		}
		if err := s.Todos.Delete(ctx, td.ID, b.ID); !errors.Is(err, todo.ErrNotFound) {
			t.Fatalf("expected owner-scoped delete to miss, got %v", err)
		}

		still, err := s.Todos.GetByID(ctx, td.ID)
		if err != nil || still.Title != "mine" {
			t.Fatalf("todo should be untouched: %+v err=%v", still, err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		a := mustUser(t, s, "d@example.com")
		td := mustTodo(t, s, a.ID, "bye", todo.Now())

		if err := s.Todos.Delete(ctx, td.ID, a.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Todos.GetByID(ctx, td.ID); !errors.Is(err, todo.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Todos.Delete(ctx, td.ID, a.ID); !errors.Is(err, todo.ErrNotFound) {
			t.Fatalf("second delete should miss, got %v", err)
		}
	})

	t.Run("missing_ids", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()

		for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
			if _, err := s.Todos.GetByID(ctx, id); !errors.Is(err, todo.ErrNotFound) {
				t.Fatalf("GetByID(%q): expected ErrNotFound, got %v", id, err)
			}
		}
	})
}
