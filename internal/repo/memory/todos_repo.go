package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/todohub/internal/domain/todo"
)

type TodosRepo struct {
	mu    sync.RWMutex
	items map[string]todo.Todo
}

func NewTodosRepo() *TodosRepo {
	return &TodosRepo{
		items: make(map[string]todo.Todo),
	}
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	r.mu.Lock()
	r.items[t.ID] = t
	r.mu.Unlock()

	return t, nil
}

func (r *TodosRepo) GetByID(ctx context.Context, id string) (todo.Todo, error) {
	r.mu.RLock()
	t, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return todo.Todo{}, todo.ErrNotFound
	}
	return t, nil
}

func (r *TodosRepo) ListByOwner(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, error) {
	r.mu.RLock()
	out := make([]todo.Todo, 0)
	for _, t := range r.items {
		if t.UserID == userID && f.Match(t) {
			out = append(out, t)
		}
	}
	r.mu.RUnlock()

	// newest first, id breaks ties
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	return out, nil
}

// Update overwrites the mutable fields of a todo still owned by t.UserID.
func (r *TodosRepo) Update(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[t.ID]
	if !ok || cur.UserID != t.UserID {
		return todo.Todo{}, todo.ErrNotFound
	}

	cur.Title = t.Title
	cur.Description = t.Description
	cur.Completed = t.Completed
	cur.UpdatedAt = t.UpdatedAt
	r.items[t.ID] = cur

	return cur, nil
}

func (r *TodosRepo) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[id]
	if !ok || cur.UserID != userID {
		return todo.ErrNotFound
	}

	delete(r.items, id)
	return nil
}
