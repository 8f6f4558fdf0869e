// Package todos enforces who may see and change which todo.
//
// Every operation takes the authenticated user id. Mutations load the record
// first, then check ownership, then validate, then persist, so a missing id
// (ErrNotFound) stays distinguishable from someone else's id (ErrForbidden).
// The load-check-write sequence is not atomic; concurrent writers to the same
// todo resolve as last writer wins, narrowed by owner-scoped writes in the store.
package todos

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/observability"
)

type Store interface {
	Create(ctx context.Context, t todo.Todo) (todo.Todo, error)
	GetByID(ctx context.Context, id string) (todo.Todo, error)
	ListByOwner(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, error)
	Update(ctx context.Context, t todo.Todo) (todo.Todo, error)
	Delete(ctx context.Context, id, userID string) error
}

// ListCache is optional cache-aside storage for listings. Get returns the
// owner's current generation even on a miss; Set must be handed that value.
type ListCache interface {
	Get(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, int64, bool)
	Set(ctx context.Context, userID string, f todo.Filter, gen int64, items []todo.Todo)
	InvalidateOwner(ctx context.Context, userID string)
}

type Service struct {
	store Store
	cache ListCache
	prom  *observability.Prom
	log   *slog.Logger
	now   func() time.Time
}

type Option func(*Service)

func WithCache(c ListCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(p *observability.Prom) Option {
	return func(s *Service) { s.prom = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the user's todos, newest first. Unknown filter keywords list everything.
func (s *Service) List(ctx context.Context, userID, filter string) (items []todo.Todo, err error) {
	defer func() { s.record("list", err) }()

	f := todo.ParseFilter(filter)

	if s.cache == nil {
		return s.store.ListByOwner(ctx, userID, f)
	}

	items, gen, ok := s.cache.Get(ctx, userID, f)
	s.prom.ObserveCache(ok)
	if ok {
		return items, nil
	}

	items, err = s.store.ListByOwner(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, userID, f, gen, items)
	return items, nil
}

func (s *Service) Create(ctx context.Context, userID string, req todo.CreateTodoRequest) (created todo.Todo, err error) {
	defer func() { s.record("create", err) }()

	t := todo.NewFromCreateRequest(userID, req, s.now())

	if err := t.Validate(); err != nil {
		return todo.Todo{}, err
	}

	created, err = s.store.Create(ctx, t)
	if err != nil {
		return todo.Todo{}, err
	}

	s.invalidate(ctx, userID)
	s.log.DebugContext(ctx, "todo created", "todo_id", created.ID, "user_id", userID)

	return created, nil
}

// Update applies a partial change and returns the record as persisted.
func (s *Service) Update(ctx context.Context, userID, id string, req todo.UpdateTodoRequest) (todo.Todo, error) {
	return s.mutate(ctx, "update", userID, id, func(t *todo.Todo) error {
		t.Apply(req)
		t.Normalize()
		return t.Validate()
	})
}

// Toggle flips completion. Two toggles restore the original state.
func (s *Service) Toggle(ctx context.Context, userID, id string) (todo.Todo, error) {
	return s.mutate(ctx, "toggle", userID, id, func(t *todo.Todo) error {
		t.Completed = !t.Completed
		return nil
	})
}

func (s *Service) Delete(ctx context.Context, userID, id string) (err error) {
	defer func() { s.record("delete", err) }()

	if _, err = s.loadOwned(ctx, userID, id); err != nil {
		return err
	}

	if err = s.store.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.invalidate(ctx, userID)
	s.log.DebugContext(ctx, "todo deleted", "todo_id", id, "user_id", userID)

	return nil
}

func (s *Service) mutate(ctx context.Context, op, userID, id string, change func(t *todo.Todo) error) (_ todo.Todo, err error) {
	defer func() { s.record(op, err) }()

	t, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return todo.Todo{}, err
	}

	prev := t.UpdatedAt
	if err = change(&t); err != nil {
		return todo.Todo{}, err
	}

	// owner and creation time are never client controlled
	t.UserID = userID
	t.UpdatedAt = todo.NextUpdatedAt(s.now(), prev)

	updated, err := s.store.Update(ctx, t)
	if err != nil {
		return todo.Todo{}, err
	}

	s.invalidate(ctx, userID)
	return updated, nil
}

// loadOwned resolves id, then checks that it belongs to userID.
func (s *Service) loadOwned(ctx context.Context, userID, id string) (todo.Todo, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return todo.Todo{}, err
	}

	if !t.OwnedBy(userID) {
		s.log.InfoContext(ctx, "todo access denied", "todo_id", id, "user_id", userID)
		return todo.Todo{}, todo.ErrForbidden
	}

	return t, nil
}

func (s *Service) record(op string, err error) {
	s.prom.ObserveTodoOp(op, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case todo.IsValidationError(err):
		return "invalid"
	case errors.Is(err, todo.ErrNotFound):
		return "not_found"
	case errors.Is(err, todo.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.InvalidateOwner(ctx, userID)
	}
}

// IsClientError reports whether err is one of the domain outcomes a caller can act on.
func IsClientError(err error) bool {
	return todo.IsValidationError(err) ||
		errors.Is(err, todo.ErrNotFound) ||
		errors.Is(err, todo.ErrForbidden)
}
