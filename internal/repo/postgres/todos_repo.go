package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const todoColumns = `id, title, description, completed, user_id, created_at, updated_at`

type TodosRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

// prom may be nil.
func NewTodosRepo(pool *pgxpool.Pool, prom *observability.Prom) *TodosRepo {
	return &TodosRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	err := r.prom.ObserveDB("todos.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO todos (`+todoColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			t.ID, t.Title, t.Description, t.Completed, t.UserID, t.CreatedAt, t.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}

	return t, nil
}

func (r *TodosRepo) GetByID(ctx context.Context, id string) (todo.Todo, error) {
	if !isUUID(id) {
		return todo.Todo{}, todo.ErrNotFound
	}

	var t todo.Todo

	err := r.prom.ObserveDB("todos.get", func() error {
		return scanTodo(r.pool.QueryRow(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = $1`, id), &t)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("get todo: %w", err)
	}

	return t, nil
}

func (r *TodosRepo) ListByOwner(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = $1`
	args := []interface{}{userID}

	if f.Completed != nil {
		query += ` AND completed = $2`
		args = append(args, *f.Completed)
	}

	// stable ordering, newest first
	query += ` ORDER BY created_at DESC, id DESC`

	output := make([]todo.Todo, 0)

	err := r.prom.ObserveDB("todos.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t todo.Todo
			if err := scanTodo(rows, &t); err != nil {
				return err
			}
			output = append(output, t)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	return output, nil
}

// Update writes the mutable fields, scoped to the owner recorded on t.
func (r *TodosRepo) Update(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	var out todo.Todo

	err := r.prom.ObserveDB("todos.update", func() error {
		return scanTodo(r.pool.QueryRow(ctx,
			`UPDATE todos
			SET title = $3,
				description = $4,
				completed = $5,
				updated_at = $6
			WHERE id = $1 AND user_id = $2
			RETURNING `+todoColumns,
			t.ID, t.UserID, t.Title, t.Description, t.Completed, t.UpdatedAt,
		), &out)
	})
	if err != nil {
		// if there are no rows matching the id and owner
		if errors.Is(err, pgx.ErrNoRows) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("update todo: %w", err)
	}

	return out, nil
}

func (r *TodosRepo) Delete(ctx context.Context, id, userID string) error {
	if !isUUID(id) {
		return todo.ErrNotFound
	}

	var affected int64

	err := r.prom.ObserveDB("todos.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return todo.ErrNotFound
	}

	return nil
}

func scanTodo(row pgx.Row, t *todo.Todo) error {
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return nil
}

// ids are uuid columns; anything else cannot match a row
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
