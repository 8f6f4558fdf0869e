package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type TodosRepo struct {
	coll *mongo.Collection
	prom *observability.Prom
}

func NewTodosRepo(s *Store, prom *observability.Prom) *TodosRepo {
	return &TodosRepo{coll: s.db.Collection(todosCollection), prom: prom}
}

func (r *TodosRepo) Create(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	err := r.prom.ObserveDB("todos.create", func() error {
		_, err := r.coll.InsertOne(ctx, t)
		return err
	})
	if err != nil {
		return todo.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

func (r *TodosRepo) GetByID(ctx context.Context, id string) (todo.Todo, error) {
	var t todo.Todo

	err := r.prom.ObserveDB("todos.get", func() error {
		return r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&t)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("get todo: %w", err)
	}

	return normalizeTimes(t), nil
}

func (r *TodosRepo) ListByOwner(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, error) {
	filter := bson.D{{Key: "user", Value: userID}}
	if f.Completed != nil {
		filter = append(filter, bson.E{Key: "completed", Value: *f.Completed})
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	out := make([]todo.Todo, 0)

	err := r.prom.ObserveDB("todos.list", func() error {
		cur, err := r.coll.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	for i := range out {
		out[i] = normalizeTimes(out[i])
	}
	return out, nil
}

func (r *TodosRepo) Update(ctx context.Context, t todo.Todo) (todo.Todo, error) {
	var out todo.Todo

	filter := bson.D{{Key: "_id", Value: t.ID}, {Key: "user", Value: t.UserID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: t.Title},
		{Key: "description", Value: t.Description},
		{Key: "completed", Value: t.Completed},
		{Key: "updated_at", Value: t.UpdatedAt},
	}}}

	err := r.prom.ObserveDB("todos.update", func() error {
		return r.coll.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&out)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return todo.Todo{}, todo.ErrNotFound
		}
		return todo.Todo{}, fmt.Errorf("update todo: %w", err)
	}

	return normalizeTimes(out), nil
}

func (r *TodosRepo) Delete(ctx context.Context, id, userID string) error {
	var deleted int64

	err := r.prom.ObserveDB("todos.delete", func() error {
		res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "user", Value: userID}})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	if deleted == 0 {
		return todo.ErrNotFound
	}
	return nil
}

func normalizeTimes(t todo.Todo) todo.Todo {
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t
}
