package todo

import (
	"time"

	"github.com/google/uuid"
)

// Precision is the resolution every store persists timestamps at.
const Precision = time.Millisecond

func Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}

// NextUpdatedAt returns a modification time strictly after prev.
func NextUpdatedAt(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(Precision)
	if !now.After(prev) {
		return prev.Add(Precision)
	}
	return now
}

func NewFromCreateRequest(userID string, req CreateTodoRequest, now time.Time) Todo {
	now = now.UTC().Truncate(Precision)

	t := Todo{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Completed:   false,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.Normalize()

	return t
}
