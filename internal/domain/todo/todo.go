package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 500
)

var (
	ErrNotFound  = errors.New("todo not found")
	ErrForbidden = errors.New("todo owned by another user")
)

type Todo struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Completed   bool      `json:"completed" bson:"completed"`
	UserID      string    `json:"user" bson:"user"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Filter narrows a listing by completion state. A nil Completed means no filter.
type Filter struct {
	Completed *bool
}

// ParseFilter maps the query keyword onto a Filter. Unknown keywords mean no filter.
func ParseFilter(keyword string) Filter {
	switch keyword {
	case "completed":
		v := true
		return Filter{Completed: &v}
	case "pending":
		v := false
		return Filter{Completed: &v}
	default:
		return Filter{}
	}
}

// Key is the normalized filter name, used for cache keys and logs.
func (f Filter) Key() string {
	switch {
	case f.Completed == nil:
		return "all"
	case *f.Completed:
		return "completed"
	default:
		return "pending"
	}
}

func (f Filter) Match(t Todo) bool {
	return f.Completed == nil || *f.Completed == t.Completed
}

type CreateTodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTodoRequest is a partial update; nil fields are left untouched.
// An explicit JSON null clears title or description, so a null title fails
// validation like an empty one. A null completed is ignored.
type UpdateTodoRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (r *UpdateTodoRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateTodoRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if isNull(raw["title"]) {
		p.Title = new(string)
	}
	if isNull(raw["description"]) {
		p.Description = new(string)
	}

	*r = UpdateTodoRequest(p)
	return nil
}

func isNull(v json.RawMessage) bool {
	return v != nil && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// ValidationError reports a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Normalize trims the text fields in place.
func (t *Todo) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
}

// Validate expects a normalized todo.
func (t Todo) Validate() error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Message: "Please provide a title"}
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLen {
		return &ValidationError{Field: "title", Message: "Title cannot exceed 200 characters"}
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Message: "Description cannot exceed 500 characters"}
	}
	return nil
}

func (t Todo) OwnedBy(userID string) bool {
	return userID != "" && t.UserID == userID
}

// Apply copies the supplied fields of a partial update onto t.
func (t *Todo) Apply(req UpdateTodoRequest) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
}
