// Package client talks to the todohub HTTP API on behalf of one Session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/domain/user"
)

const DefaultBaseURL = "http://localhost:5000/api"

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New binds a client to session. A nil session starts logged out.
func New(baseURL string, session *Session, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if session == nil {
		session = &Session{}
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

type authResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	RequestID string          `json:"requestId"`
}

// Register creates an account and logs the session in.
func (c *Client) Register(ctx context.Context, name, email, password string) (Profile, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.authenticate(ctx, "/auth/register", body, "Registration failed")
}

func (c *Client) Login(ctx context.Context, email, password string) (Profile, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", body, "Login failed")
}

// Logout forgets the token and cached profile. Tokens are stateless, so
// nothing is sent to the server.
func (c *Client) Logout() {
	c.session.clear()
}

func (c *Client) Me(ctx context.Context) (user.User, error) {
	var u user.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, true, "Could not load profile", &u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// ListTodos returns the user's todos; filter is "", "completed" or "pending".
func (c *Client) ListTodos(ctx context.Context, filter string) ([]todo.Todo, error) {
	path := "/todos"
	if filter != "" {
		path += "?" + url.Values{"filter": {filter}}.Encode()
	}

	var items []todo.Todo
	if err := c.do(ctx, http.MethodGet, path, nil, true, "Could not load todos", &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []todo.Todo{}
	}
	return items, nil
}

func (c *Client) CreateTodo(ctx context.Context, req todo.CreateTodoRequest) (todo.Todo, error) {
	var t todo.Todo
	err := c.do(ctx, http.MethodPost, "/todos", req, true, "Could not create todo", &t)
	return t, err
}

func (c *Client) UpdateTodo(ctx context.Context, id string, req todo.UpdateTodoRequest) (todo.Todo, error) {
	var t todo.Todo
	err := c.do(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), req, true, "Could not update todo", &t)
	return t, err
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, true, "Could not delete todo", nil)
}

func (c *Client) ToggleTodo(ctx context.Context, id string) (todo.Todo, error) {
	var t todo.Todo
	err := c.do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id)+"/toggle", nil, true, "Could not update todo", &t)
	return t, err
}

func (c *Client) authenticate(ctx context.Context, path string, body any, fallback string) (Profile, error) {
	var res authResult
	if err := c.do(ctx, http.MethodPost, path, body, false, fallback, &res); err != nil {
		return Profile{}, err
	}
	if res.Token == "" {
		return Profile{}, &APIError{Status: http.StatusOK, Message: fallback}
	}

	p := Profile{ID: res.ID, Name: res.Name, Email: res.Email}
	c.session.Token = res.Token
	c.session.User = &p

	return p, nil
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, in any, authed bool, fallback string, out any) error {
	if authed && !c.session.LoggedIn() {
		return ErrNotLoggedIn
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: fallback}
		if decodeErr == nil && env.Error != "" {
			apiErr.Message = env.Error
			apiErr.Code = env.Code
			apiErr.RequestID = env.RequestID
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
