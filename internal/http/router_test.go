package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/todohub/internal/auth"
	"github.com/geocoder89/todohub/internal/cache"
	"github.com/geocoder89/todohub/internal/config"
	httpx "github.com/geocoder89/todohub/internal/http"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/geocoder89/todohub/internal/repo/memory"
	"github.com/geocoder89/todohub/internal/security"
	"github.com/geocoder89/todohub/internal/todos"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router http.Handler
	tokens *auth.Manager
}

func newTestServer(t *testing.T, basePath string) *testServer {
	t.Helper()
	security.Cost = bcrypt.MinCost

	cfg := config.Config{
		Env:                   "dev",
		APIBasePath:           basePath,
		CORSOrigins:           []string{"http://localhost:5173"},
		AuthRateLimit:         1000,
		AuthRateWindowSeconds: 60,
	}

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	users := memory.NewUsersRepo()
	tokens := auth.NewManager("test-secret", time.Hour)
	svc := todos.NewService(memory.NewTodosRepo(),
		todos.WithCache(cache.NewMemoryListCache(time.Minute, 0)),
		todos.WithMetrics(prom),
	)

	r := httpx.NewRouter(httpx.Deps{
		Config:   cfg,
		Users:    users,
		Todos:    svc,
		Tokens:   tokens,
		Prom:     prom,
		Gatherer: reg,
	})

	return &testServer{router: r, tokens: tokens}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, apiResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid json %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, resp
}

type authData struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type todoData struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	User      string    `json:"user"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *testServer) register(t *testing.T, prefix, name, email string) authData {
	t.Helper()

	body := `{"name":"` + name + `","email":"` + email + `","password":"secret1"}`
	status, resp := s.do(t, http.MethodPost, prefix+"/auth/register", "", body)
	if status != http.StatusCreated {
		t.Fatalf("register %s: got %d %+v", email, status, resp)
	}

	var a authData
	if err := json.Unmarshal(resp.Data, &a); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	return a
}

func TestEndToEnd_TodoLifecycle(t *testing.T) {
	for _, prefix := range []string{"", "/api"} {
		name := prefix
		if name == "" {
			name = "root"
		}

		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, "/api")
			alice := s.register(t, prefix, "Alice", "alice@example.com")

			status, resp := s.do(t, http.MethodPost, prefix+"/todos", alice.Token, `{"title":"Buy milk"}`)
			if status != http.StatusCreated {
				t.Fatalf("create: got %d %+v", status, resp)
			}
			var created todoData
			_ = json.Unmarshal(resp.Data, &created)
			if created.Completed || created.User != alice.ID {
				t.Fatalf("unexpected created todo: %+v", created)
			}

			status, resp = s.do(t, http.MethodGet, prefix+"/todos", alice.Token, "")
			if status != http.StatusOK || resp.Count != 1 {
				t.Fatalf("list: got %d count=%d", status, resp.Count)
			}

			status, resp = s.do(t, http.MethodPatch, prefix+"/todos/"+created.ID+"/toggle", alice.Token, "")
			if status != http.StatusOK {
				t.Fatalf("toggle: got %d %+v", status, resp)
			}
			var toggled todoData
			_ = json.Unmarshal(resp.Data, &toggled)
			if !toggled.Completed || !toggled.UpdatedAt.After(created.UpdatedAt) {
				t.Fatalf("toggle did not complete and advance updatedAt: %+v", toggled)
			}

			_, resp = s.do(t, http.MethodGet, prefix+"/todos?filter=completed", alice.Token, "")
			if resp.Count != 1 {
				t.Fatalf("completed filter: got %d", resp.Count)
			}
			_, resp = s.do(t, http.MethodGet, prefix+"/todos?filter=pending", alice.Token, "")
			if resp.Count != 0 {
				t.Fatalf("pending filter: got %d", resp.Count)
			}

			status, resp = s.do(t, http.MethodDelete, prefix+"/todos/"+created.ID, alice.Token, "")
			if status != http.StatusOK || string(resp.Data) != "{}" {
				t.Fatalf("delete: got %d %s", status, resp.Data)
			}

			_, resp = s.do(t, http.MethodGet, prefix+"/todos", alice.Token, "")
			if resp.Count != 0 || string(resp.Data) != "[]" {
				t.Fatalf("expected empty list after delete, got %s", resp.Data)
			}
		})
	}
}

func TestEndToEnd_CrossUserAccess(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.register(t, "", "Alice", "alice@example.com")
	bob := s.register(t, "", "Bob", "bob@example.com")

	_, resp := s.do(t, http.MethodPost, "/todos", alice.Token, `{"title":"private"}`)
	var td todoData
	_ = json.Unmarshal(resp.Data, &td)

	for _, c := range []struct{ method, path, body string }{
		{http.MethodPut, "/todos/" + td.ID, `{"title":"mine now"}`},
		{http.MethodPatch, "/todos/" + td.ID + "/toggle", ""},
		{http.MethodDelete, "/todos/" + td.ID, ""},
	} {
		status, resp := s.do(t, c.method, c.path, bob.Token, c.body)
		if status != http.StatusUnauthorized || resp.Error != "Not authorized" {
			t.Fatalf("%s %s as bob: got %d %+v", c.method, c.path, status, resp)
		}
	}

	_, resp = s.do(t, http.MethodGet, "/todos", bob.Token, "")
	if resp.Count != 0 {
		t.Fatalf("bob must not see alice's todos")
	}

	_, resp = s.do(t, http.MethodGet, "/todos", alice.Token, "")
	var items []todoData
	_ = json.Unmarshal(resp.Data, &items)
	if len(items) != 1 || items[0].Title != "private" || items[0].Completed {
		t.Fatalf("alice's todo changed: %+v", items)
	}

	status, resp := s.do(t, http.MethodPatch, "/todos/00000000-0000-0000-0000-000000000000/toggle", alice.Token, "")
	if status != http.StatusNotFound || resp.Error != "Todo not found" {
		t.Fatalf("unknown id: got %d %+v", status, resp)
	}
}

func TestEndToEnd_AuthFlows(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.register(t, "", "Alice", "alice@example.com")

	status, resp := s.do(t, http.MethodPost, "/auth/register", "", `{"name":"Again","email":"alice@example.com","password":"secret1"}`)
	if status != http.StatusBadRequest || resp.Error != "User already exists" {
		t.Fatalf("duplicate register: got %d %+v", status, resp)
	}

	status, resp = s.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"wrong-pass"}`)
	if status != http.StatusUnauthorized || resp.Error != "Invalid credentials" {
		t.Fatalf("bad login: got %d %+v", status, resp)
	}

	status, resp = s.do(t, http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"secret1"}`)
	if status != http.StatusOK {
		t.Fatalf("login: got %d %+v", status, resp)
	}
	var logged authData
	_ = json.Unmarshal(resp.Data, &logged)
	if logged.ID != alice.ID || logged.Token == "" {
		t.Fatalf("unexpected login data: %+v", logged)
	}

	status, resp = s.do(t, http.MethodGet, "/auth/me", logged.Token, "")
	if status != http.StatusOK || strings.Contains(string(resp.Data), "password") {
		t.Fatalf("me: got %d %s", status, resp.Data)
	}

	status, resp = s.do(t, http.MethodGet, "/todos", "", "")
	if status != http.StatusUnauthorized || resp.Error != "Not authorized, no token" {
		t.Fatalf("no token: got %d %+v", status, resp)
	}

	status, resp = s.do(t, http.MethodGet, "/todos", "garbage", "")
	if status != http.StatusUnauthorized || resp.Error != "Not authorized, token failed" {
		t.Fatalf("bad token: got %d %+v", status, resp)
	}

	// a validly signed token for a user that does not exist
	ghost, _ := s.tokens.GenerateToken("no-such-user")
	status, resp = s.do(t, http.MethodGet, "/todos", ghost, "")
	if status != http.StatusUnauthorized || resp.Error != "Not authorized, token failed" {
		t.Fatalf("ghost user: got %d %+v", status, resp)
	}
}

func TestEndToEnd_ValidationAndContentType(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.register(t, "", "Alice", "alice@example.com")

	status, resp := s.do(t, http.MethodPost, "/todos", alice.Token, `{"title":"   "}`)
	if status != http.StatusBadRequest || resp.Error != "Please provide a title" {
		t.Fatalf("blank title: got %d %+v", status, resp)
	}

	status, resp = s.do(t, http.MethodPost, "/todos", alice.Token, `{"title":"`+strings.Repeat("x", 201)+`"}`)
	if status != http.StatusBadRequest || resp.Error != "Title cannot exceed 200 characters" {
		t.Fatalf("long title: got %d %+v", status, resp)
	}

	status, resp = s.do(t, http.MethodPost, "/todos", alice.Token, `{"title":"Buy milk"}`)
	if status != http.StatusCreated {
		t.Fatalf("create: got %d %+v", status, resp)
	}
	var created todoData
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}

	status, resp = s.do(t, http.MethodPut, "/todos/"+created.ID, alice.Token, `{"title":null}`)
	if status != http.StatusBadRequest || resp.Error != "Please provide a title" {
		t.Fatalf("null title: got %d %+v", status, resp)
	}

	status, resp = s.do(t, http.MethodPut, "/todos/"+created.ID, alice.Token, `{"completed":true}`)
	if status != http.StatusOK {
		t.Fatalf("update without title: got %d %+v", status, resp)
	}
	var updated todoData
	if err := json.Unmarshal(resp.Data, &updated); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if updated.Title != "Buy milk" || !updated.Completed {
		t.Fatalf("absent title should be kept: %+v", updated)
	}

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form body: got %d", w.Code)
	}
}

func TestEndToEnd_OpsEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.register(t, "", "Alice", "alice@example.com")
	_, _ = s.do(t, http.MethodGet, "/todos", alice.Token, "")
	_, _ = s.do(t, http.MethodGet, "/todos", alice.Token, "")

	for _, path := range []string{"/healthz", "/readyz", "/swagger", "/docs/openapi.yaml"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: got %d", path, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "todohub_http_requests_total") {
		t.Fatalf("metrics missing request counter")
	}
	if !strings.Contains(body, `todohub_cache_lookups_total{result="hit"} 1`) {
		t.Fatalf("expected one cache hit in metrics:\n%s", body)
	}
}
