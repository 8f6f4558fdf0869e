package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/todohub/internal/actorctx"
	"github.com/geocoder89/todohub/internal/domain/user"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (string, error)
}

func (f *fakeVerifier) VerifyToken(token string) (string, error) {
	return f.verifyFn(token)
}

type fakeUsers struct {
	getByIDFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getByIDFn(ctx, id)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body %q: %v", w.Body.String(), err)
	}
	return body
}

func newAuthRouter(verifier TokenVerifier, users UserResolver) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/private", NewAuthMiddleware(verifier, users).RequireAuth(), func(c *gin.Context) {
		ginID, _ := UserIDFromContext(c)
		ctxID, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": ginID, "ctx": ctxID})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	verifier := &fakeVerifier{verifyFn: func(token string) (string, error) {
		switch token {
		case "good":
			return "u1", nil
		case "ghost":
			return "deleted-user", nil
		case "flaky":
			return "u-flaky", nil
		}
		return "", errors.New("bad token")
	}}
	users := &fakeUsers{getByIDFn: func(ctx context.Context, id string) (user.User, error) {
		switch id {
		case "u1":
			return user.User{ID: "u1"}, nil
		case "u-flaky":
			return user.User{}, errors.New("connection refused")
		}
		return user.User{}, user.ErrNotFound
	}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing_header", header: "", wantStatus: http.StatusUnauthorized, wantMsg: msgNoToken},
		{name: "wrong_scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantMsg: msgNoToken},
		{name: "empty_token", header: "Bearer  ", wantStatus: http.StatusUnauthorized, wantMsg: msgNoToken},
		{name: "bad_token", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantMsg: msgTokenFailed},
		{name: "user_gone", header: "Bearer ghost", wantStatus: http.StatusUnauthorized, wantMsg: msgTokenFailed},
		{name: "store_failure", header: "Bearer flaky", wantStatus: http.StatusInternalServerError, wantMsg: "Server Error"},
		{name: "ok", header: "Bearer good", wantStatus: http.StatusOK},
	}

	r := newAuthRouter(verifier, users)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d (body=%s)", w.Code, tt.wantStatus, w.Body.String())
			}

			body := decodeEnvelope(t, w)
			if tt.wantMsg == "" {
				if body["gin"] != "u1" || body["ctx"] != "u1" {
					t.Fatalf("user id not propagated: %v", body)
				}
				return
			}

			if body["success"] != false || body["error"] != tt.wantMsg {
				t.Fatalf("unexpected error envelope: %v", body)
			}
			if body["requestId"] == "" {
				t.Fatalf("expected request id in envelope")
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}

	now = now.Add(time.Minute + time.Second)
	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.POST("/todos", handler)
	r.PATCH("/todos/:id/toggle", handler)

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{name: "json", method: http.MethodPost, path: "/todos", body: `{}`, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "form", method: http.MethodPost, path: "/todos", body: `a=b`, contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "body_without_type", method: http.MethodPost, path: "/todos", body: `{}`, want: http.StatusUnsupportedMediaType},
		{name: "bodyless_toggle", method: http.MethodPatch, path: "/todos/1/toggle", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", 64)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/todos", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("missing allow-origin header")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("PATCH must be allowed for toggle")
	}

	req = httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin must not be allowed")
	}
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"*"}))
	r.GET("/todos", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard allow-origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatalf("credentials must not be advertised with a wildcard origin")
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFromContext(c)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "abc-123" || w.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("request id not echoed: body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-Id"))
	}
}

func TestRequestLogger_RecordsRouteAndActor(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLoggerTo(&buf, "prod")

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log))
	r.GET("/todos/:id", func(c *gin.Context) {
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), "u1"))
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/todos/42", nil)
	req.Header.Set("X-Request-Id", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid log line: %v (%s)", err, buf.String())
	}

	want := map[string]any{
		"msg":        "http_request",
		"level":      "ERROR",
		"route":      "/todos/:id",
		"request_id": "req-1",
		"actor_id":   "u1",
	}
	for k, v := range want {
		if line[k] != v {
			t.Fatalf("%s = %v, want %v (line %v)", k, line[k], v, line)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders("/swagger", "/api/swagger"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/swagger", ok)
	r.POST("/api/auth/login", ok)
	r.GET("/todos", ok)

	tests := []struct {
		name      string
		method    string
		path      string
		forwarded string
		wantCSP   string
		wantCache string
		wantHSTS  bool
	}{
		{name: "api", method: http.MethodGet, path: "/todos", wantCSP: apiCSP},
		{name: "docs_under_base", method: http.MethodGet, path: "/api/swagger", wantCSP: docsCSP},
		{name: "auth_no_store", method: http.MethodPost, path: "/api/auth/login", wantCSP: apiCSP, wantCache: "no-store"},
		{name: "behind_tls_proxy", method: http.MethodGet, path: "/todos", forwarded: "https", wantCSP: apiCSP, wantHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Content-Security-Policy"); got != tt.wantCSP {
				t.Fatalf("csp = %q", got)
			}
			if got := w.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Fatalf("cache-control = %q, want %q", got, tt.wantCache)
			}
			if got := w.Header().Get("Strict-Transport-Security") != ""; got != tt.wantHSTS {
				t.Fatalf("hsts present = %v, want %v", got, tt.wantHSTS)
			}
		})
	}
}
