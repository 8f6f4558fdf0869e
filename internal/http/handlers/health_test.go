package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/todohub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		checks []handlers.Pinger
		want   int
	}{
		{name: "no_checks", want: http.StatusOK},
		{
			name: "all_ok",
			checks: []handlers.Pinger{
				{Name: "store", Ping: func(context.Context) error { return nil }},
				{Name: "cache", Ping: func(context.Context) error { return nil }},
			},
			want: http.StatusOK,
		},
		{
			name: "store_down",
			checks: []handlers.Pinger{
				{Name: "store", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }},
			},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.checks...)
			r := gin.New()
			r.GET("/healthz", h.Healthz)
			r.GET("/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if w.Code != tt.want {
				t.Fatalf("readyz: got %d, want %d (body=%s)", w.Code, tt.want, w.Body.String())
			}

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("healthz should always be ok, got %d", w.Code)
			}
		})
	}
}

func TestSwaggerUsesBasePath(t *testing.T) {
	r := gin.New()
	r.GET("/api/swagger", handlers.SwaggerUI("/api"))
	r.GET("/api/docs/openapi.yaml", handlers.OpenAPISpec)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/swagger", nil))
	if !strings.Contains(w.Body.String(), `url: "/api/docs/openapi.yaml"`) {
		t.Fatalf("swagger page should point at the document under the base path")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/todos/{id}/toggle") {
		t.Fatalf("openapi document not served: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/docs/openapi.yaml", nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304 for a matching ETag, got %d", w.Code)
	}
}
