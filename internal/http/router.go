package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/todohub/internal/config"
	"github.com/geocoder89/todohub/internal/http/handlers"
	"github.com/geocoder89/todohub/internal/http/middlewares"
	"github.com/geocoder89/todohub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type UserStore interface {
	handlers.UserReader
	handlers.UserWriter
}

type TokenManager interface {
	handlers.TokenIssuer
	middlewares.TokenVerifier
}

type Deps struct {
	Config config.Config
	Log    *slog.Logger

	Users  UserStore
	Todos  handlers.TodoService
	Tokens TokenManager

	// Checks are pinged by /readyz.
	Checks []handlers.Pinger

	// Prom and Gatherer are optional; without them /metrics is not mounted.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	base := d.Config.APIBasePath

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(observability.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders("/swagger", base+"/swagger"))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health and metrics stay at the root for probes and scrapers
	h := handlers.NewHealthHandler(d.Checks...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// one limiter across mounts so a base path does not double the budget
	authLimit := func(c *gin.Context) { c.Next() }
	if d.Config.AuthRateLimit > 0 {
		limiter := middlewares.NewRateLimiter(d.Config.AuthRateLimit, authRateWindow(d.Config))
		authLimit = limiter.RateLimiterMiddleware(middlewares.KeyByIP)
	}

	mountAPI(r.Group("/"), "", d, authLimit)
	if base != "" {
		mountAPI(r.Group(base), base, d, authLimit)
	}

	return r
}

func mountAPI(g *gin.RouterGroup, base string, d Deps, authLimit gin.HandlerFunc) {
	authGate := middlewares.NewAuthMiddleware(d.Tokens, d.Users)

	g.GET("/swagger", handlers.SwaggerUI(base))
	g.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authHandler := handlers.NewAuthHandler(d.Users, d.Users, d.Tokens)

	authGroup := g.Group("/auth")
	authGroup.POST("/register", authLimit, authHandler.Register)
	authGroup.POST("/login", authLimit, authHandler.Login)
	authGroup.GET("/me", authGate.RequireAuth(), authHandler.Me)

	todosHandler := handlers.NewTodosHandler(d.Todos)

	// All routes are protected
	todos := g.Group("/todos", authGate.RequireAuth())
	todos.GET("", todosHandler.ListTodos)
	todos.POST("", todosHandler.CreateTodo)
	todos.PUT("/:id", todosHandler.UpdateTodo)
	todos.DELETE("/:id", todosHandler.DeleteTodo)
	todos.PATCH("/:id/toggle", todosHandler.ToggleTodo)
}

func authRateWindow(cfg config.Config) time.Duration {
	if w := cfg.AuthRateWindow(); w > 0 {
		return w
	}
	return time.Minute
}
