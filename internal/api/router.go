package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nextdomen/mextdomen/internal/auth"
	"github.com/nextdomen/mextdomen/internal/directory"
	"github.com/nextdomen/mextdomen/internal/events"
)

// RouterConfig holds all dependencies needed to build the HTTP router. It is
// populated in main.go after every component is initialized and passed to
// NewRouter as a single struct to keep the constructor signature manageable.
type RouterConfig struct {
	Dir            *directory.Service
	Auth           *auth.Service
	Hub            *events.Hub
	Logger         *zap.Logger
	MetricsEnabled bool
}

// NewRouter builds and returns the fully configured Chi router, exposing
// exactly the REST surface named for this directory: health, users, groups,
// OUs, GPOs, login, the audit websocket tap, and (optionally) metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// --- Initialize handlers ---
	authHandler := NewAuthHandler(cfg.Auth, cfg.Logger)
	userHandler := NewUserHandler(cfg.Dir, cfg.Logger)
	groupHandler := NewGroupHandler(cfg.Dir, cfg.Logger)
	ouHandler := NewOUHandler(cfg.Dir, cfg.Logger)
	gpoHandler := NewGPOHandler(cfg.Dir, cfg.Logger)
	healthHandler := NewHealthHandler(cfg.Hub)
	eventsHandler := NewEventsHandler(cfg.Hub, cfg.Logger)

	r.Get("/health", healthHandler.Get)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// --- Public routes ---
		r.Post("/login", authHandler.Login)

		// --- Authenticated routes (valid JWT required) ---
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Auth))

			r.Get("/users", userHandler.List)
			r.Post("/users", userHandler.Create)
			r.Get("/users/{username}", userHandler.Get)
			r.Put("/users/{username}", userHandler.Update)
			r.Delete("/users/{username}", userHandler.Delete)

			r.Get("/groups", groupHandler.List)
			r.Post("/groups", groupHandler.Create)
			r.Delete("/groups/{sam}", groupHandler.Delete)

			r.Get("/ous", ouHandler.List)
			r.Post("/ous", ouHandler.Create)

			r.Post("/gpos", gpoHandler.Create)

			r.Get("/events/ws", eventsHandler.ServeWS)
		})
	})

	return r
}
