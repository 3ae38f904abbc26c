package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docbot/docbot/internal/middleware"
	"github.com/docbot/docbot/pkg/logger"
)

// RouterConfig wires the ops server.
type RouterConfig struct {
	Health *HealthHandler
	Admin  *AdminHandler

	// JWTSecret enables the admin API; AdminSubject is the only subject
	// allowed through.
	JWTSecret    string
	AdminSubject string

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the ops HTTP router.
func NewRouter(cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	if cfg.JWTSecret != "" && cfg.Admin != nil {
		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.RequireSubject(cfg.AdminSubject))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/stats", cfg.Admin.Stats)
			r.Get("/jobs", cfg.Admin.Jobs)
		})
	}

	return r
}
