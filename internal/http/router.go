package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/eventsync/eventsync/internal/auth"
	"github.com/eventsync/eventsync/internal/config"
	"github.com/eventsync/eventsync/internal/extract"
	"github.com/eventsync/eventsync/internal/http/ratelimit"
	"github.com/eventsync/eventsync/internal/metrics"
	"github.com/eventsync/eventsync/internal/staging"
	"github.com/eventsync/eventsync/internal/store"
)

// NewRouter wires all HTTP routes for the extension-facing API.
func NewRouter(cfg *config.Config, telemetry *store.Store, authService *auth.Service, extractor extract.Extractor, sessions *staging.Manager) http.Handler {
	r := chi.NewRouter()

	// Extraction endpoints: model calls are slow and expensive, keep these tight.
	extractRateLimiter := ratelimit.New(rate.Limit(2), 5, 5*time.Minute, cfg.TrustedProxies)
	// Staging endpoints: cheap in-memory mutations, more permissive for interactive edits.
	stagingRateLimiter := ratelimit.New(rate.Limit(20), 50, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(corsMiddleware(cfg.AllowedOrigin()))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if telemetry != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := telemetry.HealthCheck(ctx); err != nil {
				http.Error(w, "unready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	h := NewHandler(extractor, sessions, telemetry)

	r.Get("/api/health-check", h.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(extractRateLimiter.Middleware())
		r.Use(authService.RequireToken)

		r.Post("/api/multi-event-processing", h.ProcessImage)
		r.Post("/api/staging/begin", h.BeginStaging)
	})

	r.Group(func(r chi.Router) {
		r.Use(stagingRateLimiter.Middleware())
		r.Use(authService.RequireToken)

		r.Post("/api/add-time", h.AddTime)

		r.Get("/api/staging", h.GetStaging)
		r.Post("/api/staging/events", h.AddDraft)
		r.Post("/api/staging/events/{id}/expand", h.Expand)
		r.Post("/api/staging/events/{id}/edit", h.BeginEdit)
		r.Patch("/api/staging/events/{id}/edit", h.EditDraft)
		r.Post("/api/staging/events/{id}/save", h.SaveEdit)
		r.Post("/api/staging/events/{id}/cancel", h.CancelEdit)
		r.Delete("/api/staging/events/{id}", h.DeleteEvent)
		r.Post("/api/staging/commit", h.Commit)
	})

	return r
}

// corsMiddleware admits browser requests from the packaged extension origin
// only. Requests without an Origin header (curl, health probes) pass through
// untouched.
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if origin != allowedOrigin {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
