/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Metrics:    Per-route traffic and latency

ROUTE GROUPS:
  /api/players/*   Player registration, roster, history, values, import
  /api/clubs/*     Club creation and search
  /api/health      Liveness
  /metrics         Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. metrics
// may be nil to skip instrumentation (tests).
func NewRouter(h *Handler, metrics *Metrics, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if metrics != nil {
		r.Use(metrics.Middleware)
		r.Handle("/metrics", metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Player routes
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.ListPlayers)
			r.Post("/", h.CreatePlayer)
			r.Post("/import", h.ImportPlayers)
			r.Get("/{id}", h.GetPlayer)
			r.Post("/{id}/retire", h.RetirePlayer)
			r.Get("/{id}/transfers", h.ListTransfers)
			r.Post("/{id}/transfers", h.RecordTransfer)
			r.Get("/{id}/timeline", h.GetTimeline)
			r.Get("/{id}/values", h.ListValues)
			r.Post("/{id}/values", h.RecordValue)
		})

		// Club routes
		r.Route("/clubs", func(r chi.Router) {
			r.Get("/", h.SearchClubs)
			r.Post("/", h.CreateClub)
			r.Get("/{id}", h.GetClub)
		})

		r.Get("/health", h.Health)
	})

	return r
}
