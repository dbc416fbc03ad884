// Package router sets up the HTTP routes and middleware chain of the
// guidebook API. Every route lives under /api except the Prometheus
// scrape endpoint.
package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guidebook/internal/handlers"
	"guidebook/internal/middleware"
)

// Deps holds what the router needs to build its handlers.
type Deps struct {
	Health     *handlers.Health
	Modules    *handlers.Modules
	Categories *handlers.Categories
	Contents   *handlers.Contents

	// Limiter throttles mutating requests; nil disables rate limiting.
	Limiter        middleware.Limiter
	AllowedOrigins []string
	ExposeErrors   bool
}

// New creates the chi router with all middleware and routes wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(middleware.Recoverer(d.ExposeErrors))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.Limiter != nil {
		r.Use(middleware.RateLimit(d.Limiter))
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", d.Health.Check)

		r.Route("/modules", func(r chi.Router) {
			r.Get("/", d.Modules.List)
			r.Post("/", d.Modules.Create)
			r.Get("/{id}", d.Modules.Get)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Categories.List)
			r.Post("/", d.Categories.Create)
			r.Get("/{id}", d.Categories.Get)
			r.Put("/{id}", d.Categories.Update)
			r.Delete("/{id}", d.Categories.Delete)
			r.Post("/{id}/move", d.Categories.Move)
		})

		r.Route("/contents", func(r chi.Router) {
			r.Get("/", d.Contents.List)
			r.Get("/search", d.Contents.Search)
			r.Post("/", d.Contents.Create)
			r.Get("/{id}", d.Contents.Get)
			r.Put("/{id}", d.Contents.Update)
			r.Delete("/{id}", d.Contents.Delete)
			r.Post("/{id}/move", d.Contents.Move)
		})
	})

	return r
}
