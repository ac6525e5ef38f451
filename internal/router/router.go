// Package router sets up the HTTP routes and middleware chains for the
// category API. Reads are open; mutations additionally pass the per-client
// rate limiter.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"facilityconsole/internal/handlers"
	"facilityconsole/internal/metrics"
	"facilityconsole/internal/middleware"
)

// Deps carries what the router wires into its routes. Metrics and Limiter
// may be nil.
type Deps struct {
	Categories  *handlers.Categories
	Metrics     *metrics.Metrics
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
}

// New creates and returns the configured Chi router.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, outermost first. CORS sits before the logger so
	// pre-flight requests are answered without reaching the routes.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.Logger(d.Metrics))
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api/categories", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Post("/thumbnails", d.Categories.UploadThumbnail)

		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", d.Categories.List)
			r.Post("/", d.Categories.Create)
			r.Put("/{id}", d.Categories.Update)
			r.Delete("/{id}", d.Categories.Delete)
			r.Post("/{id}/move", d.Categories.Move)
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
