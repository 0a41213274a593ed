/*
server.go - HTTP router assembly

PURPOSE:
  Wires the chi router: recovery and request-id middleware, zerolog request
  logging, CORS for the browser frontend, and the API routes.

ROUTES:
  GET    /api/healthz
  GET    /api/clients        POST /api/clients     DELETE /api/clients/{id}
  GET    /api/beers          POST /api/beers
  GET    /api/movements      POST /api/movements
  GET    /api/movements/{id} DELETE /api/movements/{id}
  GET    /api/reports
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter builds the HTTP router around the handler.
func NewRouter(h *Handler, log zerolog.Logger, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Delete("/{id}", h.DeleteClient)
		})

		r.Route("/beers", func(r chi.Router) {
			r.Get("/", h.ListBeers)
			r.Post("/", h.CreateBeer)
		})

		r.Route("/movements", func(r chi.Router) {
			r.Get("/", h.ListMovements)
			r.Post("/", h.CreateMovement)
			r.Get("/{id}", h.GetMovement)
			r.Delete("/{id}", h.DeleteMovement)
		})

		r.Get("/reports", h.GetReport)
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
