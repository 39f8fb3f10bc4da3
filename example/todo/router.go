package todo

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

// NewRouter wires the middleware chain and the todo routes.
func NewRouter(sessions *postgresengine.SessionFactory, logger *slog.Logger) http.Handler {
	h := NewHandlers(logger)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(middleware.Recoverer)

	r.Route("/todos", func(r chi.Router) {
		r.Use(Session(sessions, logger))

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})

	return r
}
