package handler

import (
	"go-taxonomy-service/internal/middleware"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures a new chi router.
func NewRouter(categoryHandler *CategoryHandler, postHandler *PostHandler, idHandler *IDHandler, errorMiddleware func(middleware.AppHandler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Method(http.MethodPost, "/resolve", errorMiddleware(categoryHandler.resolveHandler))
			r.Method(http.MethodGet, "/tree", errorMiddleware(categoryHandler.treeHandler))
			r.Method(http.MethodGet, "/lookup", errorMiddleware(categoryHandler.lookupHandler))
			r.Method(http.MethodGet, "/{id}", errorMiddleware(categoryHandler.getHandler))
			r.Method(http.MethodGet, "/{id}/children", errorMiddleware(categoryHandler.childrenHandler))
			r.Method(http.MethodGet, "/{id}/path", errorMiddleware(categoryHandler.pathHandler))
			r.Method(http.MethodGet, "/{id}/descendants", errorMiddleware(categoryHandler.descendantsHandler))
		})

		r.Route("/posts", func(r chi.Router) {
			r.Method(http.MethodPost, "/", errorMiddleware(postHandler.publishHandler))
			r.Method(http.MethodGet, "/{id}", errorMiddleware(postHandler.getHandler))
		})

		r.Route("/ids", func(r chi.Router) {
			r.Method(http.MethodGet, "/next", errorMiddleware(idHandler.nextHandler))
			r.Method(http.MethodGet, "/{id}", errorMiddleware(idHandler.decodeHandler))
		})
	})

	return r
}
