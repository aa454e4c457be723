package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/divanvisagie/para-notes/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group;
// it is nil when the filesystem watch could not be established.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tree and pages.
	r.Get("/tree", h.Tree)
	r.Get("/pages", h.Page)
	r.Get("/pages/*", h.Page)

	// Raw bytes (edit round-trip and static assets).
	r.Get("/raw/*", h.Raw)

	// Edits.
	r.Post("/save", h.Save)
	r.Post("/move", h.Move)

	// Search.
	r.Get("/search", h.Search)

	// Live reload stream.
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
