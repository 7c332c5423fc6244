package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the graph query surface mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Graph queries.
	r.Get("/nodes/*", h.GetNode)
	r.Get("/neighbors", h.Neighbors)
	r.Get("/affected", h.Affected)
	r.Get("/metrics", h.Metrics)
	r.Get("/cycles", h.Cycles)

	// Validation.
	r.Post("/validate", h.Validate)

	// Archive administration.
	r.Post("/archive/restore", h.Restore)
	r.Post("/archive/cleanup", h.Cleanup)
	r.Get("/archive/stats", h.ArchiveStats)

	// Notifications (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
