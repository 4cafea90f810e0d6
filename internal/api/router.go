package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/faf/internal/project"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *project.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Structured file.
	r.Get("/context", h.GetContext)
	r.Put("/context", h.UpdateContext)
	r.Get("/validate", h.Validate)

	// Score and history.
	r.Get("/score", h.Score)
	r.Get("/history", h.History)

	// Mirror.
	r.Get("/readable", h.Readable)
	r.Post("/sync", h.Sync)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
