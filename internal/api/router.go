package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptbox/internal/promptservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *promptservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Prompts.
	r.Get("/prompts", h.ListPrompts)
	r.Post("/prompts", h.CreatePrompt)
	r.Get("/prompts/{id}", h.GetPrompt)
	r.Put("/prompts/{id}", h.UpdatePrompt)
	r.Delete("/prompts/{id}", h.DeletePrompt)
	r.Post("/prompts/{id}/favorite", h.ToggleFavorite)
	r.Post("/prompts/{id}/copy", h.CopyPrompt)
	r.Get("/tags", h.Tags)

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Put("/folders/{id}", h.RenameFolder)
	r.Delete("/folders/{id}", h.DeleteFolder)

	// Import / export.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// Preferences.
	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
