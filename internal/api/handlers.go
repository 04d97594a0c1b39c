package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/query"
)

// Handler holds API route handlers.
type Handler struct {
	svc *promptservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *promptservice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) view(p models.Prompt) PromptView {
	return PromptView{Prompt: p, FolderName: h.svc.FolderName(p.FolderID)}
}

// ListPrompts handles GET /api/prompts. The query becomes the current view.
//
//	@Summary		List prompts of the current view
//	@Tags			prompts
//	@Produce		json
//	@Param			text		query		string	false	"Case-insensitive substring"
//	@Param			favorite	query		bool	false	"Only favorites"
//	@Param			tag			query		string	false	"Exact tag"
//	@Param			folder		query		string	false	"Folder id"
//	@Param			order		query		string	false	"Sort order"	Enums(created, updated, usage)
//	@Param			page		query		int		false	"1-based page"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	PromptListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [get]
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.Filter{
		Text:   q.Get("text"),
		Tag:    q.Get("tag"),
		Folder: q.Get("folder"),
	}
	if raw := q.Get("favorite"); raw != "" {
		fav, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("favorite must be a boolean"))
			return
		}
		f.Favorite = fav
	}
	order, err := query.ParseOrder(q.Get("order"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	f.Order = order
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	res := h.svc.SetView(f, page, size)
	items := make([]PromptView, len(res.Items))
	for i, p := range res.Items {
		items[i] = h.view(p)
	}
	writeJSON(w, http.StatusOK, PromptListResponse{
		Prompts:    items,
		Filter:     f,
		Page:       res.Page,
		PageSize:   res.PageSize,
		Total:      res.Total,
		TotalPages: res.TotalPages,
	})
}

// GetPrompt handles GET /api/prompts/{id}.
//
//	@Summary		Get a single prompt
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt id"
//	@Success		200	{object}	PromptView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [get]
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPrompt(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}

// CreatePrompt handles POST /api/prompts.
//
//	@Summary		Create a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PromptRequest	true	"Prompt to create"
//	@Success		201		{object}	PromptView
//	@Failure		400		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [post]
func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.CreatePrompt(r.Context(), promptservice.PromptInput(req))
	if err != nil {
		writeError(w, "create prompt", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(p))
}

// UpdatePrompt handles PUT /api/prompts/{id}.
//
//	@Summary		Edit text, tags and folder of a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Prompt id"
//	@Param			body	body		PromptRequest	true	"New values"
//	@Success		200		{object}	PromptView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [put]
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.svc.EditPrompt(r.Context(), chi.URLParam(r, "id"), promptservice.PromptInput(req))
	if err != nil {
		writeError(w, "update prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}

// DeletePrompt handles DELETE /api/prompts/{id}.
//
//	@Summary		Delete a prompt
//	@Tags			prompts
//	@Param			id	path	string	true	"Prompt id"
//	@Success		204	"Prompt deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [delete]
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePrompt(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /api/prompts/{id}/favorite.
//
//	@Summary		Toggle the favorite flag
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt id"
//	@Success		200	{object}	PromptView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id}/favorite [post]
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}

// CopyPrompt handles POST /api/prompts/{id}/copy.
//
//	@Summary		Copy out a prompt's text and count the use
//	@Tags			prompts
//	@Produce		json
//	@Param			id	path		string	true	"Prompt id"
//	@Success		200	{object}	CopyResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id}/copy [post]
func (h *Handler) CopyPrompt(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.CopyPrompt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "copy prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, CopyResponse{Text: text})
}

// Tags handles GET /api/tags.
//
//	@Summary		List distinct tags
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.svc.Tags()})
}
