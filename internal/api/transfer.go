package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/promptbox/internal/transfer"
)

// Export handles GET /api/export. The bundle holds every folder and the
// prompts of the current view, or every prompt with all=true.
//
//	@Summary		Download an export bundle
//	@Tags			transfer
//	@Produce		json
//	@Param			all	query		bool	false	"Ignore the current view"
//	@Success		200	{file}		file
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))

	var buf bytes.Buffer
	var err error
	if all {
		err = h.svc.ExportAll(&buf)
	} else {
		err = h.svc.Export(&buf)
	}
	if err != nil {
		writeError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.svc.ExportFilename()+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("export write failed", slog.String("error", err.Error()))
	}
}

// Import handles POST /api/import?mode=replace|merge|cancel. The file is the
// raw JSON body or the multipart field "file". Filters are cleared first; an
// invalid file changes nothing.
//
//	@Summary		Import an export bundle
//	@Tags			transfer
//	@Accept			json
//	@Accept			mpfd
//	@Produce		json
//	@Param			mode	query		string	true	"Reconciliation"	Enums(replace, merge, cancel)
//	@Success		200		{object}	ImportResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	rawMode := r.URL.Query().Get("mode")
	if rawMode == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'mode' is required"))
		return
	}
	mode, err := transfer.ParseMode(rawMode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
			return
		}
		defer file.Close()
		src = file
	}

	res, err := h.svc.Import(r.Context(), src, mode)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetPreferences handles GET /api/preferences.
//
//	@Summary		Read UI preferences
//	@Tags			preferences
//	@Produce		json
//	@Success		200	{object}	Preferences
//	@Security		BearerAuth
//	@Router			/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Preferences(r.Context()))
}

// UpdatePreferences handles PUT /api/preferences.
//
//	@Summary		Update UI preferences
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreferencesRequest	true	"Fields to change"
//	@Success		200		{object}	Preferences
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Language != nil {
		if err := h.svc.SetLanguage(r.Context(), *req.Language); err != nil {
			writeError(w, "set language", err)
			return
		}
	}
	if req.DarkMode != nil {
		if err := h.svc.SetDarkMode(r.Context(), *req.DarkMode); err != nil {
			writeError(w, "set dark mode", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.svc.Preferences(r.Context()))
}
