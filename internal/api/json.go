package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/promptbox/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// importErrors are reported with their own message, without the wrapping context.
var importErrors = []error{
	apperr.ErrMalformed,
	apperr.ErrInvalidShape,
	apperr.ErrInvalidPrompt,
	apperr.ErrInvalidFolder,
}

// writeError maps a service error onto a status code and JSON body.
func writeError(w http.ResponseWriter, op string, err error) {
	for _, target := range importErrors {
		if errors.Is(err, target) {
			writeJSON(w, http.StatusBadRequest, errorBody(target.Error()))
			return
		}
	}
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("a folder with that name already exists"))
	case errors.Is(err, apperr.ErrFolderInUse):
		writeJSON(w, http.StatusConflict, errorBody(apperr.ErrFolderInUse.Error()))
	case errors.Is(err, apperr.ErrQuotaExceeded):
		slog.Warn(op+" not persisted", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInsufficientStorage, errorBody(apperr.ErrQuotaExceeded.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}
