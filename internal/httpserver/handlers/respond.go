package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

// maxBody bounds JSON request bodies.
const maxBody = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into v, rejecting unknown fields and oversized
// bodies.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// storeError maps a store or validation error to a status code.
func storeError(d deps.Deps, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		d.Logger.Error("storage request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
	}
}

// badBody answers 400 for undecodable bodies and 413 for oversized ones.
func badBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, "request body is empty")
	default:
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
}

// invalidate drops cached renders of an article after its annotations
// changed. Failures only cost a stale render until the key changes.
func invalidate(d deps.Deps, r *http.Request, slug string) {
	if err := d.Store.InvalidateRenders(r.Context(), slug); err != nil {
		d.Logger.Warn("failed to invalidate cached renders",
			logger.String("slug", slug), logger.Error(err))
	}
}
