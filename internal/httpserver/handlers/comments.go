package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/logger"
)

// ListComments returns the annotations of ?articleSlug=, oldest first.
func ListComments(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.TrimSpace(r.URL.Query().Get("articleSlug"))
		if slug == "" {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidSlug.Error())
			return
		}

		list, err := d.Store.ListAnnotations(r.Context(), slug)
		if err != nil {
			storeError(d, w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, list)
	}
}

// CreateComment stores a new annotation.
func CreateComment(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.NewAnnotation
		if err := decode(w, r, &in); err != nil {
			badBody(w, err)
			return
		}

		a, err := d.Store.CreateAnnotation(r.Context(), in)
		if err != nil {
			storeError(d, w, r, err)
			return
		}

		d.Logger.Info("annotation created",
			logger.Int64("annotation_id", a.ID),
			logger.String("slug", a.ArticleSlug))
		invalidate(d, r, a.ArticleSlug)
		writeJSON(w, http.StatusCreated, a)
	}
}

// DeleteComment removes an annotation. Admin only.
func DeleteComment(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid annotation id")
			return
		}

		a, err := d.Store.GetAnnotation(r.Context(), id)
		if err != nil {
			storeError(d, w, r, err)
			return
		}
		if err := d.Store.DeleteAnnotation(r.Context(), id); err != nil {
			storeError(d, w, r, err)
			return
		}

		d.Logger.Info("annotation deleted",
			logger.Int64("annotation_id", id),
			logger.String("slug", a.ArticleSlug))
		invalidate(d, r, a.ArticleSlug)
		w.WriteHeader(http.StatusNoContent)
	}
}
