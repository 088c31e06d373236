package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

// ReadingPath is where articles are served on the site.
const ReadingPath = "/reading"

type shareResponse struct {
	Text         string `json:"text"`
	ArticleSlug  string `json:"articleSlug"`
	ArticleTitle string `json:"articleTitle"`
}

// ShareURL is the permalink of a share.
func ShareURL(publicURL, id string) string {
	return publicURL + "/s/" + url.PathEscape(id)
}

// CreateShare stores a snippet and returns its permalink.
func CreateShare(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.NewShare
		if err := decode(w, r, &in); err != nil {
			badBody(w, err)
			return
		}

		snip, err := d.Store.CreateShare(r.Context(), in)
		if err != nil {
			storeError(d, w, r, err)
			return
		}

		d.Logger.Info("share created",
			logger.String("share_id", snip.ID),
			logger.String("slug", snip.ArticleSlug))
		writeJSON(w, http.StatusOK, domain.ShareCreated{ID: snip.ID, URL: ShareURL(d.PublicURL, snip.ID)})
	}
}

// GetShare returns a stored snippet.
func GetShare(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snip, err := d.Store.GetShare(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, shareResponse{
			Text:         snip.Text,
			ArticleSlug:  snip.ArticleSlug,
			ArticleTitle: snip.ArticleTitle,
		})
	}
}

// ShareRedirect sends a permalink visitor to the article with the snippet
// to highlight. Unknown shares land on the article list.
func ShareRedirect(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		snip, err := d.Store.GetShare(r.Context(), id)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				d.Logger.Warn("failed to resolve share",
					logger.String("share_id", id), logger.Error(err))
			}
			http.Redirect(w, r, ReadingPath, http.StatusFound)
			return
		}

		target := ReadingPath + "/" + url.PathEscape(snip.ArticleSlug) + "?" + url.Values{"highlight": {snip.ID}}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
	}
}
