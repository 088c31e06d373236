package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/layout"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/resolve"
	"github.com/MrSnakeDoc/annotate/internal/store"
	"github.com/MrSnakeDoc/annotate/internal/view"
)

type articleSummary struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Summary     string    `json:"summary,omitempty"`
	Annotations int       `json:"annotations"`
}

// ListArticles returns the indexed articles, newest first.
func ListArticles(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		articles := d.MemoryIndex.GetAllArticles()
		out := make([]articleSummary, 0, len(articles))
		for _, a := range articles {
			s := articleSummary{Slug: a.Slug, Title: a.Title, Date: a.Date, Summary: a.Summary}
			if list, err := d.Store.ListAnnotations(r.Context(), a.Slug); err == nil {
				s.Annotations = len(list)
			}
			out = append(out, s)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// snapshot serves a view the annotation list it was keyed on, and writes
// through to the store for everything else.
type snapshot struct {
	store.Store
	list      []domain.Annotation
	publicURL string
}

func (s *snapshot) ListAnnotations(context.Context, string) ([]domain.Annotation, error) {
	return s.list, nil
}

func (s *snapshot) CreateShare(ctx context.Context, in domain.NewShare) (*domain.ShareCreated, error) {
	snip, err := s.Store.CreateShare(ctx, in)
	if err != nil {
		return nil, err
	}
	return &domain.ShareCreated{ID: snip.ID, URL: ShareURL(s.publicURL, snip.ID)}, nil
}

func article(d deps.Deps, w http.ResponseWriter, r *http.Request) (*domain.Article, bool) {
	a, ok := d.MemoryIndex.GetArticle(chi.URLParam(r, "slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "article not found")
		return nil, false
	}
	return a, true
}

// Annotated renders an article server side with its highlights and
// positioned marker cards. ?highlight={shareId} also relocates a shared
// snippet; those renders are not cached.
func Annotated(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := article(d, w, r)
		if !ok {
			return
		}
		ctx := r.Context()

		list, err := d.Store.ListAnnotations(ctx, a.Slug)
		if err != nil {
			storeError(d, w, r, err)
			return
		}

		shareID := r.URL.Query().Get("highlight")
		var key string
		if shareID == "" {
			var lastID int64
			if len(list) > 0 {
				lastID = list[len(list)-1].ID
			}
			key = store.RenderKey(a.Slug, a.LoadedAt, len(list), lastID)
			if cached, hit, err := d.Store.GetRender(ctx, key); err == nil && hit {
				writeHTML(w, "HIT", cached)
				return
			}
		}

		root, err := dom.ParseFragment(a.HTML)
		if err != nil {
			d.Logger.Error("failed to parse article", logger.String("slug", a.Slug), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "article unavailable")
			return
		}

		v, err := view.Mount(ctx, root, a.Slug, view.Deps{
			Storage:  &snapshot{Store: d.Store, list: list, publicURL: d.PublicURL},
			Log:      d.Logger,
			Title:    a.Title,
			Renderer: d.Renderer,
			Now:      d.Now,
		})
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		defer v.Close()

		if shareID != "" {
			if _, err := v.Relocate(ctx, d.Store, view.RelocateRequest{ShareID: shareID}); err != nil {
				d.Logger.Debug("shared snippet not located",
					logger.String("share_id", shareID), logger.Error(err))
			}
		}

		out, err := v.HTML()
		if err != nil {
			d.Logger.Error("failed to render article", logger.String("slug", a.Slug), logger.Error(err))
			writeError(w, http.StatusInternalServerError, "render failed")
			return
		}

		if key != "" {
			if err := d.Store.PutRender(ctx, key, out, d.RenderTTL); err != nil {
				d.Logger.Warn("failed to cache render", logger.String("slug", a.Slug), logger.Error(err))
			}
		}
		writeHTML(w, "MISS", out)
	}
}

func writeHTML(w http.ResponseWriter, cache, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Render-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

type layoutRequest struct {
	Highlights []struct {
		AnnotationID int64   `json:"annotationId"`
		Top          float64 `json:"top"`
		Order        *int    `json:"order,omitempty"`
	} `json:"highlights"`
	Heights  map[string]float64 `json:"heights"`
	Expanded []string           `json:"expanded"`
}

type layoutGroup struct {
	layout.MarkerGroup
	HTML string `json:"html"`
}

// Layout places marker cards from highlight positions measured by the
// client. Unknown annotation ids are ignored.
func Layout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := article(d, w, r)
		if !ok {
			return
		}

		var req layoutRequest
		if err := decode(w, r, &req); err != nil {
			badBody(w, err)
			return
		}

		list, err := d.Store.ListAnnotations(r.Context(), a.Slug)
		if err != nil {
			storeError(d, w, r, err)
			return
		}
		byID := make(map[int64]domain.Annotation, len(list))
		for _, an := range list {
			byID[an.ID] = an
		}

		hs := make([]layout.Highlight, 0, len(req.Highlights))
		for i, h := range req.Highlights {
			an, ok := byID[h.AnnotationID]
			if !ok {
				continue
			}
			order := i
			if h.Order != nil {
				order = *h.Order
			}
			hs = append(hs, layout.Highlight{Annotation: an, Top: h.Top, Order: order})
		}

		expanded := make(map[string]bool, len(req.Expanded))
		for _, k := range req.Expanded {
			expanded[k] = true
		}
		m := layout.Heights{Known: req.Heights, Fallback: layout.DefaultEstimate()}
		groups := layout.Layout(hs, m, func(k string) bool { return expanded[k] }, layout.DefaultConfig())

		now := d.Now()
		out := make([]layoutGroup, 0, len(groups))
		for _, g := range groups {
			card, err := d.Renderer.Card(g, now)
			if err != nil {
				d.Logger.Error("failed to render marker card", logger.String("key", g.Key), logger.Error(err))
				writeError(w, http.StatusInternalServerError, "render failed")
				return
			}
			out = append(out, layoutGroup{MarkerGroup: g, HTML: card})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type locateResponse struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

// Locate finds a snippet, by ?highlight={shareId} or ?text=, in an article
// and returns its offsets.
func Locate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := article(d, w, r)
		if !ok {
			return
		}
		root, err := dom.ParseFragment(a.HTML)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "article unavailable")
			return
		}

		q := r.URL.Query()
		loc, err := view.Relocate(r.Context(), root, d.Store, view.RelocateRequest{
			ShareID: q.Get("highlight"),
			Text:    q.Get("text"),
		})
		switch {
		case err == nil:
		case errors.Is(err, view.ErrNothingToLocate):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, resolve.ErrNotFound), errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "snippet not found")
			return
		default:
			storeError(d, w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, locateResponse{
			Start:  loc.Range.Start,
			End:    loc.Range.End,
			Text:   loc.Text,
			Anchor: view.AnchorID,
		})
	}
}
