// Package view is the mount point of the annotation engine for one
// rendered article. It loads stored annotations, re-applies them as
// highlights, lays out their marker cards and owns the selection popup.
package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/highlight"
	"github.com/MrSnakeDoc/annotate/internal/layout"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/popup"
)

// DefaultReadyDelay gives the page time to finish rendering before the
// first pass.
const DefaultReadyDelay = 500 * time.Millisecond

// ErrClosed is returned by a view after Close.
var ErrClosed = errors.New("view closed")

// Storage is the storage collaborator of a view.
type Storage interface {
	popup.Storage
	ListAnnotations(ctx context.Context, slug string) ([]domain.Annotation, error)
}

// Deps wires a view to its collaborators. Only Storage is required.
type Deps struct {
	Storage    Storage
	Clipboard  popup.Clipboard
	Log        logger.Logger
	Title      string
	ReadyDelay time.Duration

	// Positioner places highlights; nil estimates from text flow on every
	// pass.
	Positioner func(root *html.Node) Positioner
	Measurer   layout.Measurer
	Layout     layout.Config
	Renderer   *layout.Renderer
	Now        func() time.Time
}

// View is the engine state of one mounted article.
type View struct {
	slug string
	deps Deps
	root *html.Node

	// mu serializes passes over root; the popup takes it as its tree lock.
	mu      sync.Mutex
	board   *layout.Board
	applied []highlight.Applied
	closed  bool

	popup *popup.Controller
}

// Mount waits ReadyDelay, then runs the first pass over root. A storage
// failure leaves the view mounted with no annotations.
func Mount(ctx context.Context, root *html.Node, slug string, deps Deps) (*View, error) {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}
	if deps.Positioner == nil {
		deps.Positioner = func(root *html.Node) Positioner { return DefaultFlow().Measure(root) }
	}
	if deps.Layout == (layout.Config{}) {
		deps.Layout = layout.DefaultConfig()
	}
	if deps.Renderer == nil {
		deps.Renderer = layout.NewRenderer()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Log = deps.Log.With(logger.String("slug", slug))

	if deps.ReadyDelay > 0 {
		t := time.NewTimer(deps.ReadyDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	v := &View{
		slug:  slug,
		deps:  deps,
		root:  root,
		board: layout.NewBoard(deps.Measurer, deps.Layout),
	}
	v.popup = popup.New(popup.Config{
		Root:      root,
		Slug:      slug,
		Title:     deps.Title,
		Storage:   deps.Storage,
		Clipboard: deps.Clipboard,
		Log:       deps.Log,
		TreeLock:  &v.mu,
		OnCreated: func(ctx context.Context, a *domain.Annotation) {
			if _, err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
				deps.Log.Warn("failed to refresh after new annotation",
					logger.Int64("annotation_id", a.ID), logger.Error(err))
			}
		},
	})

	if _, err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Refresh reloads the annotations and re-applies them. Passes never stack:
// every pass clears the previous marks before applying.
func (v *View) Refresh(ctx context.Context) ([]layout.MarkerGroup, error) {
	list, err := v.deps.Storage.ListAnnotations(ctx, v.slug)
	if err != nil {
		v.deps.Log.Warn("failed to load annotations", logger.Error(err))
		list = nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrClosed
	}

	highlight.Clear(v.root)
	v.applied = highlight.Apply(v.root, list, highlight.WithLogger(v.deps.Log))
	groups := v.board.Update(v.highlightsLocked())

	v.deps.Log.Debug("annotations applied",
		logger.Int("loaded", len(list)),
		logger.Int("applied", len(v.applied)),
		logger.Int("markers", len(groups)))
	return groups, nil
}

func (v *View) highlightsLocked() []layout.Highlight {
	pos := v.deps.Positioner(v.root)
	order := make(map[*html.Node]int)
	for i, m := range highlight.Marks(v.root) {
		order[m] = i
	}

	var hs []layout.Highlight
	for _, a := range v.applied {
		for _, m := range a.Marks {
			top, ok := pos.Top(m)
			if !ok {
				continue
			}
			hs = append(hs, layout.Highlight{Annotation: a.Annotation, Top: top, Order: order[m]})
		}
	}
	return hs
}

// Applied returns the annotations currently on the page.
func (v *View) Applied() []highlight.Applied {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]highlight.Applied(nil), v.applied...)
}

// Groups returns the placed marker groups.
func (v *View) Groups() []layout.MarkerGroup {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board.Groups()
}

// Toggle expands or collapses a cluster.
func (v *View) Toggle(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board.Toggle(key)
}

// Tap opens the card of an annotation on limited-pointer devices.
func (v *View) Tap(annotationID int64) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board.Tap(annotationID)
}

// Hover reports the group a hovered highlight belongs to.
func (v *View) Hover(annotationID int64) (layout.MarkerGroup, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board.Hover(annotationID)
}

// Unhover clears the hover state.
func (v *View) Unhover() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.board.Unhover()
}

// Measured replaces the estimated card heights with client measurements.
func (v *View) Measured(heights map[string]float64) []layout.MarkerGroup {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board.SetMeasurer(layout.Heights{Known: heights, Fallback: layout.DefaultEstimate()})
}

// Popup returns the selection popup of the view.
func (v *View) Popup() *popup.Controller { return v.popup }

// HTML renders the article with its highlights followed by the marker
// board.
func (v *View) HTML() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	body, err := dom.RenderChildren(v.root)
	if err != nil {
		return "", err
	}
	board, err := v.deps.Renderer.Board(v.board.Groups(), v.deps.Now())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<div class="annotated-article">`)
	b.WriteString(body)
	b.WriteString(board)
	b.WriteString(`</div>`)
	return b.String(), nil
}

// Close tears the view down. Marks stay in the tree; in-flight popup
// requests complete but their results are dropped.
func (v *View) Close() {
	v.popup.Close()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}
