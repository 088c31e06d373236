// Package popup is the selection popup state machine: it reacts to text
// selections in an article, offers share and annotate actions, and submits
// the result to storage.
//
// The controller is owned by one article view. It is safe for concurrent
// use: network calls run without holding the lock, and results that arrive
// after the state has moved on, or after Close, are discarded.
package popup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/flatten"
	"github.com/MrSnakeDoc/annotate/internal/highlight"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/resolve"
)

// Mode is the state of the popup.
type Mode int

const (
	Idle Mode = iota
	Selecting
	Share
	Annotate
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Share:
		return "share"
	case Annotate:
		return "annotate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrExcluded     = errors.New("selection inside an excluded region")
	ErrWrongMode    = errors.New("action not available in current mode")
	ErrNoOffsets    = errors.New("selection has no resolved offsets")
	ErrEmptyComment = errors.New("comment is empty")
	ErrClosed       = errors.New("popup closed")
	ErrStale        = errors.New("popup state changed while request was in flight")
)

// ExcludedClasses are class fragments marking regions whose selections are
// ignored: citation controls and conversational overlays.
var ExcludedClasses = []string{"citation", "conversationSide", "aiMode"}

// DefaultShareDisplay is how long the copy confirmation stays visible.
const DefaultShareDisplay = 2 * time.Second

// Storage is the part of the storage collaborator the popup writes to.
type Storage interface {
	CreateAnnotation(ctx context.Context, in domain.NewAnnotation) (*domain.Annotation, error)
	CreateShare(ctx context.Context, in domain.NewShare) (*domain.ShareCreated, error)
}

// Clipboard receives share permalinks.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Form is what the reader types into the annotate form.
type Form struct {
	Comment string
	Author  string
	Color   string
}

// State is a snapshot of the popup for rendering.
type State struct {
	Mode   Mode
	Text   string
	Range  *resolve.Range
	Copied string // permalink copied by the last share, while in Share
	Color  string // selected color, while in Annotate
}

// Config wires a controller to its article.
type Config struct {
	Root         *html.Node
	Slug         string
	Title        string
	Storage      Storage
	Clipboard    Clipboard
	ShareDisplay time.Duration
	Log          logger.Logger

	// TreeLock guards Root when other code mutates it concurrently.
	TreeLock sync.Locker

	// OnCreated runs after an annotation is stored, outside any lock.
	OnCreated func(ctx context.Context, a *domain.Annotation)
}

// Controller is the popup state machine of one article view.
type Controller struct {
	cfg Config

	mu     sync.Mutex
	state  State
	gen    uint64 // bumped on every transition; in-flight results compare it
	closed bool
	timer  *time.Timer
}

// New returns an idle controller.
func New(cfg Config) *Controller {
	if cfg.ShareDisplay <= 0 {
		cfg.ShareDisplay = DefaultShareDisplay
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}
	if cfg.TreeLock == nil {
		cfg.TreeLock = &sync.Mutex{}
	}
	return &Controller{cfg: cfg}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PointerUp handles the end of a pointer or touch gesture. sel is the live
// selection and text its string value as the platform reports it.
//
// Offsets are resolved right away, before anything mutates the tree. If the
// boundaries cannot be resolved the selected text is searched for instead;
// the popup still opens without offsets when both fail, which allows
// sharing but not annotating.
func (c *Controller) PointerUp(sel resolve.Selection, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state.Mode == Annotate {
		return nil
	}
	if excluded(sel.Anchor.Node) || excluded(sel.Focus.Node) {
		return ErrExcluded
	}

	text = strings.TrimSpace(text)
	if text == "" {
		if c.state.Mode == Selecting || c.state.Mode == Share {
			c.resetLocked()
		}
		return nil
	}

	c.cfg.TreeLock.Lock()
	defer c.cfg.TreeLock.Unlock()

	idx := flatten.Flatten(c.cfg.Root)
	rng, err := resolve.Snapshot(idx, sel)
	if err != nil {
		c.cfg.Log.Debug("selection boundaries did not resolve, searching text", logger.Error(err))
		rng, err = resolve.FromSearch(idx, text)
	}

	// Removing the previous temporary mark leaves the flat text unchanged,
	// so rng stays valid against the rebuilt index.
	if (c.state.Mode == Selecting || c.state.Mode == Share) && highlight.ClearTemporary(c.cfg.Root) > 0 {
		idx = flatten.Flatten(c.cfg.Root)
	}

	next := State{Mode: Selecting, Text: text}
	if err != nil {
		c.cfg.Log.Warn("failed to calculate selection offsets",
			logger.String("slug", c.cfg.Slug), logger.Error(err))
	} else {
		r := rng
		next.Range = &r
		if _, werr := highlight.Wrap(idx, rng, highlight.TemporaryStyle()); werr != nil {
			c.cfg.Log.Debug("could not create temporary highlight", logger.Error(werr))
		}
	}

	c.transitionLocked(next)
	return nil
}

// Share stores a snippet of the selection, copies its permalink and shows
// the confirmation for ShareDisplay before returning to Idle. On failure
// the popup stays in Selecting.
func (c *Controller) Share(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.state.Mode != Selecting {
		c.mu.Unlock()
		return "", ErrWrongMode
	}
	gen := c.gen
	in := domain.NewShare{Text: c.state.Text, ArticleSlug: c.cfg.Slug, ArticleTitle: c.cfg.Title}
	c.mu.Unlock()

	created, err := c.cfg.Storage.CreateShare(ctx, in)
	if err != nil {
		return "", fmt.Errorf("failed to create share: %w", err)
	}
	if err := c.cfg.Clipboard.WriteText(ctx, created.URL); err != nil {
		return "", fmt.Errorf("failed to copy share link: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.currentLocked(gen); err != nil {
		return created.URL, err
	}

	next := c.state
	next.Mode = Share
	next.Copied = created.URL
	c.transitionLocked(next)

	shown := c.gen
	c.timer = time.AfterFunc(c.cfg.ShareDisplay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.closed && c.gen == shown {
			c.resetLocked()
		}
	})
	return created.URL, nil
}

// StartAnnotate opens the comment form.
func (c *Controller) StartAnnotate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state.Mode != Selecting {
		return ErrWrongMode
	}
	next := c.state
	next.Mode = Annotate
	next.Color = string(domain.ColorYellow)
	c.transitionLocked(next)
	return nil
}

// PickColor changes the color selected in the form.
func (c *Controller) PickColor(color string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != Annotate {
		return ErrWrongMode
	}
	if _, ok := domain.LookupColor(color); !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidColor, color)
	}
	c.state.Color = color
	return nil
}

// Submit posts the annotation. On success the temporary highlight is
// removed, the popup returns to Idle and OnCreated runs. On failure the
// form stays open so the reader can retry.
func (c *Controller) Submit(ctx context.Context, f Form) (*domain.Annotation, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.state.Mode != Annotate {
		c.mu.Unlock()
		return nil, ErrWrongMode
	}
	if strings.TrimSpace(f.Comment) == "" {
		c.mu.Unlock()
		return nil, ErrEmptyComment
	}
	if c.state.Range == nil {
		c.mu.Unlock()
		return nil, ErrNoOffsets
	}

	color := f.Color
	if color == "" {
		color = c.state.Color
	}
	in := domain.NewAnnotation{
		ArticleSlug:     c.cfg.Slug,
		HighlightedText: domain.StringPtr(c.state.Text),
		CommentText:     f.Comment,
		StartOffset:     domain.IntPtr(c.state.Range.Start),
		EndOffset:       domain.IntPtr(c.state.Range.End),
		Color:           color,
	}
	if a := strings.TrimSpace(f.Author); a != "" {
		in.AuthorName = domain.StringPtr(a)
	}
	gen := c.gen
	c.mu.Unlock()

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	created, err := c.cfg.Storage.CreateAnnotation(ctx, in)
	if err != nil {
		c.cfg.Log.Warn("failed to submit annotation",
			logger.String("slug", c.cfg.Slug), logger.Error(err))
		return nil, fmt.Errorf("failed to submit annotation: %w", err)
	}

	c.mu.Lock()
	if err := c.currentLocked(gen); err != nil {
		c.mu.Unlock()
		c.cfg.Log.Debug("discarding submitted annotation", logger.Int64("annotation_id", created.ID), logger.Error(err))
		return nil, err
	}
	c.resetLocked()
	c.mu.Unlock()

	if c.cfg.OnCreated != nil {
		c.cfg.OnCreated(ctx, created)
	}
	return created, nil
}

// Cancel abandons the current action.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Mode != Idle {
		c.resetLocked()
	}
}

// ClickOutside handles a click that landed outside the popup.
func (c *Controller) ClickOutside() { c.Cancel() }

// Close tears the controller down. Requests still in flight complete but
// their results are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
}

func (c *Controller) currentLocked(gen uint64) error {
	if c.closed {
		return ErrClosed
	}
	if c.gen != gen {
		return ErrStale
	}
	return nil
}

func (c *Controller) transitionLocked(next State) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.state = next
	c.gen++
}

// resetLocked returns to Idle and removes the temporary highlight.
func (c *Controller) resetLocked() {
	if c.state.Range != nil {
		c.cfg.TreeLock.Lock()
		highlight.ClearTemporary(c.cfg.Root)
		c.cfg.TreeLock.Unlock()
	}
	c.transitionLocked(State{Mode: Idle})
}

func excluded(n *html.Node) bool {
	return dom.Closest(n, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		class := dom.Attr(n, "class")
		for _, frag := range ExcludedClasses {
			if strings.Contains(class, frag) {
				return true
			}
		}
		return false
	}) != nil
}
