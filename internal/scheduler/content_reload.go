package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/index"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/sources/markdown"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

// ContentReloader keeps the article index in sync with the content
// directory, periodically and on demand.
type ContentReloader struct {
	loader        *markdown.Loader
	mapper        *markdown.Mapper
	renders       store.Renders
	index         *index.MemoryIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewContentReloader creates a new content reloader. renders may be nil.
func NewContentReloader(
	contentDir string,
	renders store.Renders,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *ContentReloader {
	return &ContentReloader{
		loader:        markdown.NewLoader(contentDir),
		mapper:        markdown.NewMapper(),
		renders:       renders,
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the content once, then keeps reloading it until Stop or ctx
// ends. A failing first load is fatal.
func (cr *ContentReloader) Start(ctx context.Context) error {
	if err := cr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cr.reloadLogged(ctx)
			case <-cr.manualTrigger:
				cr.logger.Info("manual reload triggered")
				cr.reloadLogged(ctx)
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (cr *ContentReloader) Stop() {
	close(cr.stopCh)
}

func (cr *ContentReloader) reloadLogged(ctx context.Context) {
	if err := cr.Reload(ctx); err != nil {
		// The previous index stays in place.
		cr.logger.Error("failed to reload content", logger.Error(err))
	}
}

// Reload reads every article, swaps the index and drops cached renders of
// articles whose body changed or disappeared.
func (cr *ContentReloader) Reload(ctx context.Context) error {
	cr.logger.Info("reloading content")

	files, err := cr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	articles, err := cr.mapper.MapArticles(files)
	if err != nil {
		return fmt.Errorf("failed to map articles: %w", err)
	}

	var stale []string
	next := make(map[string]bool, len(articles))
	for _, a := range articles {
		next[a.Slug] = true
		prev, ok := cr.index.GetArticle(a.Slug)
		switch {
		case !ok:
		case prev.HTML == a.HTML:
			a.LoadedAt = prev.LoadedAt
		default:
			stale = append(stale, a.Slug)
		}
	}
	for _, prev := range cr.index.GetAllArticles() {
		if !next[prev.Slug] {
			stale = append(stale, prev.Slug)
		}
	}

	cr.index.UpdateArticles(articles)
	cr.logger.Info("loaded articles",
		logger.Int("count", len(articles)),
		logger.Int("changed", len(stale)))

	cr.invalidate(ctx, stale)
	return nil
}

func (cr *ContentReloader) invalidate(ctx context.Context, slugs []string) {
	if cr.renders == nil {
		return
	}
	for _, slug := range slugs {
		if err := cr.renders.InvalidateRenders(ctx, slug); err != nil {
			// Best effort: keys carry the article version anyway.
			cr.logger.Warn("failed to invalidate cached renders",
				logger.String("slug", slug), logger.Error(err))
		}
	}
}
