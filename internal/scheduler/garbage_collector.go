package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/index"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

const (
	// DefaultGCThreshold is how long records of a vanished article are kept
	DefaultGCThreshold = 7 * 24 * time.Hour
)

// GarbageCollector deletes annotations and shares whose article is no
// longer in the content index
type GarbageCollector struct {
	store     store.Store
	index     *index.MemoryIndex
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	st store.Store,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}

	return &GarbageCollector{
		store:     st,
		index:     idx,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Result counts what one collection removed.
type Result struct {
	Annotations int
	Shares      int
}

// Collect removes orphaned records older than the threshold. It does
// nothing while the index is empty, so a failed content load never wipes
// the store.
func (gc *GarbageCollector) Collect(ctx context.Context) (Result, error) {
	var res Result
	if gc.index.Count() == 0 {
		gc.logger.Warn("skipping garbage collection, no articles indexed")
		return res, nil
	}

	gc.logger.Info("running garbage collection for orphaned annotations and shares")
	live := gc.index.Slugs()
	cutoff := gc.now().Add(-gc.threshold)

	var err error
	if res.Annotations, err = gc.collectAnnotations(ctx, live, cutoff); err != nil {
		return res, err
	}
	if res.Shares, err = gc.collectShares(ctx, live, cutoff); err != nil {
		return res, err
	}

	if res.Annotations+res.Shares > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("annotations_deleted", res.Annotations),
			logger.Int("shares_deleted", res.Shares))
	} else {
		gc.logger.Debug("no items to garbage collect")
	}
	return res, nil
}

func (gc *GarbageCollector) collectAnnotations(ctx context.Context, live map[string]bool, cutoff time.Time) (int, error) {
	slugs, err := gc.store.AnnotatedSlugs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list annotated articles: %w", err)
	}

	deleted := 0
	for _, slug := range slugs {
		if live[slug] {
			continue
		}
		list, err := gc.store.ListAnnotations(ctx, slug)
		if err != nil {
			gc.logger.Warn("failed to list annotations", logger.String("slug", slug), logger.Error(err))
			continue
		}
		for _, a := range list {
			if a.CreatedAt.After(cutoff) {
				continue
			}
			if err := gc.store.DeleteAnnotation(ctx, a.ID); err != nil {
				gc.logger.Warn("failed to delete annotation",
					logger.Int64("annotation_id", a.ID), logger.Error(err))
				continue
			}
			gc.logger.Info("garbage collected orphaned annotation",
				logger.Int64("annotation_id", a.ID),
				logger.String("slug", slug))
			deleted++
		}
	}
	return deleted, nil
}

func (gc *GarbageCollector) collectShares(ctx context.Context, live map[string]bool, cutoff time.Time) (int, error) {
	shares, err := gc.store.ListShares(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list shares: %w", err)
	}

	deleted := 0
	for _, s := range shares {
		if live[s.ArticleSlug] || s.CreatedAt.After(cutoff) {
			continue
		}
		if err := gc.store.DeleteShare(ctx, s.ID); err != nil {
			gc.logger.Warn("failed to delete share",
				logger.String("share_id", s.ID), logger.Error(err))
			continue
		}
		gc.logger.Info("garbage collected orphaned share",
			logger.String("share_id", s.ID),
			logger.String("slug", s.ArticleSlug),
			logger.String("text", s.Excerpt(40)))
		deleted++
	}
	return deleted, nil
}
