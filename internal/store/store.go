// Package store defines the persistence contract for annotations and shared
// snippets. The Redis implementation lives in store/redis; store/memory is
// used when Redis is disabled and in tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Annotations persists reader annotations. Records are immutable once
// created; ids are assigned by the store.
type Annotations interface {
	CreateAnnotation(ctx context.Context, in domain.NewAnnotation) (*domain.Annotation, error)
	GetAnnotation(ctx context.Context, id int64) (*domain.Annotation, error)
	// ListAnnotations returns an article's annotations oldest first.
	ListAnnotations(ctx context.Context, slug string) ([]domain.Annotation, error)
	DeleteAnnotation(ctx context.Context, id int64) error
	// AnnotatedSlugs returns every slug that has at least one annotation.
	AnnotatedSlugs(ctx context.Context) ([]string, error)
}

// Shares persists shared snippets.
type Shares interface {
	CreateShare(ctx context.Context, in domain.NewShare) (*domain.ShareSnippet, error)
	GetShare(ctx context.Context, id string) (*domain.ShareSnippet, error)
	ListShares(ctx context.Context) ([]domain.ShareSnippet, error)
	DeleteShare(ctx context.Context, id string) error
}

// Renders caches server-rendered annotated articles.
type Renders interface {
	GetRender(ctx context.Context, key string) (string, bool, error)
	PutRender(ctx context.Context, key, html string, ttl time.Duration) error
	// InvalidateRenders drops every cached render of an article.
	InvalidateRenders(ctx context.Context, slug string) error
}

// Store is everything the service needs from persistence.
type Store interface {
	Annotations
	Shares
	Renders
	Ping(ctx context.Context) error
}

// Stats summarizes the stored records for the infra endpoint.
type Stats struct {
	Annotations map[string]int `json:"annotations"` // per article slug
	Shares      int            `json:"shares"`
}

// Collect counts the records of s.
func Collect(ctx context.Context, s Store) (Stats, error) {
	slugs, err := s.AnnotatedSlugs(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Annotations: make(map[string]int, len(slugs))}
	for _, slug := range slugs {
		list, err := s.ListAnnotations(ctx, slug)
		if err != nil {
			return Stats{}, err
		}
		st.Annotations[slug] = len(list)
	}
	shares, err := s.ListShares(ctx)
	if err != nil {
		return Stats{}, err
	}
	st.Shares = len(shares)
	return st, nil
}

// RenderPrefix is the common prefix of every render key of an article.
func RenderPrefix(slug string) string {
	return slug + "|"
}

// RenderKey identifies one render of an article: the article version and
// the annotation set it was rendered with.
func RenderKey(slug string, loadedAt time.Time, annotations int, lastID int64) string {
	return fmt.Sprintf("%s%d|%d|%d", RenderPrefix(slug), loadedAt.UnixNano(), annotations, lastID)
}
