// Package memory is an in-process store.Store. It backs the service when
// Redis is disabled and is the store used by handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

type render struct {
	html    string
	expires time.Time
}

// Store keeps every record in maps guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	seq         int64
	annotations map[int64]*domain.Annotation
	shares      map[string]*domain.ShareSnippet
	renders     map[string]render

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		annotations: make(map[int64]*domain.Annotation),
		shares:      make(map[string]*domain.ShareSnippet),
		renders:     make(map[string]render),
		Now:         time.Now,
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateAnnotation(ctx context.Context, in domain.NewAnnotation) (*domain.Annotation, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	a := in.Build(s.seq, s.Now().UTC())
	s.annotations[a.ID] = a
	cp := *a
	return &cp, nil
}

func (s *Store) GetAnnotation(ctx context.Context, id int64) (*domain.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.annotations[id]
	if !ok {
		return nil, fmt.Errorf("annotation %d: %w", id, store.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAnnotations(ctx context.Context, slug string) ([]domain.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Annotation, 0)
	for _, a := range s.annotations {
		if a.ArticleSlug == slug {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteAnnotation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annotations[id]; !ok {
		return fmt.Errorf("annotation %d: %w", id, store.ErrNotFound)
	}
	delete(s.annotations, id)
	return nil
}

func (s *Store) AnnotatedSlugs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, a := range s.annotations {
		seen[a.ArticleSlug] = true
	}
	out := make([]string, 0, len(seen))
	for slug := range seen {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateShare(ctx context.Context, in domain.NewShare) (*domain.ShareSnippet, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	snip := &domain.ShareSnippet{
		ID:           uuid.NewString(),
		Text:         in.Text,
		ArticleSlug:  in.ArticleSlug,
		ArticleTitle: in.ArticleTitle,
		CreatedAt:    s.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[snip.ID] = snip
	cp := *snip
	return &cp, nil
}

func (s *Store) GetShare(ctx context.Context, id string) (*domain.ShareSnippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snip, ok := s.shares[id]
	if !ok {
		return nil, fmt.Errorf("share %s: %w", id, store.ErrNotFound)
	}
	cp := *snip
	return &cp, nil
}

func (s *Store) ListShares(ctx context.Context) ([]domain.ShareSnippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ShareSnippet, 0, len(s.shares))
	for _, snip := range s.shares {
		out = append(out, *snip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteShare(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shares[id]; !ok {
		return fmt.Errorf("share %s: %w", id, store.ErrNotFound)
	}
	delete(s.shares, id)
	return nil
}

func (s *Store) GetRender(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.renders[key]
	if !ok || (!r.expires.IsZero() && s.Now().After(r.expires)) {
		return "", false, nil
	}
	return r.html, true, nil
}

func (s *Store) PutRender(ctx context.Context, key, html string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := render{html: html}
	if ttl > 0 {
		r.expires = s.Now().Add(ttl)
	}
	s.renders[key] = r
	return nil
}

func (s *Store) InvalidateRenders(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := store.RenderPrefix(slug)
	for k := range s.renders {
		if strings.HasPrefix(k, prefix) {
			delete(s.renders, k)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }
