package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

// Store handles Redis operations for annotations, shares and renders
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

var _ store.Store = (*Store)(nil)

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// CreateAnnotation assigns the next id and stores the annotation with its
// article index entry in one transaction
func (s *Store) CreateAnnotation(ctx context.Context, in domain.NewAnnotation) (*domain.Annotation, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := s.client.Incr(ctx, KeyAnnotationSeq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate annotation id: %w", err)
	}

	a := in.Build(id, s.now())
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal annotation: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, AnnotationKey(id), data, 0)
		pipe.ZAdd(ctx, ArticleAnnotationsKey(a.ArticleSlug), redis.Z{
			Score:  float64(a.CreatedAt.UnixMilli()),
			Member: strconv.FormatInt(id, 10),
		})
		pipe.SAdd(ctx, KeyAnnotatedArticles, a.ArticleSlug)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save annotation: %w", err)
	}

	return a, nil
}

// GetAnnotation retrieves an annotation by ID
func (s *Store) GetAnnotation(ctx context.Context, id int64) (*domain.Annotation, error) {
	data, err := s.client.Get(ctx, AnnotationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("annotation %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get annotation: %w", err)
	}

	var a domain.Annotation
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotation: %w", err)
	}
	return &a, nil
}

// ListAnnotations retrieves an article's annotations, oldest first
func (s *Store) ListAnnotations(ctx context.Context, slug string) ([]domain.Annotation, error) {
	ids, err := s.client.ZRange(ctx, ArticleAnnotationsKey(slug), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get annotation ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Annotation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = KeyPrefixAnnotation + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get annotations: %w", err)
	}

	out := make([]domain.Annotation, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry outlived its record
			continue
		}
		var a domain.Annotation
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// DeleteAnnotation removes an annotation and its index entry
func (s *Store) DeleteAnnotation(ctx context.Context, id int64) error {
	a, err := s.GetAnnotation(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, AnnotationKey(id))
		pipe.ZRem(ctx, ArticleAnnotationsKey(a.ArticleSlug), strconv.FormatInt(id, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete annotation: %w", err)
	}

	n, err := s.client.ZCard(ctx, ArticleAnnotationsKey(a.ArticleSlug)).Result()
	if err == nil && n == 0 {
		_ = s.client.SRem(ctx, KeyAnnotatedArticles, a.ArticleSlug).Err()
	}
	return nil
}

// AnnotatedSlugs returns every slug with annotations
func (s *Store) AnnotatedSlugs(ctx context.Context) ([]string, error) {
	slugs, err := s.client.SMembers(ctx, KeyAnnotatedArticles).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get annotated articles: %w", err)
	}
	return slugs, nil
}
