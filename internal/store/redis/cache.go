package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/annotate/internal/store"
)

// DefaultRenderTTL bounds how long an annotated render is cached
const DefaultRenderTTL = 24 * time.Hour

// PutRender caches a rendered annotated article
func (s *Store) PutRender(ctx context.Context, key, html string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultRenderTTL
	}
	if err := s.client.Set(ctx, RenderKey(key), html, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache render: %w", err)
	}
	return nil
}

// GetRender retrieves a cached render
func (s *Store) GetRender(ctx context.Context, key string) (string, bool, error) {
	html, err := s.client.Get(ctx, RenderKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("failed to get cached render: %w", err)
	}
	return html, true, nil
}

// InvalidateRenders removes every cached render of an article
func (s *Store) InvalidateRenders(ctx context.Context, slug string) error {
	iter := s.client.Scan(ctx, 0, RenderKey(store.RenderPrefix(slug))+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete render key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to invalidate renders: %w", err)
	}
	return nil
}
