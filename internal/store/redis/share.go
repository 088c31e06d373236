package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

// CreateShare stores a snippet under a fresh random id
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
		CreatedAt:    s.now().UTC(),
	}
	data, err := json.Marshal(snip)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal share: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ShareKey(snip.ID), data, 0)
		pipe.SAdd(ctx, KeyAllShares, snip.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save share: %w", err)
	}
	return snip, nil
}

// GetShare retrieves a snippet by ID
func (s *Store) GetShare(ctx context.Context, id string) (*domain.ShareSnippet, error) {
	data, err := s.client.Get(ctx, ShareKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("share %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	var snip domain.ShareSnippet
	if err := json.Unmarshal(data, &snip); err != nil {
		return nil, fmt.Errorf("failed to unmarshal share: %w", err)
	}
	return &snip, nil
}

// ListShares retrieves all snippets
func (s *Store) ListShares(ctx context.Context) ([]domain.ShareSnippet, error) {
	ids, err := s.client.SMembers(ctx, KeyAllShares).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get share ids: %w", err)
	}

	shares := make([]domain.ShareSnippet, 0, len(ids))
	for _, id := range ids {
		snip, err := s.GetShare(ctx, id)
		if err != nil {
			// Skip shares that couldn't be retrieved
			continue
		}
		shares = append(shares, *snip)
	}
	return shares, nil
}

// DeleteShare removes a snippet
func (s *Store) DeleteShare(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, ShareKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	if err := s.client.SRem(ctx, KeyAllShares, id).Err(); err != nil {
		return fmt.Errorf("failed to remove share from set: %w", err)
	}
	return nil
}
