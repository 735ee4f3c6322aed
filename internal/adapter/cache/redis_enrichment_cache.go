package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/repository"
)

// RedisEnrichmentCache implements EnrichmentCache backed by Redis.
type RedisEnrichmentCache struct {
	client redis.UniversalClient
}

var _ repository.EnrichmentCache = (*RedisEnrichmentCache)(nil)

// NewRedisEnrichmentCache constructs a Redis-backed enrichment cache.
func NewRedisEnrichmentCache(client redis.UniversalClient) *RedisEnrichmentCache {
	return &RedisEnrichmentCache{client: client}
}

func cacheKey(key string) string {
	return "enrichment:" + key
}

// Get loads and decodes a cached provider lookup. Miss is (nil, nil).
func (c *RedisEnrichmentCache) Get(ctx context.Context, key string) (*domain.Enrichment, error) {
	bytes, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load enrichment: %w", err)
	}
	var e domain.Enrichment
	if err := json.Unmarshal(bytes, &e); err != nil {
		return nil, fmt.Errorf("decode enrichment: %w", err)
	}
	return &e, nil
}

// Set stores the provider lookup result with TTL.
func (c *RedisEnrichmentCache) Set(ctx context.Context, key string, e domain.Enrichment, ttl time.Duration) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal enrichment: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist enrichment: %w", err)
	}
	return nil
}
