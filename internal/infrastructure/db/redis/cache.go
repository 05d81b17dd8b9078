package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bugtracker/tracker-system/internal/api/metrics"
)

// ResponseCache stores JSON read results under generation-versioned keys.
// Invalidating a namespace bumps its generation so every older entry is
// orphaned and left to expire.
//
// Key format: cache:<namespace>:<generation>:<key>
type ResponseCache struct {
	client redis.Cmdable
}

// NewResponseCache creates a ResponseCache over the given Redis commands,
// usually a *redis.Client.
func NewResponseCache(client redis.Cmdable) *ResponseCache {
	return &ResponseCache{client: client}
}

// Load decodes the cached value into dst and reports whether it was present.
func (c *ResponseCache) Load(ctx context.Context, namespace, key string, dst any) (bool, error) {
	gen, err := c.generation(ctx, namespace)
	if err != nil {
		return false, err
	}

	raw, err := c.client.Get(ctx, entryKey(namespace, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues(namespace, "miss").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	metrics.CacheLookupsTotal.WithLabelValues(namespace, "hit").Inc()
	return true, nil
}

// Store saves v under the current generation of namespace for ttl.
func (c *ResponseCache) Store(ctx context.Context, namespace, key string, v any, ttl time.Duration) error {
	gen, err := c.generation(ctx, namespace)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.client.Set(ctx, entryKey(namespace, gen, key), raw, ttl).Err()
}

// Invalidate drops every entry of namespace.
func (c *ResponseCache) Invalidate(ctx context.Context, namespace string) error {
	if err := c.client.Incr(ctx, generationKey(namespace)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

func (c *ResponseCache) generation(ctx context.Context, namespace string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(namespace)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

func generationKey(namespace string) string {
	return "cache:" + namespace + ":gen"
}

func entryKey(namespace string, gen int64, key string) string {
	return fmt.Sprintf("cache:%s:%d:%s", namespace, gen, key)
}
