package currency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "currency:v1:"

// CachedRegistry is a read-through Redis cache in front of another Registry.
// Only hits are cached; a Redis failure falls back to the wrapped registry.
type CachedRegistry struct {
	next   Registry
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRegistry wraps next with a Redis cache holding entries for ttl.
func NewCachedRegistry(next Registry, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRegistry {
	return &CachedRegistry{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Resolve looks the name up in Redis before asking the wrapped registry.
func (r *CachedRegistry) Resolve(ctx context.Context, name string) (Currency, error) {
	key := cachePrefix + name

	raw, err := r.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var c Currency
		if err := json.Unmarshal(raw, &c); err == nil {
			return c, nil
		}
		r.logger.Warn("discarding undecodable cached currency", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("currency cache lookup failed", slog.String("key", key), slog.Any("error", err))
	}

	c, err := r.next.Resolve(ctx, name)
	if err != nil {
		return Currency{}, err
	}

	payload, err := json.Marshal(c)
	if err == nil {
		if err := r.cache.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("currency cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return c, nil
}

// List is not cached; it is only used by listing endpoints.
func (r *CachedRegistry) List(ctx context.Context) ([]Currency, error) {
	return r.next.List(ctx)
}
