package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/ziadkadry99/healthtrace/internal/logging"
)

// Cache stores the full pattern list per user for a fixed TTL.
type Cache interface {
	Get(ctx context.Context, userID string) ([]Pattern, bool)
	Set(ctx context.Context, userID string, patterns []Pattern)
	Invalidate(ctx context.Context, userID string)
}

type memoryEntry struct {
	patterns  []Pattern
	expiresAt time.Time
}

// MemoryCache is a per-process cache. Expiry is decided only by the injected
// clock: entries are stored without a go-cache expiration and stale ones are
// pruned on Set. Patterns are copied in and out so callers cannot alter a
// cached result.
type MemoryCache struct {
	store *gocache.Cache
	clock clockwork.Clock
	ttl   time.Duration
}

// NewMemoryCache creates an in-process cache. A nil clock uses wall time.
func NewMemoryCache(ttl time.Duration, clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, 0),
		clock: clock,
		ttl:   ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, userID string) ([]Pattern, bool) {
	v, ok := c.store.Get(userID)
	if !ok {
		return nil, false
	}
	e := v.(memoryEntry)
	if !c.clock.Now().Before(e.expiresAt) {
		c.store.Delete(userID)
		return nil, false
	}
	return clonePatterns(e.patterns), true
}

func (c *MemoryCache) Set(_ context.Context, userID string, patterns []Pattern) {
	now := c.clock.Now()
	for k, it := range c.store.Items() {
		if e, ok := it.Object.(memoryEntry); ok && !now.Before(e.expiresAt) {
			c.store.Delete(k)
		}
	}
	c.store.Set(userID, memoryEntry{
		patterns:  clonePatterns(patterns),
		expiresAt: now.Add(c.ttl),
	}, gocache.NoExpiration)
}

func clonePatterns(in []Pattern) []Pattern {
	if in == nil {
		return nil
	}
	out := make([]Pattern, len(in))
	for i, p := range in {
		p.RelatedItemIDs = slices.Clone(p.RelatedItemIDs)
		p.CommonSymptoms = slices.Clone(p.CommonSymptoms)
		out[i] = p
	}
	return out
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) {
	c.store.Delete(userID)
}

// RedisCache shares the pattern cache between processes. Values are JSON
// and expire through Redis TTLs. Redis errors are logged and behave as a
// miss, so detection falls back to recomputing.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisCache connects using a redis:// URL.
func NewRedisCache(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return NewRedisCacheWithClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "healthtrace:patterns:",
		logger: logging.OrDefault(logger).With("component", "pattern-cache"),
	}
}

func (c *RedisCache) key(userID string) string {
	return c.prefix + userID
}

func (c *RedisCache) Get(ctx context.Context, userID string) ([]Pattern, bool) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis get failed", "user_id", userID, "error", err)
		return nil, false
	}
	var patterns []Pattern
	if err := json.Unmarshal(data, &patterns); err != nil {
		c.logger.Warn("discarding malformed cache entry", "user_id", userID, "error", err)
		return nil, false
	}
	return patterns, true
}

func (c *RedisCache) Set(ctx context.Context, userID string, patterns []Pattern) {
	if patterns == nil {
		patterns = []Pattern{}
	}
	data, err := json.Marshal(patterns)
	if err != nil {
		c.logger.Warn("encoding patterns for cache", "user_id", userID, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(userID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "user_id", userID, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		c.logger.Warn("redis delete failed", "user_id", userID, "error", err)
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
