// Package cache implements the cache-aside layer: Redis-backed
// get/set with MD5 cache-key fingerprinting over the canonicalized query
// parts, and a getOrCompute helper the search service dispatches through.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the cache entry lifetime when none is configured.
const DefaultTTL = 5 * time.Minute

// Backend is the narrow Redis surface the cache needs, satisfied by
// *redis.Client; exported so other packages' tests can substitute a fake
// without a live Redis instance.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// redisBackend adapts a *redis.Client to Backend.
type redisBackend struct {
	rdb *redis.Client
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b redisBackend) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.SetEx(ctx, key, value, ttl).Err()
}

// Cache is a Redis-backed cache-aside layer. A nil value for any part is
// excluded from the key before hashing.
type Cache struct {
	b   Backend
	ttl time.Duration
	log *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default entry lifetime.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithLogger overrides the cache's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New constructs a Cache over rdb.
func New(rdb *redis.Client, opts ...Option) *Cache {
	return NewWithBackend(redisBackend{rdb: rdb}, opts...)
}

// NewWithBackend constructs a Cache over an arbitrary Backend, primarily for
// tests in other packages that need a cache-aside Service without a live
// Redis instance.
func NewWithBackend(b Backend, opts ...Option) *Cache {
	c := &Cache{b: b, ttl: DefaultTTL, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key fingerprints (query, parts) into a "search:"-prefixed MD5 hex digest.
// parts with a nil value are excluded; the remaining (key, str(value)) pairs
// are sorted lexicographically before hashing so semantically equal queries
// always produce the same key.
func Key(query string, parts map[string]any) string {
	type pair struct{ k, v string }
	var pairs []pair
	for k, v := range parts {
		if v == nil {
			continue
		}
		pairs = append(pairs, pair{k, fmt.Sprintf("%v", v)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	h := md5.New()
	fmt.Fprintf(h, "%s", query)
	for _, p := range pairs {
		fmt.Fprintf(h, "|%s=%s", p.k, p.v)
	}
	return fmt.Sprintf("search:%x", h.Sum(nil))
}

// Get deserializes the value stored at key into a T, or returns (zero,
// false) on miss. A backend error is logged and treated as a miss.
// A free function rather than a method because Go methods cannot be
// generic.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T
	data, err := c.b.Get(ctx, key)
	if err != nil {
		if err != redis.Nil {
			c.log.Error("cache: get failed", "key", key, "error", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Error("cache: corrupt cached value", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// Set serializes value and writes it with the configured TTL. A backend
// error is logged and swallowed — writes are best-effort.
func Set[T any](ctx context.Context, c *Cache, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Error("cache: marshal failed", "key", key, "error", err)
		return
	}
	if err := c.b.SetEx(ctx, key, data, c.ttl); err != nil {
		c.log.Error("cache: set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for key if present (including an
// empty-but-non-nil object); otherwise it calls compute, persists the
// result, and returns it. Errors from compute propagate; cache backend
// errors never do.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, compute func() (T, error)) (T, error) {
	if v, ok := Get[T](ctx, c, key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	Set(ctx, c, key, v)
	return v, nil
}
