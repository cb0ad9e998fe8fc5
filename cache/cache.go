/*
Package cache is an optional Redis cache for computed portfolio views.

PURPOSE:
  The portfolio summary walks every installment of every tenant. With Redis
  configured, the JSON response is cached per as-of date and dropped on every
  mutation.

GRACEFUL DEGRADATION:
  A nil *Cache, a disabled cache, or an unreachable server all behave as a
  permanent miss. Writes and invalidations are then no-ops, so callers never
  branch on whether caching is on.

STALE WRITES:
  A summary computed from a snapshot taken before an invalidation must not
  be stored after it. Callers read Generation before loading data and write
  with SetIfCurrent; an invalidation in between turns the write into a no-op.
  The counter is per process, matching the single-instance deployment.

SEE ALSO:
  - api/handlers.go: summary endpoint and invalidation after mutations
*/
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/welile/tenants-hub/finance"
)

// Key prefixes.
const (
	SummaryKeyFmt  = "portfolio:summary:%s"
	SummaryPattern = "portfolio:summary:*"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration

	// generation is bumped by every summary invalidation.
	generation atomic.Uint64
}

// New connects to Redis. An empty Addr returns (nil, nil): caching is off.
// A failed ping returns the error and no cache; callers log and continue.
func New(ctx context.Context, opts Options) (*Cache, error) {
	if opts.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return NewWithClient(client, opts.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func SummaryKey(asOf finance.Date) string {
	return fmt.Sprintf(SummaryKeyFmt, asOf.String())
}

// Get returns the cached bytes and whether they were found.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, key, data, c.ttl)
}

// Generation returns the current invalidation generation. Zero for a nil cache.
func (c *Cache) Generation() uint64 {
	if c == nil {
		return 0
	}
	return c.generation.Load()
}

// SetIfCurrent stores data only if no summary invalidation happened since gen
// was read. It reports whether the value was written.
func (c *Cache) SetIfCurrent(ctx context.Context, key string, data []byte, gen uint64) bool {
	if c == nil || c.client == nil || c.generation.Load() != gen {
		return false
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return false
	}
	// An invalidation may have run between the check and the write.
	if c.generation.Load() != gen {
		c.client.Del(ctx, key)
		return false
	}
	return true
}

// InvalidateSummaries drops every cached summary.
func (c *Cache) InvalidateSummaries(ctx context.Context) {
	if c == nil {
		return
	}
	c.generation.Add(1)
	c.InvalidatePattern(ctx, SummaryPattern)
}

// InvalidatePattern removes all keys matching a glob pattern.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if c == nil || c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...)
	}
}

// Healthy reports whether Redis answers a ping. A nil cache is not healthy.
func (c *Cache) Healthy(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
