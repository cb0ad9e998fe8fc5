package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welile/tenants-hub/finance"
)

func TestNew_EmptyAddrDisablesCache(t *testing.T) {
	c, err := New(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_UnreachableServer(t *testing.T) {
	// Port 1 is reserved; nothing listens there.
	c, err := New(context.Background(), Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestNilCache_IsPermanentMiss(t *testing.T) {
	var c *Cache
	ctx := context.Background()
	key := SummaryKey(finance.NewDate(2025, 3, 10))

	assert.NotPanics(t, func() {
		c.Set(ctx, key, []byte(`{}`))
		c.InvalidateSummaries(ctx)
	})
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
	assert.False(t, c.Healthy(ctx))
	assert.NoError(t, c.Close())
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "portfolio:summary:2025-03-10", SummaryKey(finance.NewDate(2025, 3, 10)))
}

// =============================================================================
// AGAINST AN IN-PROCESS REDIS
// =============================================================================

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client, ttl)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestNew_ConnectsToServer(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(context.Background(), Options{Addr: mr.Addr()})

	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.Healthy(context.Background()))
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close(), "closing twice is harmless")
}

func TestCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	key := SummaryKey(finance.NewDate(2025, 3, 10))

	// GIVEN: A stored summary
	c.Set(ctx, key, []byte(`{"tenant_count":3}`))

	// THEN: It is served back with the configured TTL
	data, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.JSONEq(t, `{"tenant_count":3}`, string(data))
	assert.Equal(t, time.Minute, mr.TTL(key))

	// WHEN: The TTL passes
	mr.FastForward(2 * time.Minute)

	// THEN: It is a miss
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCache_InvalidateSummaries(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	// GIVEN: Two cached summaries and an unrelated key
	march10 := SummaryKey(finance.NewDate(2025, 3, 10))
	march11 := SummaryKey(finance.NewDate(2025, 3, 11))
	c.Set(ctx, march10, []byte(`{}`))
	c.Set(ctx, march11, []byte(`{}`))
	require.NoError(t, mr.Set("sessions:abc", "keep"))
	before := c.Generation()

	// WHEN: Summaries are invalidated
	c.InvalidateSummaries(ctx)

	// THEN: Only summary keys are gone and the generation moved on
	assert.False(t, mr.Exists(march10))
	assert.False(t, mr.Exists(march11))
	assert.True(t, mr.Exists("sessions:abc"))
	assert.Equal(t, before+1, c.Generation())
}

func TestCache_SetIfCurrent_SkipsStaleWrites(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	key := SummaryKey(finance.NewDate(2025, 3, 10))

	// GIVEN: A summary computed before a mutation invalidated the cache
	gen := c.Generation()
	c.InvalidateSummaries(ctx)

	// WHEN: The old summary is written back
	written := c.SetIfCurrent(ctx, key, []byte(`{"stale":true}`), gen)

	// THEN: It is dropped
	assert.False(t, written)
	assert.False(t, mr.Exists(key))

	// AND: A summary computed after the invalidation is stored
	assert.True(t, c.SetIfCurrent(ctx, key, []byte(`{}`), c.Generation()))
	assert.True(t, mr.Exists(key))
}

func TestNilCache_SetIfCurrent(t *testing.T) {
	var c *Cache
	assert.Zero(t, c.Generation())
	assert.False(t, c.SetIfCurrent(context.Background(), "k", []byte(`{}`), 0))
}
