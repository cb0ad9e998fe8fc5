package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welile/tenants-hub/cache"
	"github.com/welile/tenants-hub/events"
	"github.com/welile/tenants-hub/finance"
)

func withSummaryCache(t *testing.T, ts *testServer) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	ts.h.Cache = cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { ts.h.Cache.Close() })
	return mr
}

func TestGetSummary_CachedUntilPaymentRecorded(t *testing.T) {
	ts := newTestServer(t)
	mr := withSummaryCache(t, ts)
	_, items := ts.onboard(t, "Grace", "0772")
	ts.pay(t, items, 5, "agent-1")
	key := cache.SummaryKey(finance.DateOf(fixedNow))

	// WHEN: The summary is requested twice
	first := ts.do(t, http.MethodGet, "/api/portfolio/summary", nil)
	second := ts.do(t, http.MethodGet, "/api/portfolio/summary", nil)

	// THEN: The first computes and stores it, the second is served from Redis
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("X-Cache"))
	assert.True(t, mr.Exists(key))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// WHEN: A payment is recorded
	ts.pay(t, items[5:], 1, "agent-1")

	// THEN: The cached summary is gone and the next read sees the payment
	assert.False(t, mr.Exists(key))
	rec := ts.do(t, http.MethodGet, "/api/portfolio/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assertDecimal(t, 6*11292, decode[SummaryDTO](t, rec).PaidToDate)
}

func TestGetSummary_StaleSnapshotIsNotCached(t *testing.T) {
	ts := newTestServer(t)
	mr := withSummaryCache(t, ts)
	key := cache.SummaryKey(finance.DateOf(fixedNow))

	// GIVEN: A generation read before a mutation lands
	gen := ts.h.Cache.Generation()
	ts.h.changed(context.Background(), events.TableTenants, events.ActionUpdate, "t-1")

	// WHEN: A summary computed from the older snapshot is written back
	written := ts.h.Cache.SetIfCurrent(context.Background(), key, []byte(`{"tenant_count":0}`), gen)

	// THEN: The write is dropped and the next request computes afresh
	assert.False(t, written)
	assert.False(t, mr.Exists(key))
	rec := ts.do(t, http.MethodGet, "/api/portfolio/summary", nil)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.True(t, mr.Exists(key))
}

func TestGetSummary_CacheHitLeavesGauges(t *testing.T) {
	ts := newTestServer(t)
	withSummaryCache(t, ts)
	ts.onboard(t, "Grace", "0772")

	// GIVEN: A miss for today refreshes the gauges
	rec := ts.do(t, http.MethodGet, "/api/portfolio/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.h.Metrics.AtRiskTenants))

	// WHEN: The gauge moves elsewhere and the summary is served from cache
	ts.h.Metrics.AtRiskTenants.Set(42)
	rec = ts.do(t, http.MethodGet, "/api/portfolio/summary", nil)

	// THEN: The hit does not recompute the gauges
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, 42.0, testutil.ToFloat64(ts.h.Metrics.AtRiskTenants))
}
