package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welile/tenants-hub/events"
	"github.com/welile/tenants-hub/finance"
	"github.com/welile/tenants-hub/store/sqlite"
)

func TestStatusSweeper_MovesTenantsBothWays(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// GIVEN: A tenant who has paid nothing for ten days and a pipeline lead
	tenant, items := ts.onboard(t, "Grace", "0772")
	ts.do(t, http.MethodPost, "/api/tenants", map[string]any{
		"kind": "pipeline", "draft": map[string]any{"name": "Lead", "phone": "0779"},
	})

	// WHEN: The sweep runs
	result, err := ts.h.Sweeper.RunNow(ctx)

	// THEN: The tenant is overdue and the lead was not considered
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Changed)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, StatusChange{TenantID: tenant.ID, From: finance.StatusActive, To: finance.StatusOverdue}, result.Changes[0])

	got, err := ts.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.StatusOverdue, got.Status)

	// WHEN: The tenant catches up and the sweep runs again
	ts.pay(t, items, 10, "agent-1")
	result, err = ts.h.Sweeper.RunNow(ctx)

	// THEN: Back to active
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)
	got, err = ts.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.StatusActive, got.Status)

	// AND: A sweep with nothing to change changes nothing
	result, err = ts.h.Sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed)
	assert.Empty(t, result.Changes)
}

func TestStatusSweeper_PublishesChangesOnItsClock(t *testing.T) {
	ts := newTestServer(t)
	tenant, _ := ts.onboard(t, "Grace", "0772")
	feed, cancel := ts.h.Hub.Subscribe(events.TableTenants)
	defer cancel()

	// WHEN: The sweep moves the tenant to overdue
	_, err := ts.h.Sweeper.RunNow(context.Background())
	require.NoError(t, err)

	// THEN: The event carries the sweeper's clock, not the wall clock
	select {
	case e := <-feed:
		assert.Equal(t, tenant.ID, e.ID)
		assert.Equal(t, events.ActionUpdate, e.Action)
		assert.True(t, e.At.Equal(fixedNow), "got %s", e.At)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestStatusSweeper_RecordsRunsAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.onboard(t, "Grace", "0772")

	_, err := ts.h.Sweeper.RunNow(context.Background())
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/sweeps/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[SweepResult](t, rec)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, "2025-03-10", result.AsOf.String())

	rec = ts.do(t, http.MethodGet, "/api/sweeps/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]SweepRunDTO](t, rec)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, sqlite.SweepCompleted, run.Status)
		assert.Equal(t, 1, run.TenantsChecked)
		assert.NotNil(t, run.CompletedAt)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(ts.h.Metrics.SweepRuns.WithLabelValues(sqlite.SweepCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.h.Metrics.AtRiskTenants))
}

func TestStatusSweeper_StartStop(t *testing.T) {
	ts := newTestServer(t)
	sweeper := NewStatusSweeper(ts.h, ts.store)

	sweeper.Spec = "not a schedule"
	assert.Error(t, sweeper.Start())

	sweeper.Spec = "@every 1h"
	require.NoError(t, sweeper.Start())
	require.NoError(t, sweeper.Start(), "starting twice is harmless")
	sweeper.Stop()
	sweeper.Stop()

	disabled := NewStatusSweeper(ts.h, nil)
	disabled.Enabled = false
	require.NoError(t, disabled.Start())
	disabled.Stop()

	// A sweeper without run history still sweeps.
	_, err := disabled.RunNow(context.Background())
	assert.NoError(t, err)
}

func TestTriggerSweep_WithoutSweeper(t *testing.T) {
	ts := newTestServer(t)
	ts.h.Sweeper = nil

	rec := ts.do(t, http.MethodPost, "/api/sweeps/run", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/sweeps/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]SweepRunDTO](t, rec))
}
