/*
scheduler.go - Automated tenant status sweep

PURPOSE:
  Tenant status drifts as days pass without payments. The sweeper
  periodically recomputes each tenant's status from its installments and
  persists the changes, so dashboards filtering on "overdue" or "cleared"
  stay truthful without an agent touching every record.

RULES (portfolio.NextStatus):
  - every installment paid                 -> cleared
  - 3 or more missed installments          -> overdue
  - overdue/cleared tenant otherwise       -> active
  - pipeline, pending and review           -> untouched

DESIGN:
  - robfig/cron drives the schedule (default "@daily")
  - Runs are serialized; RunNow may be called from the API at any time
  - Every run is recorded (running -> completed/failed) for audit and UI
  - Each run refreshes the portfolio gauges

USAGE:
  sweeper := NewStatusSweeper(handler, store)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - portfolio/status.go: Transition rule
  - store/sqlite/sweeps.go: Run history
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/welile/tenants-hub/cache"
	"github.com/welile/tenants-hub/events"
	"github.com/welile/tenants-hub/finance"
	"github.com/welile/tenants-hub/metrics"
	"github.com/welile/tenants-hub/portfolio"
	"github.com/welile/tenants-hub/store/sqlite"
)

// DefaultSweepSpec runs the sweep once a day at midnight.
const DefaultSweepSpec = "@daily"

// SweepRunStore records sweep history.
type SweepRunStore interface {
	SaveSweepRun(ctx context.Context, r sqlite.SweepRun) error
	ListSweepRuns(ctx context.Context, limit int) ([]sqlite.SweepRun, error)
}

// StatusChange is one tenant moved by a sweep.
type StatusChange struct {
	TenantID string               `json:"tenant_id"`
	From     finance.TenantStatus `json:"from"`
	To       finance.TenantStatus `json:"to"`
}

// SweepResult summarizes one run.
type SweepResult struct {
	RunID   string         `json:"run_id"`
	AsOf    finance.Date   `json:"as_of"`
	Checked int            `json:"tenants_checked"`
	Changed int            `json:"tenants_changed"`
	Changes []StatusChange `json:"changes"`
}

// StatusSweeper recomputes tenant statuses on a cron schedule.
type StatusSweeper struct {
	Store   finance.Store
	Runs    SweepRunStore // optional
	Hub     *events.Hub
	Metrics *metrics.Metrics
	Cache   *cache.Cache
	Log     logrus.FieldLogger
	Clock   func() time.Time

	Spec    string
	Enabled bool

	cron  *cron.Cron
	runMu sync.Mutex
	mu    sync.Mutex
}

// NewStatusSweeper shares the handler's store, hub, metrics, cache and clock.
func NewStatusSweeper(h *Handler, runs SweepRunStore) *StatusSweeper {
	return &StatusSweeper{
		Store:   h.Store,
		Runs:    runs,
		Hub:     h.Hub,
		Metrics: h.Metrics,
		Cache:   h.Cache,
		Log:     h.Log.WithField("component", "sweeper"),
		Clock:   h.Clock,
		Spec:    DefaultSweepSpec,
		Enabled: true,
	}
}

// Start schedules the sweep. A disabled sweeper only serves RunNow.
func (s *StatusSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("status sweeper disabled, not starting")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.Spec, s.scheduledRun); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.Spec, err)
	}
	c.Start()
	s.cron = c

	s.Log.WithField("spec", s.Spec).Info("status sweeper started")
	return nil
}

// Stop unschedules the sweep and waits for a running sweep to finish.
func (s *StatusSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.Log.Info("status sweeper stopped")
}

func (s *StatusSweeper) scheduledRun() {
	if _, err := s.RunNow(context.Background()); err != nil {
		s.Log.WithError(err).Error("scheduled status sweep failed")
	}
}

// RunNow performs one sweep as of today.
func (s *StatusSweeper) RunNow(ctx context.Context) (SweepResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	now := s.Clock().UTC()
	run := sqlite.SweepRun{ID: uuid.NewString(), Status: sqlite.SweepRunning, StartedAt: now}
	s.saveRun(ctx, run)

	result, err := s.sweep(ctx, run.ID, finance.DateOf(now))

	completed := s.Clock().UTC()
	run.CompletedAt = &completed
	run.TenantsChecked = result.Checked
	run.TenantsChanged = result.Changed
	if err != nil {
		run.Status = sqlite.SweepFailed
		run.Error = err.Error()
	} else {
		run.Status = sqlite.SweepCompleted
	}
	s.saveRun(ctx, run)
	s.Metrics.ObserveSweep(run.Status)

	s.Log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"status":  run.Status,
		"checked": result.Checked,
		"changed": result.Changed,
	}).Info("status sweep finished")

	return result, err
}

func (s *StatusSweeper) sweep(ctx context.Context, runID string, asOf finance.Date) (SweepResult, error) {
	result := SweepResult{RunID: runID, AsOf: asOf, Changes: []StatusChange{}}

	tenants, err := s.Store.ListTenants(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list tenants: %w", err)
	}
	items, err := s.Store.ListAllInstallments(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list installments: %w", err)
	}
	grouped := portfolio.ByTenant(items)

	for i, t := range tenants {
		if !t.Status.IsFeeBearing() {
			continue
		}
		result.Checked++

		next := portfolio.NextStatus(t.Status, grouped[t.ID], asOf)
		if next == t.Status {
			continue
		}
		if err := s.Store.UpdateTenantStatus(ctx, t.ID, next); err != nil {
			return result, fmt.Errorf("failed to update tenant %s: %w", t.ID, err)
		}

		result.Changed++
		result.Changes = append(result.Changes, StatusChange{TenantID: t.ID, From: t.Status, To: next})
		tenants[i].Status = next
		s.Hub.Publish(events.Event{Table: events.TableTenants, Action: events.ActionUpdate, ID: t.ID, At: s.Clock().UTC()})
	}

	if result.Changed > 0 {
		s.Cache.InvalidateSummaries(ctx)
	}
	s.Metrics.SetPortfolio(portfolio.Summarize(tenants, items, asOf))
	return result, nil
}

func (s *StatusSweeper) saveRun(ctx context.Context, run sqlite.SweepRun) {
	if s.Runs == nil {
		return
	}
	if err := s.Runs.SaveSweepRun(ctx, run); err != nil {
		s.Log.WithError(err).WithField("run_id", run.ID).Warn("failed to record sweep run")
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListSweepRuns handles GET /api/sweeps/runs
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil || h.Sweeper.Runs == nil {
		writeJSON(w, http.StatusOK, []SweepRunDTO{})
		return
	}
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit", err)
		return
	}

	runs, err := h.Sweeper.Runs.ListSweepRuns(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, "failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toSweepRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TriggerSweep handles POST /api/sweeps/run
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "status sweeper is not configured", nil)
		return
	}

	result, err := h.Sweeper.RunNow(r.Context())
	if err != nil {
		h.writeDomainError(w, "status sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
