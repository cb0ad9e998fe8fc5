package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// SWEEP RUNS (status sweeper history)
// =============================================================================

// Sweep run statuses.
const (
	SweepRunning   = "running"
	SweepCompleted = "completed"
	SweepFailed    = "failed"
)

// SweepRun is one execution of the tenant status sweep.
type SweepRun struct {
	ID             string
	Status         string
	TenantsChecked int
	TenantsChanged int
	Error          string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// SaveSweepRun inserts a run or updates it by id.
func (s *Store) SaveSweepRun(ctx context.Context, r SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sweep_runs (id, status, tenants_checked, tenants_changed, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			tenants_checked = excluded.tenants_checked,
			tenants_changed = excluded.tenants_changed,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Status, r.TenantsChecked, r.TenantsChanged, nullString(r.Error),
		r.StartedAt.UTC().Format(timestampLayout), nullTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// ListSweepRuns returns the most recent runs first. limit <= 0 means all.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, status, tenants_checked, tenants_changed, error, started_at, completed_at
		FROM sweep_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var (
			r           SweepRun
			errText     sql.NullString
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Status, &r.TenantsChecked, &r.TenantsChanged,
			&errText, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		r.Error = errText.String
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		r.CompletedAt = parseTime(completedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
