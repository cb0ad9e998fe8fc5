/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the persistence interfaces (finance.Store, drafts.Store) plus
  the sweep-run log using SQLite. The calculators never see this package;
  the API loads snapshots from here and hands them to fees/portfolio.

INTERFACES IMPLEMENTED:
  finance.TenantStore:      Tenant records
  finance.InstallmentStore: Repayment schedules and payment recording
  drafts.Store:             Half-filled onboarding forms

PAYMENT RECORDING:
  RecordPayment is a conditional UPDATE (... WHERE paid = 0). Two agents
  recording the same installment race on the row; exactly one wins and the
  other gets finance.ErrAlreadyPaid.

KEY TABLES:
  tenants:      One row per tenant or pipeline lead
  installments: Daily repayment schedule rows (cascade-deleted with tenant)
  drafts:       JSON envelope per draft key
  sweep_runs:   One row per status sweep

MONEY:
  Amounts are stored as decimal strings. Unparseable or NULL amounts read
  back as zero.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/tenants.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - finance/store.go: Interface definitions
  - finance/store/memory.go: In-memory implementation for testing
  - drafts/drafts.go: Draft store interface
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/drafts"
	"github.com/welile/tenants-hub/finance"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ finance.Store = (*Store)(nil)
	_ drafts.Store  = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		agent_id TEXT,
		landlord_name TEXT,
		location TEXT,
		service_center TEXT,
		rent_amount TEXT,
		repayment_days INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		converted_from_pipeline BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	-- Duplicate detection on onboarding
	CREATE INDEX IF NOT EXISTS idx_tenants_name_phone
		ON tenants(lower(trim(name)), trim(phone));
	CREATE INDEX IF NOT EXISTS idx_tenants_status
		ON tenants(status);
	CREATE INDEX IF NOT EXISTS idx_tenants_created_at
		ON tenants(created_at);

	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		amount_due TEXT,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_amount TEXT,
		recorded_by TEXT,
		recorded_at TEXT,
		service_center TEXT,
		UNIQUE(tenant_id, sequence)
	);

	-- Portfolio aggregation walks every tenant's schedule by due date
	CREATE INDEX IF NOT EXISTS idx_installments_tenant_due
		ON installments(tenant_id, due_date);
	CREATE INDEX IF NOT EXISTS idx_installments_recorded_by
		ON installments(recorded_by) WHERE recorded_by IS NOT NULL;

	CREATE TABLE IF NOT EXISTS drafts (
		key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'running',
		tenants_checked INTEGER DEFAULT 0,
		tenants_changed INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_started_at
		ON sweep_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"installments", "tenants", "drafts", "sweep_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// timestampLayout has fixed-width fractions so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timestampLayout), Valid: true}
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// parseAmount applies the coalesce-to-zero policy for stored money.
func parseAmount(s sql.NullString) decimal.Decimal {
	if !s.Valid {
		return decimal.Zero
	}
	return finance.MustParseDecimal(s.String)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
