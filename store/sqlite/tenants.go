package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// TENANT STORE (finance.TenantStore interface)
// =============================================================================

const tenantColumns = `id, name, phone, agent_id, landlord_name, location, service_center,
	rent_amount, repayment_days, status, converted_from_pipeline, created_at`

// SaveTenant inserts or replaces a tenant. Installments are untouched.
func (s *Store) SaveTenant(ctx context.Context, t finance.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveTenant(ctx, s.db, t)
}

func (s *Store) saveTenant(ctx context.Context, db execer, t finance.Tenant) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			agent_id = excluded.agent_id,
			landlord_name = excluded.landlord_name,
			location = excluded.location,
			service_center = excluded.service_center,
			rent_amount = excluded.rent_amount,
			repayment_days = excluded.repayment_days,
			status = excluded.status,
			converted_from_pipeline = excluded.converted_from_pipeline
	`

	_, err := db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Phone,
		nullString(t.AgentID),
		nullString(t.LandlordName),
		nullString(t.Location),
		nullString(t.ServiceCenter),
		t.RentAmount.String(),
		t.RepaymentDays,
		string(t.Status),
		t.ConvertedFromPipeline,
		createdAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

// SaveTenantWithInstallments persists a tenant and its schedule in one
// database transaction, so onboarding never leaves a tenant without its
// installments.
func (s *Store) SaveTenantWithInstallments(ctx context.Context, t finance.Tenant, items []finance.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := s.saveTenant(ctx, sqlTx, t); err != nil {
		return err
	}
	for _, item := range items {
		if err := s.saveInstallment(ctx, sqlTx, item); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// GetTenant returns finance.ErrTenantNotFound for an unknown id.
func (s *Store) GetTenant(ctx context.Context, id string) (*finance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTenants returns all tenants ordered by creation time.
func (s *Store) ListTenants(ctx context.Context) ([]finance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []finance.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) UpdateTenantStatus(ctx context.Context, id string, status finance.TenantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `UPDATE tenants SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return finance.ErrTenantNotFound
	}
	return nil
}

// DeleteTenant removes the tenant; installments cascade.
func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return finance.ErrTenantNotFound
	}
	return nil
}

// FindDuplicateTenant matches name case-insensitively and phone exactly,
// both ignoring surrounding whitespace.
func (s *Store) FindDuplicateTenant(ctx context.Context, name, phone string) (*finance.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE lower(trim(name)) = lower(trim(?)) AND trim(phone) = trim(?)
		ORDER BY created_at ASC
		LIMIT 1
	`, name, phone)

	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTenant(row rowScanner) (finance.Tenant, error) {
	var (
		t             finance.Tenant
		agentID       sql.NullString
		landlordName  sql.NullString
		location      sql.NullString
		serviceCenter sql.NullString
		rentAmount    sql.NullString
		status        string
		createdAt     string
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.Phone, &agentID, &landlordName, &location, &serviceCenter,
		&rentAmount, &t.RepaymentDays, &status, &t.ConvertedFromPipeline, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan tenant: %w", err)
	}

	t.AgentID = agentID.String
	t.LandlordName = landlordName.String
	t.Location = location.String
	t.ServiceCenter = serviceCenter.String
	t.RentAmount = parseAmount(rentAmount)
	t.Status = finance.TenantStatus(status)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return t, nil
}
