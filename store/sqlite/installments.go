package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// INSTALLMENT STORE (finance.InstallmentStore interface)
// =============================================================================

const installmentColumns = `id, tenant_id, sequence, due_date, amount_due, paid, paid_amount,
	recorded_by, recorded_at, service_center`

// SaveInstallments persists a schedule atomically.
func (s *Store) SaveInstallments(ctx context.Context, items []finance.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, item := range items {
		if err := s.saveInstallment(ctx, sqlTx, item); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (s *Store) saveInstallment(ctx context.Context, db execer, item finance.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			due_date = excluded.due_date,
			amount_due = excluded.amount_due,
			paid = excluded.paid,
			paid_amount = excluded.paid_amount,
			recorded_by = excluded.recorded_by,
			recorded_at = excluded.recorded_at,
			service_center = excluded.service_center
	`

	_, err := db.ExecContext(ctx, query,
		item.ID,
		item.TenantID,
		item.Sequence,
		item.DueDate.String(),
		item.AmountDue.String(),
		item.Paid,
		item.PaidAmount.String(),
		nullString(item.RecordedBy),
		nullTime(item.RecordedAt),
		nullString(item.ServiceCenter),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return finance.ErrTenantNotFound
		}
		if isUniqueConstraintError(err) {
			return fmt.Errorf("installment %d of tenant %s already exists: %w", item.Sequence, item.TenantID, err)
		}
		return fmt.Errorf("failed to save installment: %w", err)
	}
	return nil
}

// ListInstallments returns a tenant's schedule ordered by sequence.
func (s *Store) ListInstallments(ctx context.Context, tenantID string) ([]finance.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE tenant_id = ? ORDER BY sequence ASC`,
		tenantID)
}

// ListAllInstallments returns every installment grouped by tenant.
func (s *Store) ListAllInstallments(ctx context.Context) ([]finance.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInstallments(ctx, `
		SELECT i.id, i.tenant_id, i.sequence, i.due_date, i.amount_due, i.paid, i.paid_amount,
		       i.recorded_by, i.recorded_at, i.service_center
		FROM installments i
		JOIN tenants t ON t.id = i.tenant_id
		ORDER BY t.created_at ASC, t.rowid ASC, i.sequence ASC
	`)
}

func (s *Store) GetInstallment(ctx context.Context, id string) (*finance.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getInstallment(ctx, id)
}

func (s *Store) getInstallment(ctx context.Context, id string) (*finance.Installment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)
	item, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrInstallmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RecordPayment flips an unpaid installment to paid. The WHERE paid = 0
// guard makes the transition happen at most once.
func (s *Store) RecordPayment(ctx context.Context, p finance.PaymentRecording) (*finance.Installment, error) {
	if !p.Amount.IsPositive() {
		return nil, finance.ErrInvalidPayment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := p.At
	result, err := s.db.ExecContext(ctx, `
		UPDATE installments
		SET paid = 1, paid_amount = ?, recorded_by = ?, recorded_at = ?, service_center = ?
		WHERE id = ? AND paid = 0
	`, p.Amount.String(), nullString(p.RecordedBy), nullTime(&at), nullString(p.ServiceCenter), p.InstallmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := s.getInstallment(ctx, p.InstallmentID); err != nil {
			return nil, err
		}
		return nil, finance.ErrAlreadyPaid
	}
	return s.getInstallment(ctx, p.InstallmentID)
}

// EditPayment corrects the amount on a paid installment.
func (s *Store) EditPayment(ctx context.Context, p finance.PaymentRecording) (*finance.Installment, error) {
	if !p.Amount.IsPositive() {
		return nil, finance.ErrInvalidPayment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := p.At
	result, err := s.db.ExecContext(ctx, `
		UPDATE installments
		SET paid_amount = ?, recorded_by = COALESCE(?, recorded_by), recorded_at = ?
		WHERE id = ? AND paid = 1
	`, p.Amount.String(), nullString(p.RecordedBy), nullTime(&at), p.InstallmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to edit payment: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := s.getInstallment(ctx, p.InstallmentID); err != nil {
			return nil, err
		}
		return nil, finance.ErrNotPaid
	}
	return s.getInstallment(ctx, p.InstallmentID)
}

func (s *Store) queryInstallments(ctx context.Context, query string, args ...any) ([]finance.Installment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var items []finance.Installment
	for rows.Next() {
		item, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanInstallment(row rowScanner) (finance.Installment, error) {
	var (
		item          finance.Installment
		dueDate       string
		amountDue     sql.NullString
		paidAmount    sql.NullString
		recordedBy    sql.NullString
		recordedAt    sql.NullString
		serviceCenter sql.NullString
	)

	err := row.Scan(
		&item.ID, &item.TenantID, &item.Sequence, &dueDate, &amountDue, &item.Paid, &paidAmount,
		&recordedBy, &recordedAt, &serviceCenter,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to scan installment: %w", err)
	}

	item.DueDate, err = finance.ParseDate(dueDate)
	if err != nil {
		return item, fmt.Errorf("installment %s has invalid due date %q: %w", item.ID, dueDate, err)
	}
	item.AmountDue = parseAmount(amountDue)
	item.PaidAmount = parseAmount(paidAmount)
	item.RecordedBy = recordedBy.String
	item.RecordedAt = parseTime(recordedAt)
	item.ServiceCenter = serviceCenter.String
	return item, nil
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
