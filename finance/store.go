/*
store.go - Persistence interfaces for tenants and installments

PURPOSE:
  Defines the interface between the API layer and the database. The
  calculators never touch a store: callers load a snapshot, hand it to
  fees/portfolio, and persist whatever comes back.

KEY INTERFACES:
  TenantStore:      Tenant records (CRUD + duplicate lookup)
  InstallmentStore: Repayment schedules and payment recording
  Store:            Both, which is what the API needs

PAYMENT RECORDING:
  An installment moves unpaid -> paid exactly once via RecordPayment.
  A second RecordPayment on the same installment fails with ErrAlreadyPaid,
  so two agents racing on one installment cannot both succeed. Amount
  corrections go through EditPayment.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (WAL)
  - finance/store/memory.go: In-memory for testing

SEE ALSO:
  - drafts/drafts.go: Draft persistence interface
*/
package finance

import "context"

// TenantStore handles persistence of tenant records.
type TenantStore interface {
	// SaveTenant inserts or replaces a tenant.
	SaveTenant(ctx context.Context, t Tenant) error

	// GetTenant returns ErrTenantNotFound when the id is unknown.
	GetTenant(ctx context.Context, id string) (*Tenant, error)

	// ListTenants returns all tenants ordered by creation time.
	ListTenants(ctx context.Context) ([]Tenant, error)

	UpdateTenantStatus(ctx context.Context, id string, status TenantStatus) error

	// DeleteTenant removes the tenant and its installments.
	DeleteTenant(ctx context.Context, id string) error

	// FindDuplicateTenant returns a tenant with the same name and phone, or nil.
	FindDuplicateTenant(ctx context.Context, name, phone string) (*Tenant, error)
}

// InstallmentStore handles repayment schedules.
type InstallmentStore interface {
	// SaveInstallments persists a schedule atomically. Either all succeed or none do.
	SaveInstallments(ctx context.Context, items []Installment) error

	// ListInstallments returns a tenant's schedule ordered by sequence.
	ListInstallments(ctx context.Context, tenantID string) ([]Installment, error)

	// ListAllInstallments returns every installment ordered by tenant, sequence.
	ListAllInstallments(ctx context.Context) ([]Installment, error)

	GetInstallment(ctx context.Context, id string) (*Installment, error)

	// RecordPayment marks an unpaid installment as paid.
	// Returns ErrAlreadyPaid if it was paid before.
	RecordPayment(ctx context.Context, p PaymentRecording) (*Installment, error)

	// EditPayment corrects the amount of a paid installment.
	// Returns ErrNotPaid if no payment was recorded.
	EditPayment(ctx context.Context, p PaymentRecording) (*Installment, error)
}

// Store is the full persistence surface used by the API.
type Store interface {
	TenantStore
	InstallmentStore

	// SaveTenantWithInstallments onboards a tenant and its schedule atomically.
	SaveTenantWithInstallments(ctx context.Context, t Tenant, items []Installment) error
}
