/*
Package drafts persists half-filled onboarding forms.

PURPOSE:
  Agents fill the add-tenant form in several sittings. The form state is
  saved under a caller-chosen key and restored later. Persistence is an
  injected Store so the onboarding flow can be tested without a browser
  or a database.

DRAFT VARIANTS:
  A draft is one of two explicit variants instead of one loosely-typed bag
  of optional fields:

    PipelineTenantDraft: a lead. Name and phone only; no rent, no fees.
    FullTenantDraft:     a tenant ready for onboarding. Rent, term and
                         status are required and validated.

  Each variant validates itself; the API converts a valid draft into a
  finance.Tenant.

WIRE FORMAT:
  {"kind": "pipeline" | "full", "draft": {...variant fields...}}

SEE ALSO:
  - codec.go: JSON envelope
  - store/sqlite/drafts.go: SQLite Store implementation
*/
package drafts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/fees"
	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// DRAFT VARIANTS
// =============================================================================

type Kind string

const (
	KindPipeline Kind = "pipeline"
	KindFull     Kind = "full"
)

// TenantDraft is implemented by PipelineTenantDraft and FullTenantDraft only.
type TenantDraft interface {
	Kind() Kind
	Validate() error
	isTenantDraft()
}

type PipelineTenantDraft struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (PipelineTenantDraft) Kind() Kind     { return KindPipeline }
func (PipelineTenantDraft) isTenantDraft() {}

func (d PipelineTenantDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return invalid("name is required")
	}
	if strings.TrimSpace(d.Phone) == "" {
		return invalid("phone is required")
	}
	return nil
}

type FullTenantDraft struct {
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	AgentID       string          `json:"agent_id,omitempty"`
	LandlordName  string          `json:"landlord_name,omitempty"`
	Location      string          `json:"location,omitempty"`
	ServiceCenter string          `json:"service_center,omitempty"`
	RentAmount    decimal.Decimal `json:"rent_amount"`
	RepaymentDays int             `json:"repayment_days"`
	Status        string          `json:"status,omitempty"` // defaults to active
}

func (FullTenantDraft) Kind() Kind     { return KindFull }
func (FullTenantDraft) isTenantDraft() {}

func (d FullTenantDraft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return invalid("name is required")
	}
	if strings.TrimSpace(d.Phone) == "" {
		return invalid("phone is required")
	}
	if !d.RentAmount.IsPositive() {
		return fmt.Errorf("%w: %w", finance.ErrInvalidDraft, finance.NewInvalidRentAmount(d.RentAmount))
	}
	if _, err := fees.ParseTerm(d.RepaymentDays); err != nil {
		return fmt.Errorf("%w: %w", finance.ErrInvalidDraft, err)
	}
	status, err := d.TenantStatus()
	if err != nil {
		return fmt.Errorf("%w: %w", finance.ErrInvalidDraft, err)
	}
	if status == finance.StatusPipeline {
		return invalid("full drafts cannot use the pipeline status")
	}
	return nil
}

// TenantStatus returns the requested status, active when unset.
func (d FullTenantDraft) TenantStatus() (finance.TenantStatus, error) {
	if strings.TrimSpace(d.Status) == "" {
		return finance.StatusActive, nil
	}
	return finance.ParseTenantStatus(d.Status)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", finance.ErrInvalidDraft, msg)
}

// =============================================================================
// STORE - Draft persistence capability
// =============================================================================

// Store saves drafts under opaque keys (typically user + form id).
type Store interface {
	// Load returns ErrDraftNotFound when nothing is saved under key.
	Load(ctx context.Context, key string) (TenantDraft, error)
	Save(ctx context.Context, key string, draft TenantDraft) error
	// Clear is a no-op for unknown keys.
	Clear(ctx context.Context, key string) error
}

// Memory is an in-memory Store.
type Memory struct {
	mu     sync.RWMutex
	drafts map[string]TenantDraft
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{drafts: make(map[string]TenantDraft)}
}

func (m *Memory) Load(_ context.Context, key string) (TenantDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drafts[key]
	if !ok {
		return nil, finance.ErrDraftNotFound
	}
	return d, nil
}

func (m *Memory) Save(_ context.Context, key string, draft TenantDraft) error {
	if draft == nil {
		return invalid("draft is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[key] = draft
	return nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key)
	return nil
}
