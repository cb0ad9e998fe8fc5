/*
Package finance provides the shared domain model of the tenants hub.

PURPOSE:
  Tenants have their rent advanced and repay it, plus fees, in flat daily
  installments over a fixed term. This package holds the records every other
  package passes around: tenants, installments, dates, and the money helpers
  that keep rounding identical everywhere.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tenant: a renter whose rent is financed (or a pipeline lead)
  - Installment: one day's line item in a repayment schedule
  - TenantStatus: lifecycle variant (pipeline tenants carry no fees)
  - Money helpers: whole-unit rounding and coalesce-to-zero parsing

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, never float64, for money
  2. Plain data: Records carry no behaviour beyond small derived helpers
  3. Coalesce-to-zero: a missing or unparseable amount counts as 0

SEE ALSO:
  - fees/calculator.go: Fee schedule calculation
  - portfolio/stats.go: Aggregations over tenants and installments
  - store.go: Persistence interfaces
*/
package finance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

var Hundred = decimal.NewFromInt(100)

// Round rounds to the nearest whole currency unit, halves away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// MustParseDecimal parses s, returning zero for empty or invalid input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Coalesce returns zero for a nil pointer.
func Coalesce(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Percent returns part/whole*100, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(Hundred)
}

// =============================================================================
// TENANT STATUS
// =============================================================================

type TenantStatus string

const (
	StatusActive   TenantStatus = "active"
	StatusPending  TenantStatus = "pending"
	StatusReview   TenantStatus = "review"
	StatusCleared  TenantStatus = "cleared"
	StatusOverdue  TenantStatus = "overdue"
	StatusPipeline TenantStatus = "pipeline"
)

var AllStatuses = []TenantStatus{
	StatusActive, StatusPending, StatusReview, StatusCleared, StatusOverdue, StatusPipeline,
}

func ParseTenantStatus(s string) (TenantStatus, error) {
	status := TenantStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

// IsFeeBearing reports whether registration and access fees apply.
// Pipeline tenants are leads; their fees are always zero.
func (s TenantStatus) IsFeeBearing() bool {
	return s != StatusPipeline
}

// =============================================================================
// TENANT
// =============================================================================

type Tenant struct {
	ID            string
	Name          string
	Phone         string
	AgentID       string
	LandlordName  string
	Location      string
	ServiceCenter string

	RentAmount    decimal.Decimal
	RepaymentDays int
	Status        TenantStatus

	// Set when a pipeline lead was converted into a full tenant.
	ConvertedFromPipeline bool

	CreatedAt time.Time
}

// =============================================================================
// INSTALLMENT - One day of a repayment schedule
// =============================================================================

// Installment is created unpaid at onboarding and flips to paid exactly once
// when an agent records a payment. Paid amounts may later be edited.
type Installment struct {
	ID         string
	TenantID   string
	Sequence   int // 1-based position within the term
	DueDate    Date
	AmountDue  decimal.Decimal
	Paid       bool
	PaidAmount decimal.Decimal

	// Provenance, set when paid
	RecordedBy    string
	RecordedAt    *time.Time
	ServiceCenter string
}

// IsDue reports whether the installment's due date has been reached by asOf.
func (i Installment) IsDue(asOf Date) bool {
	return i.DueDate.BeforeOrEqual(asOf)
}

// IsMissed reports an unpaid installment whose due date has passed.
func (i Installment) IsMissed(asOf Date) bool {
	return !i.Paid && i.DueDate.Before(asOf)
}

// PaymentRecording is the input of recording (or editing) a payment.
type PaymentRecording struct {
	InstallmentID string
	Amount        decimal.Decimal
	RecordedBy    string
	ServiceCenter string
	At            time.Time
}
