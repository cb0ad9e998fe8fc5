/*
errors.go - Centralized error types for the repayment engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The calculators fail fast with these on malformed input; the stores and
  the API wrap them with additional context.

ERROR CATEGORIES:
  1. Calculation errors - invalid rent amount or repayment term
  2. Lookup errors - missing tenants, installments, drafts
  3. State errors - duplicate tenants, installments already paid

USAGE:
  if errors.Is(err, finance.ErrInvalidTerm) {
      // 400
  }

  var termErr *finance.InvalidTermError
  if errors.As(err, &termErr) {
      log.Printf("rejected term %d", termErr.Days)
  }

SEE ALSO:
  - fees/calculator.go: Returns InvalidRentAmountError / InvalidTermError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package finance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRentAmount is returned when a rent amount is non-positive or non-finite.
	ErrInvalidRentAmount = errors.New("invalid rent amount")

	// ErrInvalidTerm is returned when repayment days are outside {30, 60, 90}.
	ErrInvalidTerm = errors.New("invalid repayment term")

	// ErrInvalidStatus is returned for an unknown tenant status.
	ErrInvalidStatus = errors.New("invalid tenant status")

	ErrTenantNotFound      = errors.New("tenant not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrDraftNotFound       = errors.New("draft not found")

	// ErrInvalidDraft is returned when a draft fails validation for its variant.
	ErrInvalidDraft = errors.New("invalid draft")

	// ErrDuplicateTenant is returned when a tenant with the same name and phone exists.
	ErrDuplicateTenant = errors.New("duplicate tenant")

	// ErrAlreadyPaid is returned when recording a payment on a paid installment.
	// Corrections go through EditPayment instead.
	ErrAlreadyPaid = errors.New("installment already paid")

	// ErrNotPaid is returned when editing a payment that was never recorded.
	ErrNotPaid = errors.New("installment not paid")

	// ErrInvalidPayment is returned for a non-positive payment amount.
	ErrInvalidPayment = errors.New("invalid payment amount")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRentAmountError reports the rejected rent amount.
// Value is empty when the input was NaN or infinite.
type InvalidRentAmountError struct {
	Value  string
	Reason string
}

func NewInvalidRentAmount(d decimal.Decimal) *InvalidRentAmountError {
	return &InvalidRentAmountError{Value: d.String(), Reason: "must be greater than zero"}
}

func (e *InvalidRentAmountError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid rent amount: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rent amount %s: %s", e.Value, e.Reason)
}

func (e *InvalidRentAmountError) Unwrap() error {
	return ErrInvalidRentAmount
}

// InvalidTermError reports a repayment term outside the supported set.
type InvalidTermError struct {
	Days int
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("invalid repayment term: %d days (allowed: 30, 60, 90)", e.Days)
}

func (e *InvalidTermError) Unwrap() error {
	return ErrInvalidTerm
}

// DuplicateTenantError identifies the existing record a new tenant collides with.
type DuplicateTenantError struct {
	Name       string
	Phone      string
	ExistingID string
}

func (e *DuplicateTenantError) Error() string {
	return fmt.Sprintf("tenant %q (%s) already exists as %s", e.Name, e.Phone, e.ExistingID)
}

func (e *DuplicateTenantError) Unwrap() error {
	return ErrDuplicateTenant
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRentAmount) ||
		errors.Is(err, ErrInvalidTerm) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidDraft) ||
		errors.Is(err, ErrInvalidPayment)
}

// IsConflict returns true if the request conflicts with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateTenant) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrNotPaid)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrDraftNotFound)
}
