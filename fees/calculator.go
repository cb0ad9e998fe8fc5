/*
Package fees computes repayment fee schedules.

PURPOSE:
  Given a rent amount and a repayment term, produce the registration fee,
  the access fee, the total to repay and the flat daily installment, then
  expand that into dated installment line items.

FORMULA:
  RegistrationFee  = round(rent * 2.5%)
  AccessFees       = round(rent * 33%)
  TotalAmount      = rent + RegistrationFee + AccessFees
  DailyInstallment = round(TotalAmount / RepaymentDays)

  Rounding is to the nearest whole currency unit, halves rounded up.
  The per-day rounding remainder is not carried into the last day, so
  DailyInstallment * RepaymentDays may differ from TotalAmount by up to
  half a unit per day.

ACCESS FEE:
  The product labels the access fee "compound interest", but every
  historical total was computed with a flat 33% of rent independent of the
  term. The flat rate is kept so existing totals reconcile.

EXAMPLE:
  rent 500000, 60 days:
    RegistrationFee  = 12500
    AccessFees       = 165000
    TotalAmount      = 677500
    DailyInstallment = 11292

SEE ALSO:
  - schedule.go: Installment expansion
  - finance/errors.go: InvalidRentAmountError, InvalidTermError
*/
package fees

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// RATES
// =============================================================================

var (
	RegistrationFeeRate = decimal.RequireFromString("0.025")
	AccessFeeRate       = decimal.RequireFromString("0.33")
)

// =============================================================================
// TERM
// =============================================================================

// Term is a supported repayment term length in days.
type Term int

const (
	Term30 Term = 30
	Term60 Term = 60
	Term90 Term = 90
)

var Terms = []Term{Term30, Term60, Term90}

// ParseTerm validates a repayment term.
func ParseTerm(days int) (Term, error) {
	switch Term(days) {
	case Term30, Term60, Term90:
		return Term(days), nil
	}
	return 0, &finance.InvalidTermError{Days: days}
}

func (t Term) Days() int { return int(t) }

// =============================================================================
// REPAYMENT DETAILS
// =============================================================================

type RepaymentDetails struct {
	RentAmount       decimal.Decimal
	RepaymentDays    int
	RegistrationFee  decimal.Decimal
	AccessFees       decimal.Decimal
	TotalAmount      decimal.Decimal
	DailyInstallment decimal.Decimal
}

// ParseRentAmount converts a float rent amount, rejecting NaN, infinities and
// non-positive values.
func ParseRentAmount(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, &finance.InvalidRentAmountError{Reason: "must be a finite number"}
	}
	d := decimal.NewFromFloat(f)
	if !d.IsPositive() {
		return decimal.Zero, finance.NewInvalidRentAmount(d)
	}
	return d, nil
}

// CalculateRepaymentDetails computes the fee schedule for a fee-bearing tenant.
func CalculateRepaymentDetails(rent decimal.Decimal, repaymentDays int) (RepaymentDetails, error) {
	if !rent.IsPositive() {
		return RepaymentDetails{}, finance.NewInvalidRentAmount(rent)
	}
	term, err := ParseTerm(repaymentDays)
	if err != nil {
		return RepaymentDetails{}, err
	}

	registration := finance.Round(rent.Mul(RegistrationFeeRate))
	access := finance.Round(rent.Mul(AccessFeeRate))
	return withFees(rent, term, registration, access), nil
}

// CalculateForStatus applies the onboarding rule for the tenant's status:
// pipeline tenants owe no registration or access fee, and a pipeline lead
// without a rent amount yet gets an all-zero schedule.
func CalculateForStatus(rent decimal.Decimal, repaymentDays int, status finance.TenantStatus) (RepaymentDetails, error) {
	if status.IsFeeBearing() {
		return CalculateRepaymentDetails(rent, repaymentDays)
	}

	term, err := ParseTerm(repaymentDays)
	if err != nil {
		return RepaymentDetails{}, err
	}
	if rent.IsNegative() {
		return RepaymentDetails{}, finance.NewInvalidRentAmount(rent)
	}
	return withFees(rent, term, decimal.Zero, decimal.Zero), nil
}

func withFees(rent decimal.Decimal, term Term, registration, access decimal.Decimal) RepaymentDetails {
	total := rent.Add(registration).Add(access)
	daily := finance.Round(total.Div(decimal.NewFromInt(int64(term.Days()))))

	return RepaymentDetails{
		RentAmount:       rent,
		RepaymentDays:    term.Days(),
		RegistrationFee:  registration,
		AccessFees:       access,
		TotalAmount:      total,
		DailyInstallment: daily,
	}
}

// ScheduledTotal is what the expanded schedule actually asks for:
// DailyInstallment * RepaymentDays.
func (d RepaymentDetails) ScheduledTotal() decimal.Decimal {
	return d.DailyInstallment.Mul(decimal.NewFromInt(int64(d.RepaymentDays)))
}
