/*
Package portfolio derives dashboard statistics from tenants and installments.

PURPOSE:
  Every function here is a pure query over a snapshot supplied by the
  caller. Nothing is fetched, cached or mutated; the same inputs always
  give the same numbers.

TOTALITY:
  Dashboards run these over bulk, possibly dirty data, so none of them
  return errors:
  - empty collections give zero results
  - every ratio returns 0 when its denominator is 0
  - a zero-valued (missing) amount counts as 0

KEY CONCEPTS:
  Expected:       Sum of AmountDue over installments due on or before asOf
  Paid:           Sum of PaidAmount over installments marked paid, any date
  Outstanding:    Expected - Paid. Negative means the tenant paid ahead;
                  it is reported as such, never clamped
  CollectionRate: Paid / Expected * 100
  Missed:         Unpaid installments due strictly before asOf
  At risk:        Missed >= AtRiskThreshold

SEE ALSO:
  - risk.go: Risk scoring and ranking
  - trend.go: Month-over-month collection trend
  - leaderboard.go: Agent collection ranking
*/
package portfolio

import (
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/finance"
)

// AtRiskThreshold is the number of missed installments that flags a tenant.
const AtRiskThreshold = 3

// =============================================================================
// TOTALS
// =============================================================================

type Totals struct {
	Expected decimal.Decimal
	Paid     decimal.Decimal

	DueCount    int // installments due on or before asOf
	PaidCount   int
	MissedCount int
}

// Tally sums a set of installments as of a date.
func Tally(items []finance.Installment, asOf finance.Date) Totals {
	t := Totals{Expected: decimal.Zero, Paid: decimal.Zero}
	for _, item := range items {
		if item.IsDue(asOf) {
			t.Expected = t.Expected.Add(item.AmountDue)
			t.DueCount++
		}
		if item.Paid {
			t.Paid = t.Paid.Add(item.PaidAmount)
			t.PaidCount++
		}
		if item.IsMissed(asOf) {
			t.MissedCount++
		}
	}
	return t
}

// Add combines two tallies.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Expected:    t.Expected.Add(o.Expected),
		Paid:        t.Paid.Add(o.Paid),
		DueCount:    t.DueCount + o.DueCount,
		PaidCount:   t.PaidCount + o.PaidCount,
		MissedCount: t.MissedCount + o.MissedCount,
	}
}

func (t Totals) Outstanding() decimal.Decimal {
	return t.Expected.Sub(t.Paid)
}

// PaidAhead reports an overpayment (negative outstanding balance).
func (t Totals) PaidAhead() bool {
	return t.Outstanding().IsNegative()
}

func (t Totals) CollectionRate() decimal.Decimal {
	return CollectionRate(t.Paid, t.Expected)
}

func (t Totals) IsAtRisk() bool {
	return t.MissedCount >= AtRiskThreshold
}

// =============================================================================
// RATES
// =============================================================================

// OutstandingBalance is Expected - Paid for the installments.
func OutstandingBalance(items []finance.Installment, asOf finance.Date) decimal.Decimal {
	return Tally(items, asOf).Outstanding()
}

// CollectionRate returns paid/expected*100, or 0 when nothing is expected.
func CollectionRate(paid, expected decimal.Decimal) decimal.Decimal {
	return finance.Percent(paid, expected)
}

// ConversionRate returns the share of pipeline leads that became tenants.
// A converted tenant counts in any status other than pipeline, so leads that
// later cleared or fell overdue still count as conversions. Leads still in
// the pipeline count towards the denominator only.
func ConversionRate(tenants []finance.Tenant) decimal.Decimal {
	var converted, pipeline int64
	for _, t := range tenants {
		switch {
		case t.Status == finance.StatusPipeline:
			pipeline++
		case t.ConvertedFromPipeline:
			converted++
		}
	}
	return finance.Percent(decimal.NewFromInt(converted), decimal.NewFromInt(converted+pipeline))
}

// MissedInstallments counts unpaid installments due before asOf.
func MissedInstallments(items []finance.Installment, asOf finance.Date) int {
	missed := 0
	for _, item := range items {
		if item.IsMissed(asOf) {
			missed++
		}
	}
	return missed
}

// IsAtRisk reports whether at least AtRiskThreshold installments were missed.
func IsAtRisk(items []finance.Installment, asOf finance.Date) bool {
	return MissedInstallments(items, asOf) >= AtRiskThreshold
}

// =============================================================================
// GROUPING
// =============================================================================

// ByTenant groups installments by tenant id, preserving input order.
func ByTenant(items []finance.Installment) map[string][]finance.Installment {
	grouped := make(map[string][]finance.Installment)
	for _, item := range items {
		grouped[item.TenantID] = append(grouped[item.TenantID], item)
	}
	return grouped
}

// =============================================================================
// TENANT STATS
// =============================================================================

type TenantStats struct {
	TenantID string
	Totals   Totals
	Risk     RiskAssessment
}

func (s TenantStats) Outstanding() decimal.Decimal    { return s.Totals.Outstanding() }
func (s TenantStats) CollectionRate() decimal.Decimal { return s.Totals.CollectionRate() }
func (s TenantStats) AtRisk() bool                    { return s.Totals.IsAtRisk() }

// ForTenant computes the per-tenant dashboard figures.
func ForTenant(tenantID string, items []finance.Installment, asOf finance.Date) TenantStats {
	return TenantStats{
		TenantID: tenantID,
		Totals:   Tally(items, asOf),
		Risk:     Score(items, asOf),
	}
}

// =============================================================================
// PORTFOLIO SUMMARY
// =============================================================================

type Summary struct {
	AsOf         finance.Date
	TenantCount  int
	StatusCounts map[finance.TenantStatus]int

	Totals Totals

	AtRiskCount    int
	PaidAheadCount int
	OverdueCount   int // tenants whose status is overdue
	ConversionRate decimal.Decimal
}

func (s Summary) Outstanding() decimal.Decimal    { return s.Totals.Outstanding() }
func (s Summary) CollectionRate() decimal.Decimal { return s.Totals.CollectionRate() }

// Summarize aggregates the whole portfolio. Installments of tenants missing
// from the tenant list are ignored; pipeline tenants carry no schedule and
// only contribute to counts and the conversion rate.
func Summarize(tenants []finance.Tenant, items []finance.Installment, asOf finance.Date) Summary {
	s := Summary{
		AsOf:           asOf,
		TenantCount:    len(tenants),
		StatusCounts:   make(map[finance.TenantStatus]int),
		Totals:         Totals{Expected: decimal.Zero, Paid: decimal.Zero},
		ConversionRate: ConversionRate(tenants),
	}

	grouped := ByTenant(items)
	for _, t := range tenants {
		s.StatusCounts[t.Status]++
		if t.Status == finance.StatusOverdue {
			s.OverdueCount++
		}
		if !t.Status.IsFeeBearing() {
			continue
		}

		totals := Tally(grouped[t.ID], asOf)
		s.Totals = s.Totals.Add(totals)
		if totals.IsAtRisk() {
			s.AtRiskCount++
		}
		if totals.PaidAhead() {
			s.PaidAheadCount++
		}
	}
	return s
}
