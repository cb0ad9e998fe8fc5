package portfolio

import (
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/finance"
)

// TrendPoint is one period of the collection trend chart.
type TrendPoint struct {
	Period      finance.Period
	TenantCount int // fee-bearing tenants created on or before Period.End
	Totals      Totals

	// Percentage change of Paid (collected amount, not collection rate)
	// against the previous point; 0 for the first point or when the previous
	// point collected nothing.
	PaidChange decimal.Decimal
}

func (p TrendPoint) CollectionRate() decimal.Decimal { return p.Totals.CollectionRate() }

// Trend computes collection per period. A tenant counts towards a period
// only if it existed by the period's end; an installment counts towards the
// period its due date falls in. Totals are tallied as of the period end, or
// asOf for a period that has not ended yet, so the current month agrees with
// Summarize.
func Trend(tenants []finance.Tenant, items []finance.Installment, periods []finance.Period, asOf finance.Date) []TrendPoint {
	grouped := ByTenant(items)
	points := make([]TrendPoint, 0, len(periods))

	for i, period := range periods {
		point := TrendPoint{
			Period:     period,
			Totals:     Totals{Expected: decimal.Zero, Paid: decimal.Zero},
			PaidChange: decimal.Zero,
		}

		cutoff := period.End
		if asOf.Before(cutoff) {
			cutoff = asOf
		}

		for _, t := range tenants {
			if !t.Status.IsFeeBearing() || finance.DateOf(t.CreatedAt).After(period.End) {
				continue
			}
			point.TenantCount++

			var inPeriod []finance.Installment
			for _, item := range grouped[t.ID] {
				if period.Contains(item.DueDate) {
					inPeriod = append(inPeriod, item)
				}
			}
			point.Totals = point.Totals.Add(Tally(inPeriod, cutoff))
		}

		if i > 0 {
			prev := points[i-1].Totals.Paid
			if !prev.IsZero() {
				point.PaidChange = finance.Percent(point.Totals.Paid.Sub(prev), prev)
			}
		}
		points = append(points, point)
	}
	return points
}
