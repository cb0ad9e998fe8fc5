package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// RISK SCORE - Additive heuristic, 0 (best) to 100 (worst)
// =============================================================================
//
// Three independent factors, each capped:
//
//   Collection rate:     < 30% -> 40,  < 50% -> 25,  < 70% -> 10
//   Missed-payment rate: > 60% -> 30,  > 40% -> 20,  > 20% -> 10
//   Recent trend (last 3 due installments, only when 3 exist):
//                        0 paid -> 30,  1 paid -> 15
//
// Levels: score >= 60 is high, >= 30 is medium, otherwise low.
// Alerting and sorting depend on these exact breakpoints.

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	MaxRiskScore    = 100
	HighRiskScore   = 60
	MediumRiskScore = 30
	RecentWindow    = 3
)

var (
	pct20 = decimal.NewFromInt(20)
	pct30 = decimal.NewFromInt(30)
	pct40 = decimal.NewFromInt(40)
	pct50 = decimal.NewFromInt(50)
	pct60 = decimal.NewFromInt(60)
	pct70 = decimal.NewFromInt(70)
)

type RiskFactors struct {
	Collection int
	Missed     int
	Trend      int
}

type RiskAssessment struct {
	Score   int
	Level   RiskLevel
	Factors RiskFactors

	CollectionRate decimal.Decimal
	MissedRate     decimal.Decimal
	RecentPaid     int // paid among the last RecentWindow due installments; -1 if fewer exist

	// No installment has fallen due yet, so there is nothing to score.
	InsufficientHistory bool
}

func LevelFor(score int) RiskLevel {
	switch {
	case score >= HighRiskScore:
		return RiskHigh
	case score >= MediumRiskScore:
		return RiskMedium
	default:
		return RiskLow
	}
}

func CollectionFactor(rate decimal.Decimal) int {
	switch {
	case rate.LessThan(pct30):
		return 40
	case rate.LessThan(pct50):
		return 25
	case rate.LessThan(pct70):
		return 10
	default:
		return 0
	}
}

func MissedFactor(rate decimal.Decimal) int {
	switch {
	case rate.GreaterThan(pct60):
		return 30
	case rate.GreaterThan(pct40):
		return 20
	case rate.GreaterThan(pct20):
		return 10
	default:
		return 0
	}
}

// TrendFactor scores the number of paid installments in the recent window.
// A negative count means the window is not full yet and scores nothing.
func TrendFactor(recentPaid int) int {
	switch {
	case recentPaid < 0:
		return 0
	case recentPaid == 0:
		return 30
	case recentPaid == 1:
		return 15
	default:
		return 0
	}
}

// ScoreFrom combines already-computed inputs into an assessment.
func ScoreFrom(collectionRate, missedRate decimal.Decimal, recentPaid int) RiskAssessment {
	f := RiskFactors{
		Collection: CollectionFactor(collectionRate),
		Missed:     MissedFactor(missedRate),
		Trend:      TrendFactor(recentPaid),
	}
	score := f.Collection + f.Missed + f.Trend
	if score > MaxRiskScore {
		score = MaxRiskScore
	}
	return RiskAssessment{
		Score:          score,
		Level:          LevelFor(score),
		Factors:        f,
		CollectionRate: collectionRate,
		MissedRate:     missedRate,
		RecentPaid:     recentPaid,
	}
}

// Score assesses one tenant's installments as of a date.
func Score(items []finance.Installment, asOf finance.Date) RiskAssessment {
	due := make([]finance.Installment, 0, len(items))
	for _, item := range items {
		if item.IsDue(asOf) {
			due = append(due, item)
		}
	}
	if len(due) == 0 {
		return RiskAssessment{
			Level:               RiskLow,
			CollectionRate:      decimal.Zero,
			MissedRate:          decimal.Zero,
			RecentPaid:          -1,
			InsufficientHistory: true,
		}
	}

	totals := Tally(due, asOf)
	missedRate := finance.Percent(decimal.NewFromInt(int64(totals.MissedCount)), decimal.NewFromInt(int64(totals.DueCount)))

	recentPaid := -1
	if len(due) >= RecentWindow {
		sort.SliceStable(due, func(i, j int) bool { return due[i].DueDate.Before(due[j].DueDate) })
		recentPaid = 0
		for _, item := range due[len(due)-RecentWindow:] {
			if item.Paid {
				recentPaid++
			}
		}
	}

	return ScoreFrom(totals.CollectionRate(), missedRate, recentPaid)
}

// =============================================================================
// RANKING
// =============================================================================

type TenantRisk struct {
	Tenant finance.Tenant
	Stats  TenantStats
}

// AssessTenants scores every fee-bearing tenant, in input order.
func AssessTenants(tenants []finance.Tenant, items []finance.Installment, asOf finance.Date) []TenantRisk {
	grouped := ByTenant(items)
	result := make([]TenantRisk, 0, len(tenants))
	for _, t := range tenants {
		if !t.Status.IsFeeBearing() {
			continue
		}
		result = append(result, TenantRisk{Tenant: t, Stats: ForTenant(t.ID, grouped[t.ID], asOf)})
	}
	return result
}

// RankByRisk orders by score, worst first. Equal scores keep input order.
func RankByRisk(risks []TenantRisk) []TenantRisk {
	ranked := make([]TenantRisk, len(risks))
	copy(ranked, risks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Stats.Risk.Score > ranked[j].Stats.Risk.Score
	})
	return ranked
}
