package portfolio

import "github.com/welile/tenants-hub/finance"

// NextStatus derives a tenant's status from its schedule as of a date.
//
//	every installment paid            -> cleared
//	AtRiskThreshold or more missed    -> overdue
//	overdue or cleared, otherwise     -> active
//
// Pipeline, pending and review tenants are waiting on a person, not on
// payments, and are returned unchanged. So is a tenant with no schedule.
func NextStatus(current finance.TenantStatus, items []finance.Installment, asOf finance.Date) finance.TenantStatus {
	switch current {
	case finance.StatusActive, finance.StatusOverdue, finance.StatusCleared:
	default:
		return current
	}
	if len(items) == 0 {
		return current
	}

	allPaid := true
	for _, item := range items {
		if !item.Paid {
			allPaid = false
			break
		}
	}

	switch {
	case allPaid:
		return finance.StatusCleared
	case MissedInstallments(items, asOf) >= AtRiskThreshold:
		return finance.StatusOverdue
	default:
		return finance.StatusActive
	}
}
