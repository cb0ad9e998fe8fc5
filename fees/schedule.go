package fees

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/finance"
)

// ExpandToInstallments materializes the full schedule: one unpaid installment
// per day of the term, the first due on start.
func ExpandToInstallments(tenantID string, details RepaymentDetails, start finance.Date) []finance.Installment {
	items := make([]finance.Installment, details.RepaymentDays)
	for i := range items {
		items[i] = finance.Installment{
			ID:         uuid.NewString(),
			TenantID:   tenantID,
			Sequence:   i + 1,
			DueDate:    start.AddDays(i),
			AmountDue:  details.DailyInstallment,
			PaidAmount: decimal.Zero,
		}
	}
	return items
}
