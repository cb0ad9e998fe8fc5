/*
Package report renders tenant statements.

PURPOSE:
  Field agents hand tenants a one-page statement: fee breakdown, what is
  due and paid so far, the risk level, and the daily schedule. The same
  schedule is exported as CSV for reconciliation in spreadsheets.

SEE ALSO:
  - api/handlers.go: GET /api/tenants/{id}/statement.pdf and installments.csv
*/
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/fees"
	"github.com/welile/tenants-hub/finance"
	"github.com/welile/tenants-hub/portfolio"
)

// Statement is everything printed on one tenant statement.
type Statement struct {
	Tenant       finance.Tenant
	Details      fees.RepaymentDetails
	Installments []finance.Installment
	Totals       portfolio.Totals
	Risk         portfolio.RiskAssessment
	AsOf         finance.Date
	GeneratedAt  time.Time
}

// WriteStatementPDF writes an A4 statement to w.
func WriteStatementPDF(w io.Writer, s Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Welile Tenants Hub - Repayment Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	generated := s.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.CellFormat(190, 6, fmt.Sprintf("As of %s | Generated %s", s.AsOf, generated.Format("02-Jan-2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Tenant
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Tenant", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, "Name: "+s.Tenant.Name, "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Phone: "+s.Tenant.Phone, "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Landlord: "+s.Tenant.LandlordName, "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Location: "+s.Tenant.Location, "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Status: "+string(s.Tenant.Status), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Agent: "+s.Tenant.AgentID, "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Fee breakdown
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, fmt.Sprintf("Fee Schedule (%d days)", s.Details.RepaymentDays), "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	for _, row := range []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Rent", s.Details.RentAmount},
		{"Registration fee", s.Details.RegistrationFee},
		{"Access fees", s.Details.AccessFees},
		{"Total repayable", s.Details.TotalAmount},
		{"Daily installment", s.Details.DailyInstallment},
	} {
		pdf.CellFormat(120, 7, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 7, FormatMoney(row.amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Position
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Position", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, "Due: "+FormatMoney(s.Totals.Expected), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Paid: "+FormatMoney(s.Totals.Paid), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Collection: %s%%", s.Totals.CollectionRate().StringFixed(1)), "1", 1, "C", false, 0, "")

	outstanding := s.Totals.Outstanding()
	balanceText := "Outstanding: " + FormatMoney(outstanding)
	switch {
	case outstanding.IsNegative():
		pdf.SetFillColor(200, 255, 200)
		balanceText = "Paid ahead: " + FormatMoney(outstanding.Neg())
	case outstanding.IsZero():
		pdf.SetFillColor(200, 255, 200)
	default:
		pdf.SetFillColor(255, 200, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	riskText := fmt.Sprintf("Risk: %s (score %d) | Missed installments: %d", s.Risk.Level, s.Risk.Score, s.Totals.MissedCount)
	if s.Risk.InsufficientHistory {
		riskText = "Risk: no installments due yet"
	}
	pdf.CellFormat(190, 8, riskText, "1", 1, "L", false, 0, "")

	// Schedule
	if len(s.Installments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Daily Schedule", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(15, 7, "#", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Due date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Amount due", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Paid", "1", 0, "C", true, 0, "")
		pdf.CellFormat(60, 7, "Recorded by", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, item := range s.Installments {
			paid := "-"
			if item.Paid {
				paid = FormatMoney(item.PaidAmount)
			}
			pdf.CellFormat(15, 6, strconv.Itoa(item.Sequence), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, item.DueDate.String(), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, FormatMoney(item.AmountDue), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, paid, "1", 0, "R", false, 0, "")
			pdf.CellFormat(60, 6, item.RecordedBy, "1", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render statement: %w", err)
	}
	return pdf.Output(w)
}

// WriteInstallmentsCSV writes one row per installment with a header row.
func WriteInstallmentsCSV(w io.Writer, items []finance.Installment) error {
	cw := csv.NewWriter(w)
	header := []string{"tenant_id", "sequence", "due_date", "amount_due", "paid", "paid_amount", "recorded_by", "recorded_at", "service_center"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, item := range items {
		recordedAt := ""
		if item.RecordedAt != nil {
			recordedAt = item.RecordedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			item.TenantID,
			strconv.Itoa(item.Sequence),
			item.DueDate.String(),
			item.AmountDue.String(),
			strconv.FormatBool(item.Paid),
			item.PaidAmount.String(),
			item.RecordedBy,
			recordedAt,
			item.ServiceCenter,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatMoney renders whole currency units with thousands separators,
// e.g. 1,355,000.
func FormatMoney(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
