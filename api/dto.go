/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - Money rendered as decimal strings, dates as YYYY-MM-DD

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Fees:        QuoteRequest, RepaymentDetailsDTO
  Tenants:     CreateTenantRequest, TenantDTO, UpdateStatusRequest, ConvertRequest
  Schedule:    InstallmentDTO, TenantStatsDTO
  Payments:    RecordPaymentRequest, EditPaymentRequest
  Portfolio:   SummaryDTO, TenantRiskDTO, TrendPointDTO, AgentStandingDTO
  Operations:  SweepRunDTO, ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - drafts/codec.go: Draft envelope embedded in CreateTenantRequest
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/fees"
	"github.com/welile/tenants-hub/finance"
	"github.com/welile/tenants-hub/portfolio"
	"github.com/welile/tenants-hub/store/sqlite"
)

// =============================================================================
// FEES
// =============================================================================

// QuoteRequest asks for a fee schedule without creating anything.
type QuoteRequest struct {
	RentAmount    decimal.Decimal `json:"rent_amount"`
	RepaymentDays int             `json:"repayment_days"`
	Status        string          `json:"status,omitempty"`
}

type RepaymentDetailsDTO struct {
	RentAmount       decimal.Decimal `json:"rent_amount"`
	RepaymentDays    int             `json:"repayment_days"`
	RegistrationFee  decimal.Decimal `json:"registration_fee"`
	AccessFees       decimal.Decimal `json:"access_fees"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DailyInstallment decimal.Decimal `json:"daily_installment"`
}

// =============================================================================
// TENANTS
// =============================================================================

// CreateTenantRequest carries a draft envelope ({"kind", "draft"}) plus
// onboarding options. When DraftKey is set the stored draft is cleared after
// a successful onboard.
type CreateTenantRequest struct {
	Kind      string          `json:"kind"`
	Draft     json.RawMessage `json:"draft"`
	StartDate *finance.Date   `json:"start_date,omitempty"`
	DraftKey  string          `json:"draft_key,omitempty"`
}

type TenantDTO struct {
	ID                    string               `json:"id"`
	Name                  string               `json:"name"`
	Phone                 string               `json:"phone"`
	AgentID               string               `json:"agent_id,omitempty"`
	LandlordName          string               `json:"landlord_name,omitempty"`
	Location              string               `json:"location,omitempty"`
	ServiceCenter         string               `json:"service_center,omitempty"`
	RentAmount            decimal.Decimal      `json:"rent_amount"`
	RepaymentDays         int                  `json:"repayment_days"`
	Status                string               `json:"status"`
	ConvertedFromPipeline bool                 `json:"converted_from_pipeline"`
	CreatedAt             string               `json:"created_at"`
	Fees                  *RepaymentDetailsDTO `json:"fees,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// ConvertRequest turns a pipeline lead into a fee-bearing tenant.
type ConvertRequest struct {
	RentAmount    decimal.Decimal `json:"rent_amount"`
	RepaymentDays int             `json:"repayment_days"`
	Status        string          `json:"status,omitempty"`
	LandlordName  string          `json:"landlord_name,omitempty"`
	StartDate     *finance.Date   `json:"start_date,omitempty"`
}

// =============================================================================
// SCHEDULE & STATS
// =============================================================================

type InstallmentDTO struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Sequence      int             `json:"sequence"`
	DueDate       finance.Date    `json:"due_date"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	Paid          bool            `json:"paid"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	RecordedBy    string          `json:"recorded_by,omitempty"`
	RecordedAt    *time.Time      `json:"recorded_at,omitempty"`
	ServiceCenter string          `json:"service_center,omitempty"`
}

type RiskDTO struct {
	Score               int             `json:"score"`
	Level               string          `json:"level"`
	CollectionFactor    int             `json:"collection_factor"`
	MissedFactor        int             `json:"missed_factor"`
	TrendFactor         int             `json:"trend_factor"`
	CollectionRate      decimal.Decimal `json:"collection_rate"`
	MissedRate          decimal.Decimal `json:"missed_rate"`
	InsufficientHistory bool            `json:"insufficient_history"`
}

type TenantStatsDTO struct {
	TenantID           string          `json:"tenant_id"`
	AsOf               finance.Date    `json:"as_of"`
	ExpectedToDate     decimal.Decimal `json:"expected_to_date"`
	PaidToDate         decimal.Decimal `json:"paid_to_date"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	CollectionRate     decimal.Decimal `json:"collection_rate"`
	DueInstallments    int             `json:"due_installments"`
	PaidInstallments   int             `json:"paid_installments"`
	MissedInstallments int             `json:"missed_installments"`
	AtRisk             bool            `json:"at_risk"`
	Risk               RiskDTO         `json:"risk"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPaymentRequest records an agent's collection. A missing amount means
// the installment's amount due.
type RecordPaymentRequest struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	RecordedBy    string           `json:"recorded_by"`
	ServiceCenter string           `json:"service_center,omitempty"`
	RecordedAt    *time.Time       `json:"recorded_at,omitempty"`
}

type EditPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	RecordedBy string          `json:"recorded_by,omitempty"`
}

// =============================================================================
// PORTFOLIO
// =============================================================================

type SummaryDTO struct {
	AsOf           finance.Date    `json:"as_of"`
	TenantCount    int             `json:"tenant_count"`
	StatusCounts   map[string]int  `json:"status_counts"`
	ExpectedToDate decimal.Decimal `json:"expected_to_date"`
	PaidToDate     decimal.Decimal `json:"paid_to_date"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
	AtRiskCount    int             `json:"at_risk_count"`
	PaidAheadCount int             `json:"paid_ahead_count"`
	OverdueCount   int             `json:"overdue_count"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
}

type TenantRiskDTO struct {
	TenantID    string          `json:"tenant_id"`
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Missed      int             `json:"missed_installments"`
	Risk        RiskDTO         `json:"risk"`
}

type TrendPointDTO struct {
	Period         string          `json:"period"`
	Start          finance.Date    `json:"start"`
	End            finance.Date    `json:"end"`
	TenantCount    int             `json:"tenant_count"`
	Expected       decimal.Decimal `json:"expected"`
	Paid           decimal.Decimal `json:"paid"`
	CollectionRate decimal.Decimal `json:"collection_rate"`
	PaidChange     decimal.Decimal `json:"paid_change"`
}

type AgentStandingDTO struct {
	Rank      int             `json:"rank"`
	Agent     string          `json:"agent"`
	Collected decimal.Decimal `json:"collected"`
	Payments  int             `json:"payments"`
}

// =============================================================================
// OPERATIONS
// =============================================================================

type SweepRunDTO struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	TenantsChecked int        `json:"tenants_checked"`
	TenantsChanged int        `json:"tenants_changed"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type HealthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRepaymentDetailsDTO(d fees.RepaymentDetails) RepaymentDetailsDTO {
	return RepaymentDetailsDTO{
		RentAmount:       d.RentAmount,
		RepaymentDays:    d.RepaymentDays,
		RegistrationFee:  d.RegistrationFee,
		AccessFees:       d.AccessFees,
		TotalAmount:      d.TotalAmount,
		DailyInstallment: d.DailyInstallment,
	}
}

// toTenantDTO includes the fee breakdown for tenants with a term. Stored
// tenants always carry a valid term, so a calculation error only drops the
// breakdown.
func toTenantDTO(t finance.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:                    t.ID,
		Name:                  t.Name,
		Phone:                 t.Phone,
		AgentID:               t.AgentID,
		LandlordName:          t.LandlordName,
		Location:              t.Location,
		ServiceCenter:         t.ServiceCenter,
		RentAmount:            t.RentAmount,
		RepaymentDays:         t.RepaymentDays,
		Status:                string(t.Status),
		ConvertedFromPipeline: t.ConvertedFromPipeline,
		CreatedAt:             t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.RepaymentDays > 0 {
		if details, err := fees.CalculateForStatus(t.RentAmount, t.RepaymentDays, t.Status); err == nil {
			d := toRepaymentDetailsDTO(details)
			dto.Fees = &d
		}
	}
	return dto
}

func toInstallmentDTO(i finance.Installment) InstallmentDTO {
	return InstallmentDTO{
		ID:            i.ID,
		TenantID:      i.TenantID,
		Sequence:      i.Sequence,
		DueDate:       i.DueDate,
		AmountDue:     i.AmountDue,
		Paid:          i.Paid,
		PaidAmount:    i.PaidAmount,
		RecordedBy:    i.RecordedBy,
		RecordedAt:    i.RecordedAt,
		ServiceCenter: i.ServiceCenter,
	}
}

func toInstallmentDTOs(items []finance.Installment) []InstallmentDTO {
	out := make([]InstallmentDTO, len(items))
	for i, item := range items {
		out[i] = toInstallmentDTO(item)
	}
	return out
}

func toRiskDTO(r portfolio.RiskAssessment) RiskDTO {
	return RiskDTO{
		Score:               r.Score,
		Level:               string(r.Level),
		CollectionFactor:    r.Factors.Collection,
		MissedFactor:        r.Factors.Missed,
		TrendFactor:         r.Factors.Trend,
		CollectionRate:      r.CollectionRate,
		MissedRate:          r.MissedRate,
		InsufficientHistory: r.InsufficientHistory,
	}
}

func toTenantStatsDTO(s portfolio.TenantStats, asOf finance.Date) TenantStatsDTO {
	return TenantStatsDTO{
		TenantID:           s.TenantID,
		AsOf:               asOf,
		ExpectedToDate:     s.Totals.Expected,
		PaidToDate:         s.Totals.Paid,
		Outstanding:        s.Outstanding(),
		CollectionRate:     s.CollectionRate(),
		DueInstallments:    s.Totals.DueCount,
		PaidInstallments:   s.Totals.PaidCount,
		MissedInstallments: s.Totals.MissedCount,
		AtRisk:             s.AtRisk(),
		Risk:               toRiskDTO(s.Risk),
	}
}

func toSummaryDTO(s portfolio.Summary) SummaryDTO {
	counts := make(map[string]int, len(s.StatusCounts))
	for status, n := range s.StatusCounts {
		counts[string(status)] = n
	}
	return SummaryDTO{
		AsOf:           s.AsOf,
		TenantCount:    s.TenantCount,
		StatusCounts:   counts,
		ExpectedToDate: s.Totals.Expected,
		PaidToDate:     s.Totals.Paid,
		Outstanding:    s.Outstanding(),
		CollectionRate: s.CollectionRate(),
		AtRiskCount:    s.AtRiskCount,
		PaidAheadCount: s.PaidAheadCount,
		OverdueCount:   s.OverdueCount,
		ConversionRate: s.ConversionRate,
	}
}

func toTenantRiskDTO(r portfolio.TenantRisk) TenantRiskDTO {
	return TenantRiskDTO{
		TenantID:    r.Tenant.ID,
		Name:        r.Tenant.Name,
		Status:      string(r.Tenant.Status),
		Outstanding: r.Stats.Outstanding(),
		Missed:      r.Stats.Totals.MissedCount,
		Risk:        toRiskDTO(r.Stats.Risk),
	}
}

func toTrendPointDTO(p portfolio.TrendPoint) TrendPointDTO {
	return TrendPointDTO{
		Period:         p.Period.Start.Time.Format("2006-01"),
		Start:          p.Period.Start,
		End:            p.Period.End,
		TenantCount:    p.TenantCount,
		Expected:       p.Totals.Expected,
		Paid:           p.Totals.Paid,
		CollectionRate: p.CollectionRate(),
		PaidChange:     p.PaidChange,
	}
}

func toAgentStandingDTO(s portfolio.AgentStanding) AgentStandingDTO {
	return AgentStandingDTO{Rank: s.Rank, Agent: s.Agent, Collected: s.Collected, Payments: s.Payments}
}

func toSweepRunDTO(r sqlite.SweepRun) SweepRunDTO {
	return SweepRunDTO{
		ID:             r.ID,
		Status:         r.Status,
		TenantsChecked: r.TenantsChecked,
		TenantsChanged: r.TenantsChanged,
		Error:          r.Error,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}
