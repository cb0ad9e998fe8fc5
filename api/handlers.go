/*
handlers.go - HTTP API handlers for the tenants hub

PURPOSE:
  Exposes the fee calculator, the tenant store and the portfolio aggregator
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Fees:
    POST   /api/fees/quote                    Fee schedule for a rent and term

  Tenants:
    GET    /api/tenants                       List tenants (?status=)
    POST   /api/tenants                       Onboard from a draft envelope
    GET    /api/tenants/{id}                  Tenant with fee breakdown
    DELETE /api/tenants/{id}                  Remove tenant and schedule
    PUT    /api/tenants/{id}/status           Change status
    POST   /api/tenants/{id}/convert          Pipeline lead -> tenant
    GET    /api/tenants/{id}/installments     Schedule (?format=csv)
    GET    /api/tenants/{id}/stats            Per-tenant figures (?as_of=)
    GET    /api/tenants/{id}/statement.pdf    Printable statement

  Payments:
    POST   /api/installments/{id}/payments    Record a payment
    PUT    /api/installments/{id}/payments    Correct a recorded amount

  Portfolio:
    GET    /api/portfolio/summary             Totals and counts (?as_of=)
    GET    /api/portfolio/risk                Tenants ranked by risk (?limit=)
    GET    /api/portfolio/trend               Monthly collection (?months=)
    GET    /api/portfolio/leaderboard         Agents ranked by collections

  Drafts:
    GET/PUT/DELETE /api/drafts/{key}          Onboarding form drafts

ARCHITECTURE:
  Handler struct holds all dependencies. Store and Drafts are required;
  Hub, Metrics and Cache are optional and nil-safe.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (fees, portfolio)
  4. Persist, then announce the change (event, metrics, cache)
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate tenant, already paid)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Status sweeper
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/welile/tenants-hub/cache"
	"github.com/welile/tenants-hub/drafts"
	"github.com/welile/tenants-hub/events"
	"github.com/welile/tenants-hub/fees"
	"github.com/welile/tenants-hub/finance"
	"github.com/welile/tenants-hub/metrics"
	"github.com/welile/tenants-hub/portfolio"
	"github.com/welile/tenants-hub/report"
)

const (
	maxBodyBytes     = 1 << 20
	defaultTrendSpan = 6
	maxTrendSpan     = 24
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   finance.Store
	Drafts  drafts.Store
	Hub     *events.Hub
	Metrics *metrics.Metrics
	Cache   *cache.Cache
	Sweeper *StatusSweeper
	Log     logrus.FieldLogger

	// Clock supplies "today" for as-of defaults and onboarding start dates.
	Clock func() time.Time

	// ServiceCenter is stamped on payments that do not name one.
	ServiceCenter string

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler with its own event hub. Metrics, cache and
// sweeper are attached by the caller.
func NewHandler(store finance.Store, draftStore drafts.Store, log logrus.FieldLogger) *Handler {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Handler{
		Store:  store,
		Drafts: draftStore,
		Hub:    events.NewHub(),
		Log:    log,
		Clock:  time.Now,
	}
}

func (h *Handler) today() finance.Date {
	return finance.DateOf(h.Clock())
}

// asOf reads ?as_of=YYYY-MM-DD, defaulting to today.
func (h *Handler) asOf(r *http.Request) (finance.Date, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.today(), nil
	}
	return finance.ParseDate(raw)
}

// publish notifies change feed subscribers, stamped with the handler clock.
func (h *Handler) publish(table string, action events.Action, id string) {
	h.Hub.Publish(events.Event{Table: table, Action: action, ID: id, At: h.Clock().UTC()})
}

// changed announces a successful mutation: subscribers are notified and
// cached portfolio views are dropped.
func (h *Handler) changed(ctx context.Context, table string, action events.Action, id string) {
	h.publish(table, action, id)
	h.Cache.InvalidateSummaries(ctx)
}

// =============================================================================
// FEES
// =============================================================================

// QuoteFees handles POST /api/fees/quote
func (h *Handler) QuoteFees(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	status := finance.StatusActive
	if req.Status != "" {
		parsed, err := finance.ParseTenantStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status", err)
			return
		}
		status = parsed
	}

	details, err := fees.CalculateForStatus(req.RentAmount, req.RepaymentDays, status)
	if err != nil {
		h.writeDomainError(w, "failed to calculate fees", err)
		return
	}

	writeJSON(w, http.StatusOK, toRepaymentDetailsDTO(details))
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// ListTenants handles GET /api/tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	var filter finance.TenantStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := finance.ParseTenantStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid status", err)
			return
		}
		filter = status
	}

	tenants, err := h.Store.ListTenants(r.Context())
	if err != nil {
		h.writeDomainError(w, "failed to list tenants", err)
		return
	}

	dtos := make([]TenantDTO, 0, len(tenants))
	for _, t := range tenants {
		if filter != "" && t.Status != filter {
			continue
		}
		dtos = append(dtos, toTenantDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTenant handles GET /api/tenants/{id}
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "failed to get tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*t))
}

// CreateTenant handles POST /api/tenants
//
// The body is a draft envelope. A full draft is validated, priced and
// stored together with its expanded schedule in one write. A pipeline
// draft becomes a lead with no fees and no schedule.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}

	var req CreateTenantRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	draft, err := drafts.Unmarshal(body)
	if err != nil {
		h.writeDomainError(w, "invalid draft", err)
		return
	}
	if err := draft.Validate(); err != nil {
		h.writeDomainError(w, "invalid draft", err)
		return
	}

	start := h.today()
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = *req.StartDate
	}

	var tenant finance.Tenant
	switch d := draft.(type) {
	case drafts.FullTenantDraft:
		tenant, err = h.onboardFull(r.Context(), d, start)
	case drafts.PipelineTenantDraft:
		tenant, err = h.onboardPipeline(r.Context(), d)
	default:
		err = fmt.Errorf("%w: unsupported draft kind %q", finance.ErrInvalidDraft, draft.Kind())
	}
	if err != nil {
		h.writeDomainError(w, "failed to create tenant", err)
		return
	}

	if req.DraftKey != "" {
		if err := h.Drafts.Clear(r.Context(), req.DraftKey); err != nil {
			h.Log.WithError(err).WithField("draft_key", req.DraftKey).Warn("failed to clear draft after onboarding")
		} else {
			h.publish(events.TableDrafts, events.ActionDelete, req.DraftKey)
		}
	}

	h.Metrics.ObserveOnboarded(string(tenant.Status))
	h.changed(r.Context(), events.TableTenants, events.ActionInsert, tenant.ID)
	h.Log.WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"status":    tenant.Status,
		"agent_id":  tenant.AgentID,
	}).Info("tenant onboarded")

	writeJSON(w, http.StatusCreated, toTenantDTO(tenant))
}

func (h *Handler) onboardFull(ctx context.Context, d drafts.FullTenantDraft, start finance.Date) (finance.Tenant, error) {
	status, err := d.TenantStatus()
	if err != nil {
		return finance.Tenant{}, err
	}
	if err := h.checkDuplicate(ctx, d.Name, d.Phone); err != nil {
		return finance.Tenant{}, err
	}

	details, err := fees.CalculateForStatus(d.RentAmount, d.RepaymentDays, status)
	if err != nil {
		return finance.Tenant{}, err
	}

	tenant := finance.Tenant{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(d.Name),
		Phone:         strings.TrimSpace(d.Phone),
		AgentID:       d.AgentID,
		LandlordName:  d.LandlordName,
		Location:      d.Location,
		ServiceCenter: d.ServiceCenter,
		RentAmount:    details.RentAmount,
		RepaymentDays: details.RepaymentDays,
		Status:        status,
		CreatedAt:     h.Clock().UTC(),
	}
	items := fees.ExpandToInstallments(tenant.ID, details, start)
	if err := h.Store.SaveTenantWithInstallments(ctx, tenant, items); err != nil {
		return finance.Tenant{}, err
	}
	return tenant, nil
}

func (h *Handler) onboardPipeline(ctx context.Context, d drafts.PipelineTenantDraft) (finance.Tenant, error) {
	if err := h.checkDuplicate(ctx, d.Name, d.Phone); err != nil {
		return finance.Tenant{}, err
	}

	tenant := finance.Tenant{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(d.Name),
		Phone:      strings.TrimSpace(d.Phone),
		AgentID:    d.AgentID,
		Location:   d.Location,
		RentAmount: decimal.Zero,
		Status:     finance.StatusPipeline,
		CreatedAt:  h.Clock().UTC(),
	}
	if err := h.Store.SaveTenant(ctx, tenant); err != nil {
		return finance.Tenant{}, err
	}
	return tenant, nil
}

func (h *Handler) checkDuplicate(ctx context.Context, name, phone string) error {
	existing, err := h.Store.FindDuplicateTenant(ctx, name, phone)
	if err != nil {
		return err
	}
	if existing != nil {
		return &finance.DuplicateTenantError{Name: name, Phone: phone, ExistingID: existing.ID}
	}
	return nil
}

// DeleteTenant handles DELETE /api/tenants/{id}
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteTenant(r.Context(), id); err != nil {
		h.writeDomainError(w, "failed to delete tenant", err)
		return
	}

	h.changed(r.Context(), events.TableTenants, events.ActionDelete, id)
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTenantStatus handles PUT /api/tenants/{id}/status
//
// Moving into or out of the pipeline changes whether fees apply, so it goes
// through the convert endpoint instead.
func (h *Handler) UpdateTenantStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	status, err := finance.ParseTenantStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status", err)
		return
	}

	tenant, err := h.Store.GetTenant(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get tenant", err)
		return
	}
	if (tenant.Status == finance.StatusPipeline) != (status == finance.StatusPipeline) {
		writeError(w, http.StatusBadRequest, "pipeline leads change status through /convert", nil)
		return
	}

	if err := h.Store.UpdateTenantStatus(r.Context(), id, status); err != nil {
		h.writeDomainError(w, "failed to update status", err)
		return
	}
	tenant.Status = status

	h.changed(r.Context(), events.TableTenants, events.ActionUpdate, id)
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// ConvertTenant handles POST /api/tenants/{id}/convert
func (h *Handler) ConvertTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tenant, err := h.Store.GetTenant(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get tenant", err)
		return
	}
	if tenant.Status != finance.StatusPipeline {
		writeError(w, http.StatusConflict, "only pipeline leads can be converted", nil)
		return
	}

	status := finance.StatusActive
	if req.Status != "" {
		if status, err = finance.ParseTenantStatus(req.Status); err != nil {
			writeError(w, http.StatusBadRequest, "invalid status", err)
			return
		}
		if status == finance.StatusPipeline {
			writeError(w, http.StatusBadRequest, "conversion target cannot be pipeline", nil)
			return
		}
	}

	details, err := fees.CalculateForStatus(req.RentAmount, req.RepaymentDays, status)
	if err != nil {
		h.writeDomainError(w, "failed to calculate fees", err)
		return
	}

	start := h.today()
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start = *req.StartDate
	}

	tenant.RentAmount = details.RentAmount
	tenant.RepaymentDays = details.RepaymentDays
	tenant.Status = status
	tenant.ConvertedFromPipeline = true
	if req.LandlordName != "" {
		tenant.LandlordName = req.LandlordName
	}

	items := fees.ExpandToInstallments(tenant.ID, details, start)
	if err := h.Store.SaveTenantWithInstallments(r.Context(), *tenant, items); err != nil {
		h.writeDomainError(w, "failed to convert tenant", err)
		return
	}

	h.Metrics.ObserveOnboarded(string(status))
	h.changed(r.Context(), events.TableTenants, events.ActionUpdate, id)
	h.Log.WithFields(logrus.Fields{"tenant_id": id, "status": status}).Info("pipeline lead converted")

	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// GetInstallments handles GET /api/tenants/{id}/installments
func (h *Handler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetTenant(r.Context(), id); err != nil {
		h.writeDomainError(w, "failed to get tenant", err)
		return
	}

	items, err := h.Store.ListInstallments(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list installments", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="installments-%s.csv"`, id))
		if err := report.WriteInstallmentsCSV(w, items); err != nil {
			h.Log.WithError(err).WithField("tenant_id", id).Error("failed to write installments csv")
		}
		return
	}

	writeJSON(w, http.StatusOK, toInstallmentDTOs(items))
}

// GetTenantStats handles GET /api/tenants/{id}/stats
func (h *Handler) GetTenantStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err)
		return
	}

	if _, err := h.Store.GetTenant(r.Context(), id); err != nil {
		h.writeDomainError(w, "failed to get tenant", err)
		return
	}
	items, err := h.Store.ListInstallments(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list installments", err)
		return
	}

	writeJSON(w, http.StatusOK, toTenantStatsDTO(portfolio.ForTenant(id, items, asOf), asOf))
}

// GetStatement handles GET /api/tenants/{id}/statement.pdf
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err)
		return
	}

	tenant, err := h.Store.GetTenant(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to get tenant", err)
		return
	}
	items, err := h.Store.ListInstallments(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "failed to list installments", err)
		return
	}

	statement := report.Statement{
		Tenant:       *tenant,
		Installments: items,
		Totals:       portfolio.Tally(items, asOf),
		Risk:         portfolio.Score(items, asOf),
		AsOf:         asOf,
		GeneratedAt:  h.Clock(),
	}
	if tenant.RepaymentDays > 0 {
		if statement.Details, err = fees.CalculateForStatus(tenant.RentAmount, tenant.RepaymentDays, tenant.Status); err != nil {
			h.writeDomainError(w, "failed to calculate fees", err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="statement-%s.pdf"`, id))
	if err := report.WriteStatementPDF(w, statement); err != nil {
		h.Log.WithError(err).WithField("tenant_id", id).Error("failed to render statement")
	}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment handles POST /api/installments/{id}/payments
//
// An installment accepts exactly one recording; a second one is a 409 and
// corrections go through EditPayment.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.RecordedBy) == "" {
		writeError(w, http.StatusBadRequest, "recorded_by is required", nil)
		return
	}

	var amount decimal.Decimal
	if req.Amount != nil {
		amount = *req.Amount
	} else {
		item, err := h.Store.GetInstallment(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, "failed to get installment", err)
			return
		}
		amount = item.AmountDue
	}

	at := h.Clock().UTC()
	if req.RecordedAt != nil {
		at = req.RecordedAt.UTC()
	}
	center := req.ServiceCenter
	if center == "" {
		center = h.ServiceCenter
	}

	item, err := h.Store.RecordPayment(r.Context(), finance.PaymentRecording{
		InstallmentID: id,
		Amount:        amount,
		RecordedBy:    req.RecordedBy,
		ServiceCenter: center,
		At:            at,
	})
	if err != nil {
		h.writeDomainError(w, "failed to record payment", err)
		return
	}

	h.Metrics.ObservePayment(item.PaidAmount)
	h.changed(r.Context(), events.TableInstallments, events.ActionUpdate, item.ID)
	h.Log.WithFields(logrus.Fields{
		"installment_id": item.ID,
		"tenant_id":      item.TenantID,
		"amount":         item.PaidAmount.String(),
		"recorded_by":    item.RecordedBy,
	}).Info("payment recorded")

	writeJSON(w, http.StatusOK, toInstallmentDTO(*item))
}

// EditPayment handles PUT /api/installments/{id}/payments
func (h *Handler) EditPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req EditPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	item, err := h.Store.EditPayment(r.Context(), finance.PaymentRecording{
		InstallmentID: id,
		Amount:        req.Amount,
		RecordedBy:    req.RecordedBy,
		At:            h.Clock().UTC(),
	})
	if err != nil {
		h.writeDomainError(w, "failed to edit payment", err)
		return
	}

	h.changed(r.Context(), events.TableInstallments, events.ActionUpdate, item.ID)
	writeJSON(w, http.StatusOK, toInstallmentDTO(*item))
}

// =============================================================================
// PORTFOLIO HANDLERS
// =============================================================================

// snapshot loads every tenant and installment for the aggregators.
func (h *Handler) snapshot(ctx context.Context) ([]finance.Tenant, []finance.Installment, error) {
	tenants, err := h.Store.ListTenants(ctx)
	if err != nil {
		return nil, nil, err
	}
	items, err := h.Store.ListAllInstallments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tenants, items, nil
}

// GetSummary handles GET /api/portfolio/summary
//
// A cache hit is served as stored and leaves the portfolio gauges alone; the
// gauges move on a miss for today and on every sweep.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err)
		return
	}

	key := cache.SummaryKey(asOf)
	if data, ok := h.Cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	gen := h.Cache.Generation()
	tenants, items, err := h.snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, "failed to load portfolio", err)
		return
	}
	summary := portfolio.Summarize(tenants, items, asOf)
	if asOf.Equal(h.today()) {
		h.Metrics.SetPortfolio(summary)
	}

	data, err := json.Marshal(toSummaryDTO(summary))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode summary", err)
		return
	}
	h.Cache.SetIfCurrent(r.Context(), key, data, gen)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetRisk handles GET /api/portfolio/risk
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err)
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit", err)
		return
	}

	tenants, items, err := h.snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, "failed to load portfolio", err)
		return
	}

	ranked := portfolio.RankByRisk(portfolio.AssessTenants(tenants, items, asOf))
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	dtos := make([]TenantRiskDTO, len(ranked))
	for i, tr := range ranked {
		dtos[i] = toTenantRiskDTO(tr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTrend handles GET /api/portfolio/trend
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of date", err)
		return
	}
	months, err := intParam(r, "months", defaultTrendSpan)
	if err != nil || months < 1 || months > maxTrendSpan {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", maxTrendSpan), err)
		return
	}

	tenants, items, err := h.snapshot(r.Context())
	if err != nil {
		h.writeDomainError(w, "failed to load portfolio", err)
		return
	}

	points := portfolio.Trend(tenants, items, finance.TrailingMonths(asOf, months), asOf)
	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = toTrendPointDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLeaderboard handles GET /api/portfolio/leaderboard
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListAllInstallments(r.Context())
	if err != nil {
		h.writeDomainError(w, "failed to list installments", err)
		return
	}

	standings := portfolio.Leaderboard(items)
	dtos := make([]AgentStandingDTO, len(standings))
	for i, s := range standings {
		dtos[i] = toAgentStandingDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DRAFT HANDLERS
// =============================================================================

// GetDraft handles GET /api/drafts/{key}
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.Drafts.Load(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeDomainError(w, "failed to load draft", err)
		return
	}
	data, err := drafts.Marshal(draft)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode draft", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// SaveDraft handles PUT /api/drafts/{key}. Incomplete drafts are accepted.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body", err)
		return
	}
	draft, err := drafts.Unmarshal(body)
	if err != nil {
		h.writeDomainError(w, "invalid draft", err)
		return
	}
	if err := h.Drafts.Save(r.Context(), key, draft); err != nil {
		h.writeDomainError(w, "failed to save draft", err)
		return
	}

	h.publish(events.TableDrafts, events.ActionUpdate, key)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDraft handles DELETE /api/drafts/{key}
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Drafts.Clear(r.Context(), key); err != nil {
		h.writeDomainError(w, "failed to clear draft", err)
		return
	}

	h.publish(events.TableDrafts, events.ActionDelete, key)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /healthz. A missing cache is reported but does not
// make the service unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthDTO{Status: "ok", Database: "ok", Cache: "disabled"}
	status := http.StatusOK

	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.Cache != nil {
		resp.Cache = "ok"
		if !h.Cache.Healthy(r.Context()) {
			resp.Cache = "unreachable"
		}
	}

	writeJSON(w, status, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps finance errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case finance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case finance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
