/*
scenarios.go - Demo portfolios for testing and demonstrations

PURPOSE:

	Provides pre-built portfolios that populate the store with realistic
	tenants, schedules and agent payments relative to today, so every
	dashboard has something to show right after a reset.

AVAILABLE SCENARIOS:

	healthy-portfolio:    Tenants paying on time, two paid ahead
	at-risk-portfolio:    Missed installments, overdue and cleared tenants
	pipeline-conversion:  Leads in the pipeline and converted tenants

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Onboard each seed tenant with its fee schedule
 3. Mark installments paid by the seed's agent
 4. Derive the status the sweeper would give the tenant today

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "at-risk-portfolio"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its seeds to 'scenarioSeeds'

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Onboarding path the seeds mirror
  - portfolio/status.go: Status derivation
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/events"
	"github.com/welile/tenants-hub/fees"
	"github.com/welile/tenants-hub/finance"
	"github.com/welile/tenants-hub/portfolio"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "healthy-portfolio",
		Name:        "Healthy Portfolio",
		Description: "Four tenants paying daily, two of them ahead of schedule",
	},
	{
		ID:          "at-risk-portfolio",
		Name:        "At-Risk Portfolio",
		Description: "Missed installments, overdue tenants and a cleared tenant",
	},
	{
		ID:          "pipeline-conversion",
		Name:        "Pipeline Conversion",
		Description: "Leads awaiting conversion next to converted, fee-paying tenants",
	},
}

// tenantSeed describes one demo tenant. Installments with a sequence up to
// paidThrough are paid unless listed in missed.
type tenantSeed struct {
	name      string
	phone     string
	agent     string
	landlord  string
	location  string
	rent      int64
	days      int
	status    finance.TenantStatus
	daysAgo   int
	converted bool

	paidThrough int
	missed      []int
}

var scenarioSeeds = map[string][]tenantSeed{
	"healthy-portfolio": {
		{name: "Grace Nakato", phone: "0772100001", agent: "agent-amina", landlord: "Mr. Okello", location: "Kawempe",
			rent: 500000, days: 60, status: finance.StatusActive, daysAgo: 20, paidThrough: 23},
		{name: "Brian Ssemwogerere", phone: "0772100002", agent: "agent-amina", landlord: "Mrs. Namubiru", location: "Ntinda",
			rent: 350000, days: 30, status: finance.StatusActive, daysAgo: 12, paidThrough: 12},
		{name: "Aisha Nambi", phone: "0772100003", agent: "agent-joseph", landlord: "Mr. Kato", location: "Makindye",
			rent: 800000, days: 90, status: finance.StatusActive, daysAgo: 30, paidThrough: 35},
		{name: "Peter Mugisha", phone: "0772100004", agent: "agent-joseph", landlord: "Mr. Kato", location: "Makindye",
			rent: 250000, days: 30, status: finance.StatusActive, daysAgo: 8, paidThrough: 8, missed: []int{3}},
	},
	"at-risk-portfolio": {
		{name: "Sarah Achieng", phone: "0772200001", agent: "agent-amina", landlord: "Mr. Okello", location: "Kawempe",
			rent: 600000, days: 60, status: finance.StatusActive, daysAgo: 25, paidThrough: 25, missed: []int{14, 18, 20, 22, 23, 24, 25}},
		{name: "David Opio", phone: "0772200002", agent: "agent-joseph", landlord: "Mrs. Namubiru", location: "Ntinda",
			rent: 400000, days: 30, status: finance.StatusActive, daysAgo: 20, paidThrough: 10},
		{name: "Ruth Nalwoga", phone: "0772200003", agent: "agent-amina", landlord: "Mr. Kato", location: "Makindye",
			rent: 300000, days: 60, status: finance.StatusActive, daysAgo: 15, paidThrough: 15, missed: []int{13}},
		{name: "Moses Kizito", phone: "0772200004", agent: "agent-joseph", landlord: "Mr. Okello", location: "Kawempe",
			rent: 200000, days: 30, status: finance.StatusActive, daysAgo: 40, paidThrough: 30},
		{name: "Janet Akello", phone: "0772200005", agent: "agent-amina", landlord: "Mrs. Namubiru", location: "Ntinda",
			rent: 450000, days: 90, status: finance.StatusReview, daysAgo: 1},
	},
	"pipeline-conversion": {
		{name: "Esther Nankya", phone: "0772300001", agent: "agent-amina", location: "Kawempe",
			status: finance.StatusPipeline, daysAgo: 3},
		{name: "Henry Waiswa", phone: "0772300002", agent: "agent-joseph", location: "Ntinda",
			status: finance.StatusPipeline, daysAgo: 2},
		{name: "Florence Auma", phone: "0772300003", agent: "agent-joseph", location: "Makindye",
			status: finance.StatusPipeline, daysAgo: 1},
		{name: "Isaac Lubega", phone: "0772300004", agent: "agent-amina", landlord: "Mr. Okello", location: "Kawempe",
			rent: 350000, days: 30, status: finance.StatusActive, daysAgo: 10, paidThrough: 10, converted: true},
		{name: "Mary Atim", phone: "0772300005", agent: "agent-joseph", landlord: "Mr. Kato", location: "Makindye",
			rent: 500000, days: 60, status: finance.StatusPending, daysAgo: 4, converted: true},
		{name: "Tom Odongo", phone: "0772300006", agent: "agent-joseph", landlord: "Mrs. Namubiru", location: "Ntinda",
			rent: 300000, days: 30, status: finance.StatusActive, daysAgo: 14, paidThrough: 14, missed: []int{2, 9}},
	},
}

var errResetUnsupported = errors.New("store does not support reset")

type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	seeds, ok := scenarioSeeds[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown scenario: "+req.ScenarioID, nil)
		return
	}

	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset store", err)
		return
	}
	count, err := h.seed(r.Context(), seeds)
	if err != nil {
		h.writeDomainError(w, "failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()
	h.Cache.InvalidateSummaries(r.Context())
	h.Log.WithField("scenario", req.ScenarioID).WithField("tenants", count).Info("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"tenants":  count,
	})
}

// ResetDatabase handles POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset store", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	h.Cache.InvalidateSummaries(r.Context())

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(resetter)
	if !ok {
		return errResetUnsupported
	}
	return rs.Reset(ctx)
}

// seed onboards each seed the way CreateTenant would, with payments
// already recorded.
func (h *Handler) seed(ctx context.Context, seeds []tenantSeed) (int, error) {
	today := h.today()

	for _, s := range seeds {
		start := today.AddDays(-s.daysAgo)
		tenant := finance.Tenant{
			ID:                    uuid.NewString(),
			Name:                  s.name,
			Phone:                 s.phone,
			AgentID:               s.agent,
			LandlordName:          s.landlord,
			Location:              s.location,
			ServiceCenter:         h.ServiceCenter,
			RentAmount:            decimal.NewFromInt(s.rent),
			RepaymentDays:         s.days,
			Status:                s.status,
			ConvertedFromPipeline: s.converted,
			CreatedAt:             start.Time.Add(8 * time.Hour),
		}

		if s.status == finance.StatusPipeline {
			if err := h.Store.SaveTenant(ctx, tenant); err != nil {
				return 0, err
			}
			h.publish(events.TableTenants, events.ActionInsert, tenant.ID)
			continue
		}

		details, err := fees.CalculateForStatus(tenant.RentAmount, s.days, s.status)
		if err != nil {
			return 0, err
		}
		items := fees.ExpandToInstallments(tenant.ID, details, start)

		skip := make(map[int]bool, len(s.missed))
		for _, seq := range s.missed {
			skip[seq] = true
		}
		for i := range items {
			if items[i].Sequence > s.paidThrough || skip[items[i].Sequence] {
				continue
			}
			at := items[i].DueDate.Time.Add(17 * time.Hour)
			items[i].Paid = true
			items[i].PaidAmount = items[i].AmountDue
			items[i].RecordedBy = s.agent
			items[i].RecordedAt = &at
			items[i].ServiceCenter = h.ServiceCenter
		}

		tenant.Status = portfolio.NextStatus(s.status, items, today)
		if err := h.Store.SaveTenantWithInstallments(ctx, tenant, items); err != nil {
			return 0, err
		}
		h.publish(events.TableTenants, events.ActionInsert, tenant.ID)
	}
	return len(seeds), nil
}
