/*
Package metrics holds the Prometheus collectors for the tenants hub.

PURPOSE:
  Counters are bumped by the API on each successful mutation; gauges are
  refreshed from a portfolio.Summary by the status sweeper and the summary
  endpoint. Collectors register on a caller-supplied registry so tests can
  use a fresh one.

GAUGE FRESHNESS:
  The summary endpoint refreshes the gauges only when it computes a summary
  for today, i.e. on a cache miss. Cache hits do not touch them, so with
  Redis enabled the gauges are as fresh as the last miss or the last sweep,
  whichever came later.

SEE ALSO:
  - api/server.go: exposes /metrics with promhttp
  - api/scheduler.go: refreshes the portfolio gauges
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/welile/tenants-hub/portfolio"
)

const namespace = "tenants_hub"

type Metrics struct {
	TenantsOnboarded *prometheus.CounterVec
	PaymentsRecorded prometheus.Counter
	PaymentAmount    prometheus.Counter
	SweepRuns        *prometheus.CounterVec
	EventsDropped    prometheus.Counter

	AtRiskTenants      prometheus.Gauge
	CollectionRate     prometheus.Gauge
	OutstandingBalance prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TenantsOnboarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenants_onboarded_total",
			Help:      "Tenants and pipeline leads created, by initial status.",
		}, []string{"status"}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Installment payments recorded by agents.",
		}),
		PaymentAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of recorded payment amounts in currency units.",
		}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Tenant status sweeps, by result.",
		}, []string{"result"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Change-feed events dropped for slow subscribers.",
		}),
		AtRiskTenants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_at_risk_tenants",
			Help:      "Tenants with three or more missed installments.",
		}),
		CollectionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_collection_rate_percent",
			Help:      "Paid over expected for all due installments, in percent.",
		}),
		OutstandingBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_outstanding_balance",
			Help:      "Expected minus paid across the portfolio; negative when paid ahead.",
		}),
	}

	reg.MustRegister(
		m.TenantsOnboarded,
		m.PaymentsRecorded,
		m.PaymentAmount,
		m.SweepRuns,
		m.EventsDropped,
		m.AtRiskTenants,
		m.CollectionRate,
		m.OutstandingBalance,
	)
	return m
}

// ObservePayment counts one payment of amount.
func (m *Metrics) ObservePayment(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.PaymentsRecorded.Inc()
	if amount.IsPositive() {
		m.PaymentAmount.Add(amount.InexactFloat64())
	}
}

func (m *Metrics) ObserveOnboarded(status string) {
	if m == nil {
		return
	}
	m.TenantsOnboarded.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSweep(result string) {
	if m == nil {
		return
	}
	m.SweepRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDrop() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

// SetPortfolio refreshes the gauges from a summary.
func (m *Metrics) SetPortfolio(s portfolio.Summary) {
	if m == nil {
		return
	}
	m.AtRiskTenants.Set(float64(s.AtRiskCount))
	m.CollectionRate.Set(s.CollectionRate().InexactFloat64())
	m.OutstandingBalance.Set(s.Outstanding().InexactFloat64())
}
