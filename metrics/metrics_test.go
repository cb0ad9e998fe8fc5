package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/welile/tenants-hub/portfolio"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOnboarded("active")
	m.ObserveOnboarded("active")
	m.ObserveOnboarded("pipeline")
	m.ObservePayment(decimal.NewFromInt(14700))
	m.ObservePayment(decimal.NewFromInt(300))
	m.ObserveSweep("completed")
	m.ObserveDrop()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TenantsOnboarded.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TenantsOnboarded.WithLabelValues("pipeline")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentsRecorded))
	assert.Equal(t, 15000.0, testutil.ToFloat64(m.PaymentAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRuns.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))
}

func TestSetPortfolio(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetPortfolio(portfolio.Summary{
		AtRiskCount: 3,
		Totals: portfolio.Totals{
			Expected: decimal.NewFromInt(2000),
			Paid:     decimal.NewFromInt(1500),
		},
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.AtRiskTenants))
	assert.Equal(t, 75.0, testutil.ToFloat64(m.CollectionRate))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.OutstandingBalance))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePayment(decimal.NewFromInt(1))
		m.ObserveOnboarded("active")
		m.ObserveSweep("failed")
		m.ObserveDrop()
		m.SetPortfolio(portfolio.Summary{})
	})
}
