package fees_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welile/tenants-hub/fees"
	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amount(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(amount(want)), "want %d, got %s", want, got.String())
}

// =============================================================================
// CALCULATION TESTS
// =============================================================================

func TestCalculateRepaymentDetails_SixtyDayExample(t *testing.T) {
	// GIVEN: Rent of 500000 over 60 days
	// WHEN: Calculating the schedule
	// THEN: 2.5% registration, 33% access, rounded daily installment

	d, err := fees.CalculateRepaymentDetails(amount(500000), 60)
	require.NoError(t, err)

	assertAmount(t, 500000, d.RentAmount)
	assert.Equal(t, 60, d.RepaymentDays)
	assertAmount(t, 12500, d.RegistrationFee)
	assertAmount(t, 165000, d.AccessFees)
	assertAmount(t, 677500, d.TotalAmount)
	assertAmount(t, 11292, d.DailyInstallment)
}

func TestCalculateRepaymentDetails_AllTerms(t *testing.T) {
	tests := []struct {
		days  int
		daily int64
	}{
		{30, 22583}, // 677500 / 30 = 22583.33
		{60, 11292}, // 11291.67
		{90, 7528},  // 7527.78
	}

	for _, tt := range tests {
		d, err := fees.CalculateRepaymentDetails(amount(500000), tt.days)
		require.NoError(t, err)
		assert.True(t, d.DailyInstallment.Equal(amount(tt.daily)), "term %d: daily %s", tt.days, d.DailyInstallment)
		assertAmount(t, 677500, d.TotalAmount)
	}
}

func TestCalculateRepaymentDetails_RoundsHalfUp(t *testing.T) {
	// 2.5% of 100 = 2.5 -> 3; 33% of 100 = 33
	d, err := fees.CalculateRepaymentDetails(amount(100), 30)
	require.NoError(t, err)

	assertAmount(t, 3, d.RegistrationFee)
	assertAmount(t, 33, d.AccessFees)
	assertAmount(t, 136, d.TotalAmount)
	assertAmount(t, 5, d.DailyInstallment) // 4.53
}

func TestCalculateRepaymentDetails_InvalidRent(t *testing.T) {
	for _, rent := range []int64{0, -1, -500000} {
		_, err := fees.CalculateRepaymentDetails(amount(rent), 30)

		require.Error(t, err)
		assert.ErrorIs(t, err, finance.ErrInvalidRentAmount)
		var rentErr *finance.InvalidRentAmountError
		assert.ErrorAs(t, err, &rentErr)
	}
}

func TestCalculateRepaymentDetails_InvalidTerm(t *testing.T) {
	for _, days := range []int{0, 1, 29, 45, 120, -30} {
		_, err := fees.CalculateRepaymentDetails(amount(500000), days)

		require.Error(t, err)
		var termErr *finance.InvalidTermError
		require.ErrorAs(t, err, &termErr)
		assert.Equal(t, days, termErr.Days)
		assert.True(t, finance.IsClientError(err))
	}
}

func TestParseRentAmount(t *testing.T) {
	d, err := fees.ParseRentAmount(250000)
	require.NoError(t, err)
	assertAmount(t, 250000, d)

	for _, f := range []float64{0, -10, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := fees.ParseRentAmount(f)
		assert.ErrorIs(t, err, finance.ErrInvalidRentAmount, "input %v", f)
	}
}

// =============================================================================
// PIPELINE TESTS
// =============================================================================

func TestCalculateForStatus_PipelineHasNoFees(t *testing.T) {
	// GIVEN: A pipeline lead with a rent amount
	// WHEN: Calculating fees
	// THEN: Registration and access fees are zero regardless of rent

	d, err := fees.CalculateForStatus(amount(500000), 60, finance.StatusPipeline)
	require.NoError(t, err)

	assert.True(t, d.RegistrationFee.IsZero())
	assert.True(t, d.AccessFees.IsZero())
	assertAmount(t, 500000, d.TotalAmount)
	assertAmount(t, 8333, d.DailyInstallment)
}

func TestCalculateForStatus_PipelineWithoutRent(t *testing.T) {
	d, err := fees.CalculateForStatus(decimal.Zero, 30, finance.StatusPipeline)
	require.NoError(t, err)

	assert.True(t, d.TotalAmount.IsZero())
	assert.True(t, d.DailyInstallment.IsZero())
}

func TestCalculateForStatus_FeeBearingMatchesCalculator(t *testing.T) {
	for _, status := range []finance.TenantStatus{finance.StatusActive, finance.StatusPending, finance.StatusReview} {
		got, err := fees.CalculateForStatus(amount(300000), 90, status)
		require.NoError(t, err)
		want, err := fees.CalculateRepaymentDetails(amount(300000), 90)
		require.NoError(t, err)
		assert.Equal(t, want, got, "status %s", status)
	}

	_, err := fees.CalculateForStatus(decimal.Zero, 30, finance.StatusActive)
	assert.ErrorIs(t, err, finance.ErrInvalidRentAmount)
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

func TestCalculateRepaymentDetails_Properties(t *testing.T) {
	// Total is exact, installments stay within rounding tolerance, and the
	// calculation is deterministic.
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		rent := amount(rng.Int63n(10_000_000) + 1)
		term := fees.Terms[rng.Intn(len(fees.Terms))]

		d, err := fees.CalculateRepaymentDetails(rent, term.Days())
		require.NoError(t, err)

		assert.True(t, d.TotalAmount.Equal(d.RentAmount.Add(d.RegistrationFee).Add(d.AccessFees)),
			"total must equal rent + fees for rent %s", rent)

		diff := d.ScheduledTotal().Sub(d.TotalAmount).Abs()
		assert.True(t, diff.LessThanOrEqual(amount(int64(term.Days()-1))),
			"scheduled total off by %s for rent %s term %d", diff, rent, term)

		again, err := fees.CalculateRepaymentDetails(rent, term.Days())
		require.NoError(t, err)
		assert.Equal(t, d, again)
	}
}

// =============================================================================
// EXPANSION TESTS
// =============================================================================

func TestExpandToInstallments(t *testing.T) {
	d, err := fees.CalculateRepaymentDetails(amount(500000), 60)
	require.NoError(t, err)
	start := finance.NewDate(2025, time.January, 31)

	items := fees.ExpandToInstallments("tenant-1", d, start)

	require.Len(t, items, 60)
	ids := make(map[string]bool)
	for i, item := range items {
		assert.Equal(t, i+1, item.Sequence)
		assert.Equal(t, "tenant-1", item.TenantID)
		assert.True(t, item.DueDate.Equal(start.AddDays(i)))
		assertAmount(t, 11292, item.AmountDue)
		assert.False(t, item.Paid)
		assert.True(t, item.PaidAmount.IsZero())
		assert.Empty(t, item.RecordedBy)
		assert.Nil(t, item.RecordedAt)
		assert.False(t, ids[item.ID], "ids must be unique")
		ids[item.ID] = true
	}
	assert.Equal(t, "2025-02-01", items[1].DueDate.String())
	assert.Equal(t, "2025-03-31", items[59].DueDate.String())
}
