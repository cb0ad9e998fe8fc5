package finance

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_TruncatesToUTCDay(t *testing.T) {
	kampala := time.FixedZone("EAT", 3*60*60)

	// 01:30 in Kampala is still the previous day in UTC.
	d := DateOf(time.Date(2025, 3, 10, 1, 30, 0, 0, kampala))

	assert.Equal(t, "2025-03-09", d.String())
	assert.True(t, d.Equal(NewDate(2025, 3, 9)))
}

func TestDate_Comparisons(t *testing.T) {
	a := NewDate(2025, 3, 1)
	b := a.AddDays(1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, a.AfterOrEqual(a))
	assert.False(t, b.BeforeOrEqual(a))
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 59, DaysBetween(a, a.AddDays(59)))
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Due  Date `json:"due"`
		Zero Date `json:"zero"`
	}
	payload.Due = NewDate(2025, 12, 31)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-12-31","zero":null}`, string(raw))

	var back struct {
		Due Date `json:"due"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2026-01-02"}`), &back))
	assert.Equal(t, "2026-01-02", back.Due.String())

	assert.Error(t, json.Unmarshal([]byte(`{"due":"02/01/2026"}`), &back))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("2025-02-30")
	assert.Error(t, err)
}

func TestPeriod_MonthBoundaries(t *testing.T) {
	feb := MonthOf(NewDate(2024, 2, 14))

	assert.Equal(t, "2024-02-01", feb.Start.String())
	assert.Equal(t, "2024-02-29", feb.End.String())
	assert.Len(t, feb.Days(), 29)
	assert.True(t, feb.Contains(NewDate(2024, 2, 29)))
	assert.False(t, feb.Contains(NewDate(2024, 3, 1)))

	jan := feb.PreviousMonth()
	assert.Equal(t, "[2024-01-01, 2024-01-31]", jan.String())
}

func TestTrailingMonths(t *testing.T) {
	periods := TrailingMonths(NewDate(2025, 2, 10), 3)

	require.Len(t, periods, 3)
	assert.Equal(t, "2024-12-01", periods[0].Start.String())
	assert.Equal(t, "2025-01-01", periods[1].Start.String())
	assert.Equal(t, "2025-02-28", periods[2].End.String())

	assert.Nil(t, TrailingMonths(NewDate(2025, 2, 10), 0))
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "12500", Round(decimal.RequireFromString("12499.5")).String())
	assert.Equal(t, "12499", Round(decimal.RequireFromString("12499.49")).String())
}

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, MustParseDecimal("not money").IsZero())
	assert.True(t, MustParseDecimal("").IsZero())
	assert.Equal(t, "1500.5", MustParseDecimal(" 1500.50 ").String())

	assert.True(t, Coalesce(nil).IsZero())
	v := decimal.NewFromInt(7)
	assert.True(t, Coalesce(&v).Equal(v))

	assert.True(t, Percent(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.Equal(t, "25", Percent(decimal.NewFromInt(1), decimal.NewFromInt(4)).String())
}

func TestParseTenantStatus(t *testing.T) {
	status, err := ParseTenantStatus(" Overdue ")
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, status)

	_, err = ParseTenantStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.False(t, StatusPipeline.IsFeeBearing())
	assert.True(t, StatusReview.IsFeeBearing())
}

func TestInstallment_DueAndMissed(t *testing.T) {
	item := Installment{DueDate: NewDate(2025, 3, 10)}

	// Due on the day, missed only once the day has passed
	assert.True(t, item.IsDue(NewDate(2025, 3, 10)))
	assert.False(t, item.IsMissed(NewDate(2025, 3, 10)))
	assert.True(t, item.IsMissed(NewDate(2025, 3, 11)))
	assert.False(t, item.IsDue(NewDate(2025, 3, 9)))

	item.Paid = true
	assert.False(t, item.IsMissed(NewDate(2025, 3, 11)))
}

func TestErrorClassification(t *testing.T) {
	termErr := fmt.Errorf("quote: %w", &InvalidTermError{Days: 45})
	dup := &DuplicateTenantError{Name: "Grace", Phone: "0772", ExistingID: "t-1"}

	assert.True(t, IsClientError(termErr))
	assert.True(t, IsClientError(NewInvalidRentAmount(decimal.NewFromInt(-5))))
	assert.True(t, IsConflict(dup))
	assert.True(t, IsConflict(ErrAlreadyPaid))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrTenantNotFound)))
	assert.False(t, IsNotFound(errors.New("disk full")))

	var target *InvalidTermError
	require.True(t, errors.As(termErr, &target))
	assert.Equal(t, 45, target.Days)
	assert.Contains(t, dup.Error(), "t-1")
}
