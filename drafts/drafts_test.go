package drafts

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welile/tenants-hub/finance"
)

func validFull() FullTenantDraft {
	return FullTenantDraft{
		Name:          "Grace Nakato",
		Phone:         "0772000111",
		AgentID:       "agent-1",
		LandlordName:  "Mr. Okello",
		Location:      "Kawempe",
		RentAmount:    decimal.NewFromInt(500000),
		RepaymentDays: 60,
	}
}

func TestPipelineDraft_Validate(t *testing.T) {
	assert.NoError(t, PipelineTenantDraft{Name: "Lead", Phone: "0700"}.Validate())

	err := PipelineTenantDraft{Phone: "0700"}.Validate()
	assert.ErrorIs(t, err, finance.ErrInvalidDraft)

	err = PipelineTenantDraft{Name: "Lead", Phone: "  "}.Validate()
	assert.ErrorIs(t, err, finance.ErrInvalidDraft)
}

func TestFullDraft_Validate(t *testing.T) {
	assert.NoError(t, validFull().Validate())

	tests := []struct {
		name   string
		mutate func(*FullTenantDraft)
		target error
	}{
		{"missing name", func(d *FullTenantDraft) { d.Name = "" }, finance.ErrInvalidDraft},
		{"zero rent", func(d *FullTenantDraft) { d.RentAmount = decimal.Zero }, finance.ErrInvalidRentAmount},
		{"negative rent", func(d *FullTenantDraft) { d.RentAmount = decimal.NewFromInt(-5) }, finance.ErrInvalidRentAmount},
		{"unsupported term", func(d *FullTenantDraft) { d.RepaymentDays = 45 }, finance.ErrInvalidTerm},
		{"unknown status", func(d *FullTenantDraft) { d.Status = "evicted" }, finance.ErrInvalidStatus},
		{"pipeline status", func(d *FullTenantDraft) { d.Status = "pipeline" }, finance.ErrInvalidDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validFull()
			tt.mutate(&d)
			err := d.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, finance.ErrInvalidDraft)
		})
	}
}

func TestFullDraft_StatusDefaultsToActive(t *testing.T) {
	status, err := validFull().TenantStatus()
	require.NoError(t, err)
	assert.Equal(t, finance.StatusActive, status)

	d := validFull()
	d.Status = "review"
	status, err = d.TenantStatus()
	require.NoError(t, err)
	assert.Equal(t, finance.StatusReview, status)
}

func TestCodec_RoundTripKeepsVariant(t *testing.T) {
	// GIVEN: one draft of each kind
	full := validFull()
	lead := PipelineTenantDraft{Name: "Lead", Phone: "0700", Notes: "call back friday"}

	for _, d := range []TenantDraft{full, lead} {
		// WHEN: encoded and decoded
		data, err := Marshal(d)
		require.NoError(t, err)
		got, err := Unmarshal(data)
		require.NoError(t, err)

		// THEN: the concrete variant survives
		assert.Equal(t, d.Kind(), got.Kind())
		switch want := d.(type) {
		case FullTenantDraft:
			g, ok := got.(FullTenantDraft)
			require.True(t, ok)
			assert.True(t, want.RentAmount.Equal(g.RentAmount))
			assert.Equal(t, want.RepaymentDays, g.RepaymentDays)
			assert.Equal(t, want.LandlordName, g.LandlordName)
		case PipelineTenantDraft:
			assert.Equal(t, want, got)
		}
	}
}

func TestCodec_IncompleteDraftStillDecodes(t *testing.T) {
	// A form saved halfway through has no rent yet.
	got, err := Unmarshal([]byte(`{"kind":"full","draft":{"name":"Half done"}}`))
	require.NoError(t, err)

	d, ok := got.(FullTenantDraft)
	require.True(t, ok)
	assert.Equal(t, "Half done", d.Name)
	assert.Error(t, d.Validate())
}

func TestCodec_RejectsBadEnvelopes(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"kind":"full"}`,
		`{"kind":"landlord","draft":{}}`,
		`{"kind":"pipeline","draft":"oops"}`,
	} {
		_, err := Unmarshal([]byte(raw))
		assert.ErrorIs(t, err, finance.ErrInvalidDraft, raw)
	}
}

func TestMemory_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	// GIVEN: nothing saved
	_, err := store.Load(ctx, "agent-1/add-tenant")
	assert.True(t, errors.Is(err, finance.ErrDraftNotFound))

	// WHEN: a draft is saved and then overwritten
	require.NoError(t, store.Save(ctx, "agent-1/add-tenant", PipelineTenantDraft{Name: "first"}))
	require.NoError(t, store.Save(ctx, "agent-1/add-tenant", validFull()))

	// THEN: the latest version is returned
	got, err := store.Load(ctx, "agent-1/add-tenant")
	require.NoError(t, err)
	assert.Equal(t, KindFull, got.Kind())

	// WHEN: cleared (twice, the second is a no-op)
	require.NoError(t, store.Clear(ctx, "agent-1/add-tenant"))
	require.NoError(t, store.Clear(ctx, "agent-1/add-tenant"))

	_, err = store.Load(ctx, "agent-1/add-tenant")
	assert.ErrorIs(t, err, finance.ErrDraftNotFound)
}

func TestMemory_RejectsNilDraft(t *testing.T) {
	err := NewMemory().Save(context.Background(), "k", nil)
	assert.ErrorIs(t, err, finance.ErrInvalidDraft)
}
