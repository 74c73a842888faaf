package envelopes

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

func TestYAMLRoundTrip(t *testing.T) {
	limit := money.MustParse("1500", "USD")
	envs := []model.Envelope{
		{ID: "env.food", Name: "Food", Status: model.EnvelopeActive, Budget: money.MustParse("400", "USD"), Rollover: model.ResetToZero{}},
		{ID: "env.fun", Name: "Fun", Status: model.EnvelopeArchived, Budget: money.MustParse("100", "USD"), Rollover: model.CarryOver{Cap: &limit}},
		{ID: "env.car", Name: "Car", Status: model.EnvelopeActive, Budget: money.MustParse("250", "USD"), Rollover: model.SinkingFund{}},
		{ID: "env.eat", Name: "Eating out", Status: model.EnvelopeActive, Budget: money.MustParse("1000", "JPY"), Rollover: model.Decay{KeepRatio: decimal.RequireFromString("0.25")}},
	}

	data, err := Marshal(envs)
	require.NoError(t, err)
	assert.Contains(t, string(data), "policy: carry_over")
	assert.Contains(t, string(data), "cap: \"1500.00\"")

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, got, len(envs))
	for i := range envs {
		assert.Equal(t, envs[i].ID, got[i].ID)
		assert.Equal(t, envs[i].Status, got[i].Status)
		assert.True(t, envs[i].Budget.Equal(got[i].Budget), envs[i].ID)
		assert.Equal(t, envs[i].Rollover.PolicyName(), got[i].Rollover.PolicyName())
	}
	carry := got[1].Rollover.(model.CarryOver)
	require.NotNil(t, carry.Cap)
	assert.True(t, carry.Cap.Equal(limit))
	assert.True(t, got[3].Rollover.(model.Decay).KeepRatio.Equal(decimal.RequireFromString("0.25")))
}

func TestUnmarshal_Defaults(t *testing.T) {
	got, err := Unmarshal([]byte(`
envelopes:
  - id: env.food
    name: Food
    budget: "400"
    currency: usd
`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.EnvelopeActive, got[0].Status)
	assert.Equal(t, model.ResetToZero{}, got[0].Rollover)
	assert.Equal(t, "USD", got[0].Budget.Currency())
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown policy", "envelopes:\n  - {id: e, budget: '1', currency: USD, rollover: {policy: yolo}}\n"},
		{"bad ratio", "envelopes:\n  - {id: e, budget: '1', currency: USD, rollover: {policy: decay, keep_ratio: 2}}\n"},
		{"crypto budget", "envelopes:\n  - {id: e, budget: '1', currency: BTC}\n"},
		{"bad budget", "envelopes:\n  - {id: e, budget: 'lots', currency: USD}\n"},
		{"bad cap", "envelopes:\n  - {id: e, budget: '1', currency: USD, rollover: {policy: sinking_fund, cap: 'x'}}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestService(t *testing.T) {
	svc := NewService(DefaultEnvelopes("USD"))
	assert.True(t, svc.Exists("env.groceries"))
	assert.NoError(t, svc.CheckCategory(""))
	assert.NoError(t, svc.CheckCategory("env.travel"))
	assert.ErrorIs(t, svc.CheckCategory("env.nope"), ErrUnknownEnvelope)

	e, ok := svc.Get("env.dining")
	require.True(t, ok)
	assert.Equal(t, "decay", e.Rollover.PolicyName())

	archived := model.Envelope{ID: "env.old", Status: model.EnvelopeArchived, Budget: money.MustParse("1", "USD"), Rollover: model.ResetToZero{}}
	require.NoError(t, svc.Add(archived))
	assert.ErrorIs(t, svc.Add(archived), ErrDuplicateEnvelope)
	assert.Len(t, svc.All(), 6)
	assert.Len(t, svc.Active(), 5)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewService(DefaultEnvelopes("HKD")).Save(dir))

	svc, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, svc.All(), len(DefaultEnvelopes("HKD")))
	e, _ := svc.Get("env.fees")
	assert.Equal(t, "HKD", e.Budget.Currency())
}

func TestLoad_Duplicate(t *testing.T) {
	dir := t.TempDir()
	envs := DefaultEnvelopes("USD")
	require.NoError(t, NewService(append(envs, envs[0])).Save(dir))
	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrDuplicateEnvelope)
}
