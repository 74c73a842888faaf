package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

func usd(s string) money.Money { return money.MustParse(s, "USD") }

func usdp(s string) *money.Money {
	m := usd(s)
	return &m
}

func envelope(p model.RolloverPolicy) model.Envelope {
	return model.Envelope{ID: "env.food", Status: model.EnvelopeActive, Budget: usd("400"), Rollover: p}
}

func prior(budget, spent string) PriorCycle {
	return PriorCycle{Budget: usd(budget), Spent: usd(spent), Known: true}
}

func TestEffectiveBudget(t *testing.T) {
	half := decimal.RequireFromString("0.5")
	tests := []struct {
		name   string
		policy model.RolloverPolicy
		prior  PriorCycle
		want   string
	}{
		{"reset ignores leftover", model.ResetToZero{}, prior("400", "100"), "400"},
		{"reset ignores overspend", model.ResetToZero{}, prior("400", "900"), "400"},

		{"carry adds leftover", model.CarryOver{}, prior("400", "100"), "700"},
		{"carry subtracts overspend", model.CarryOver{}, prior("400", "550"), "250"},
		{"carry clamps to cap", model.CarryOver{Cap: usdp("500")}, prior("400", "100"), "500"},
		{"carry below cap untouched", model.CarryOver{Cap: usdp("500")}, prior("400", "350"), "450"},
		{"carry floors at zero", model.CarryOver{}, prior("400", "1000"), "0"},
		{"carry first cycle", model.CarryOver{}, PriorCycle{}, "400"},

		{"sinking accumulates", model.SinkingFund{}, prior("1200", "0"), "1600"},
		{"sinking drawn down", model.SinkingFund{}, prior("1200", "1000"), "600"},
		{"sinking never below empty", model.SinkingFund{}, prior("400", "900"), "400"},
		{"sinking capped", model.SinkingFund{Cap: usdp("1000")}, prior("900", "0"), "1000"},

		{"decay keeps half", model.Decay{KeepRatio: half}, prior("400", "200"), "500"},
		{"decay zero ratio resets", model.Decay{KeepRatio: decimal.Zero}, prior("400", "0"), "400"},
		{"decay full ratio carries", model.Decay{KeepRatio: decimal.NewFromInt(1)}, prior("400", "0"), "800"},
		{"decay overspend shrinks", model.Decay{KeepRatio: half}, prior("400", "600"), "300"},
		{"decay rounds to cents", model.Decay{KeepRatio: decimal.RequireFromString("0.333")}, prior("400", "399.99"), "400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EffectiveBudget(envelope(tt.policy), tt.prior)
			require.NoError(t, err)
			assert.True(t, usd(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestEffectiveBudget_CurrencyMismatch(t *testing.T) {
	p := PriorCycle{Budget: money.MustParse("400", "HKD"), Spent: money.MustParse("0", "HKD"), Known: true}
	_, err := EffectiveBudget(envelope(model.CarryOver{}), p)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestEffectiveBudget_MissingPolicy(t *testing.T) {
	_, err := EffectiveBudget(envelope(nil), PriorCycle{})
	assert.Error(t, err)
}
