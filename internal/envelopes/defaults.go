package envelopes

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// DefaultEnvelopes returns a starter budget in the given currency.
func DefaultEnvelopes(currency string) []model.Envelope {
	amt := func(s string) money.Money { return money.MustParse(s, currency) }
	return []model.Envelope{
		{ID: "env.groceries", Name: "Groceries", Status: model.EnvelopeActive, Budget: amt("600"), Rollover: model.ResetToZero{}},
		{ID: "env.dining", Name: "Dining Out", Status: model.EnvelopeActive, Budget: amt("200"), Rollover: model.Decay{KeepRatio: decimal.RequireFromString("0.5")}},
		{ID: "env.utilities", Name: "Utilities", Status: model.EnvelopeActive, Budget: amt("250"), Rollover: model.CarryOver{}},
		{ID: "env.travel", Name: "Travel", Status: model.EnvelopeActive, Budget: amt("300"), Rollover: model.SinkingFund{}},
		{ID: "env.fees", Name: "Bank & Exchange Fees", Status: model.EnvelopeActive, Budget: amt("20"), Rollover: model.ResetToZero{}},
	}
}
