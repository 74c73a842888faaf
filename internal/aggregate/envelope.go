package aggregate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// SkippedLeg is a tagged leg that could not be counted because its unit
// differs from the envelope's budget currency.
type SkippedLeg struct {
	TxID     string
	LegIndex int
	Unit     string
	Value    decimal.Decimal
}

// UsageSummary reports an envelope's spend against its budget for a cycle.
type UsageSummary struct {
	EnvelopeID string
	Cycle      string
	Spent      money.Money
	Budget     money.Money
	// Percent is Spent/Budget rounded to four places. It is not Valid when
	// the budget is zero.
	Percent decimal.NullDecimal
	Skipped []SkippedLeg
}

// Remaining returns Budget-Spent.
func (u UsageSummary) Remaining() money.Money {
	r, _ := u.Budget.Sub(u.Spent)
	return r
}

// Prior turns u into the input for the next cycle's rollover.
func (u UsageSummary) Prior() budget.PriorCycle {
	return budget.PriorCycle{Budget: u.Budget, Spent: u.Spent, Known: true}
}

// EnvelopeUsage computes spend for env over transactions whose event time
// falls in c.
//
// Within one transaction, legs on the P&L account tagged with env are the
// attribution; tagged real-account legs only count when no such P&L leg
// exists, so an offset transaction is not counted twice. Legs of refund
// transactions reduce the spend.
func EnvelopeUsage(env model.Envelope, c cycle.Cycle, txs []model.Transaction, prior budget.PriorCycle) (UsageSummary, error) {
	cur := env.Budget.Currency()
	effective, err := budget.EffectiveBudget(env, prior)
	if err != nil {
		return UsageSummary{}, fmt.Errorf("envelope %s cycle %s: %w", env.ID, c.Label, err)
	}

	spent := decimal.Zero
	var skipped []SkippedLeg
	for _, tx := range txs {
		if !c.Contains(tx.TS) {
			continue
		}
		for _, i := range taggedLegs(tx, env.ID) {
			unit, v := tx.Legs[i].Bucket()
			if unit != cur {
				skipped = append(skipped, SkippedLeg{TxID: tx.ID, LegIndex: i, Unit: unit, Value: v})
				continue
			}
			if tx.Type == model.TxRefund {
				spent = spent.Sub(v.Abs())
			} else {
				spent = spent.Add(v.Abs())
			}
		}
	}

	spentMoney, err := money.New(spent, cur)
	if err != nil {
		return UsageSummary{}, fmt.Errorf("envelope %s cycle %s: %w", env.ID, c.Label, err)
	}
	u := UsageSummary{
		EnvelopeID: env.ID,
		Cycle:      c.Label,
		Spent:      spentMoney,
		Budget:     effective,
		Skipped:    skipped,
	}
	if !effective.IsZero() {
		u.Percent = decimal.NewNullDecimal(spent.Div(effective.Amount()).Round(4))
	}
	return u, nil
}

func taggedLegs(tx model.Transaction, envelopeID string) []int {
	var pnl, tagged []int
	for i, l := range tx.Legs {
		if l.CategoryID != envelopeID || l.Amount == nil {
			continue
		}
		if l.IsPnL() {
			pnl = append(pnl, i)
		} else {
			tagged = append(tagged, i)
		}
	}
	if len(pnl) > 0 {
		return pnl
	}
	return tagged
}

// UsageHistory computes usage for consecutive cycles, feeding each cycle's
// result into the next one's rollover. The first cycle has no prior.
func UsageHistory(env model.Envelope, cycles []cycle.Cycle, txs []model.Transaction) ([]UsageSummary, error) {
	out := make([]UsageSummary, 0, len(cycles))
	prior := budget.PriorCycle{}
	for _, c := range cycles {
		u, err := EnvelopeUsage(env, c, txs, prior)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
		prior = u.Prior()
	}
	return out, nil
}
