// Package aggregate derives account balances and envelope usage for a cycle
// from a set of transactions. It never sums across currencies.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/model"
)

// Balance is one unit's position over a cycle.
type Balance struct {
	Unit    string
	Opening decimal.Decimal
	Closing decimal.Decimal
	Delta   decimal.Decimal
}

// Balances is keyed by currency or asset.
type Balances map[string]Balance

// Units returns the keys in sorted order.
func (b Balances) Units() []string {
	units := make([]string, 0, len(b))
	for u := range b {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}

func (b Balances) add(unit string, opening, closing decimal.Decimal) {
	cur := b[unit]
	cur.Unit = unit
	cur.Opening = cur.Opening.Add(opening)
	cur.Closing = cur.Closing.Add(closing)
	cur.Delta = cur.Closing.Sub(cur.Opening)
	b[unit] = cur
}

// AccountBalance sums the signed native amounts of accountID's legs. A leg
// counts toward the opening balance when its transaction settled before the
// cycle starts and toward the closing balance when it settled by the end.
// The P&L pseudo-account has no balance.
func AccountBalance(accountID string, c cycle.Cycle, txs []model.Transaction) Balances {
	out := make(Balances)
	if accountID == model.PnLAccount {
		return out
	}
	for _, tx := range txs {
		at := tx.EffectiveTS().UTC().Truncate(time.Second)
		if at.After(c.End) {
			continue
		}
		beforeStart := at.Before(c.Start)
		for _, l := range tx.Legs {
			if l.AccountID != accountID || l.Amount == nil {
				continue
			}
			v := l.Signed()
			opening := decimal.Zero
			if beforeStart {
				opening = v
			}
			out.add(l.Amount.Unit(), opening, v)
		}
	}
	return out
}

// AccountsBalance adds AccountBalance across ids, per unit.
func AccountsBalance(ids []string, c cycle.Cycle, txs []model.Transaction) Balances {
	out := make(Balances)
	for _, id := range ids {
		for unit, b := range AccountBalance(id, c, txs) {
			out.add(unit, b.Opening, b.Closing)
		}
	}
	return out
}
