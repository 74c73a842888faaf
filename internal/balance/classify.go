// Package balance classifies a transaction's internal consistency and
// reconciles it where that can be done without guessing.
package balance

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/model"
)

// Buckets holds a signed sum per currency or asset.
type Buckets map[string]decimal.Decimal

// BucketsOf groups the legs of tx by unit. Legs with an FX annotation are
// counted in the annotation's target unit at the declared rate.
func BucketsOf(tx model.Transaction) Buckets {
	b := make(Buckets)
	for _, l := range tx.Legs {
		if l.Amount == nil {
			continue
		}
		unit, v := l.Bucket()
		b[unit] = b[unit].Add(v)
	}
	return b
}

// Units returns the bucket units in sorted order.
func (b Buckets) Units() []string {
	units := make([]string, 0, len(b))
	for u := range b {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}

// NonZero returns the sorted units whose sum is not zero.
func (b Buckets) NonZero() []string {
	var units []string
	for _, u := range b.Units() {
		if !b[u].IsZero() {
			units = append(units, u)
		}
	}
	return units
}

func (b Buckets) only(units []string) Buckets {
	out := make(Buckets, len(units))
	for _, u := range units {
		out[u] = b[u]
	}
	return out
}

// Classify diagnoses tx from its legs and type alone.
//
// A transfer with a single principal real-account leg is awaiting its
// counterpart; that rule is checked before the envelope rules. Spending and
// refunds are balanced once every bucket nets to zero and some leg carries
// the attribution (a P&L leg or a category); with at most one open bucket
// they need an envelope offset. Anything else that does not net to zero is
// unknown.
func Classify(tx model.Transaction) model.BalanceState {
	if len(tx.Legs) == 0 {
		return model.StateUnknown
	}
	open := BucketsOf(tx).NonZero()

	if tx.Type.IsTransfer() && len(tx.PrincipalLegs()) == 1 {
		return model.StateAwaitingTransferMatch
	}
	if tx.Type.NeedsEnvelope() {
		switch {
		case len(open) == 0 && tx.Attributed():
			return model.StateBalanced
		case len(open) <= 1:
			return model.StateNeedsEnvelopeOffset
		default:
			return model.StateUnknown
		}
	}
	if len(open) == 0 {
		return model.StateBalanced
	}
	return model.StateUnknown
}
