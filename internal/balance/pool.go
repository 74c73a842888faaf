package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/model"
)

// Candidate is a single leg of another transaction that could be the other
// side of a transfer.
type Candidate struct {
	TxID     string
	LegIndex int
	Leg      model.Leg
	TS       time.Time
}

// MatchQuery describes the counterpart leg a transfer is waiting for.
type MatchQuery struct {
	TxID    string // the transaction being matched; never a candidate of itself
	Account string // real account of the pending leg; the counterpart is elsewhere
	Hint    string // counterpart account when known, empty otherwise
	Unit    string
	Amount  decimal.Decimal // signed value the candidate must contribute in Unit
	At      time.Time
	Window  time.Duration // zero means unbounded
}

// Matches reports whether c satisfies every constraint of q.
func (q MatchQuery) Matches(c Candidate) bool {
	if c.TxID == q.TxID || c.Leg.Amount == nil {
		return false
	}
	if c.Leg.IsPnL() || c.Leg.FeeOf != nil || c.Leg.AccountID == q.Account {
		return false
	}
	if q.Hint != "" && c.Leg.AccountID != q.Hint {
		return false
	}
	unit, v := c.Leg.Bucket()
	if unit != q.Unit || !v.Equal(q.Amount) {
		return false
	}
	if q.Window > 0 && absDuration(c.TS.Sub(q.At)) > q.Window {
		return false
	}
	return true
}

// CandidatePool supplies legs from other transactions. Implementations may
// pre-filter with q; the engine re-checks every candidate it receives.
type CandidatePool interface {
	Candidates(q MatchQuery) []Candidate
}

// Pool is an in-memory CandidatePool.
type Pool []Candidate

// Candidates returns the members of p matching q.
func (p Pool) Candidates(q MatchQuery) []Candidate {
	var out []Candidate
	for _, c := range p {
		if q.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// PoolFunc adapts a function to CandidatePool.
type PoolFunc func(q MatchQuery) []Candidate

// Candidates calls f(q).
func (f PoolFunc) Candidates(q MatchQuery) []Candidate { return f(q) }

// PoolFromTransactions offers the principal real legs of each transaction
// in txs that is itself still awaiting a transfer match.
func PoolFromTransactions(txs []model.Transaction) Pool {
	var p Pool
	for _, tx := range txs {
		if Classify(tx) != model.StateAwaitingTransferMatch {
			continue
		}
		for _, i := range tx.PrincipalLegs() {
			p = append(p, Candidate{TxID: tx.ID, LegIndex: i, Leg: tx.Legs[i].Clone(), TS: tx.TS})
		}
	}
	return p
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
