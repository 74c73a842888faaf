package balance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/teris-io/shortid"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// External reference keys written or read by the engine.
const (
	RefCounterpart  = "counterpart"
	RefTransferLink = "transfer_link"
	RefMergedFrom   = "merged_from"
)

// Outcome is what Balance did to a transaction.
type Outcome string

const (
	OutcomeNoop    Outcome = "noop"    // already balanced
	OutcomeOffset  Outcome = "offset"  // a P&L leg was added or adjusted
	OutcomeMatched Outcome = "matched" // a counterpart leg was merged in
	OutcomePending Outcome = "pending" // no counterpart yet
)

// Result carries the updated transaction and what happened to it.
type Result struct {
	Tx      model.Transaction
	Outcome Outcome
	// Matched is the merged counterpart when Outcome is OutcomeMatched.
	// Its transaction is now redundant and should be retired by the caller.
	Matched *Candidate
}

// Options tunes the engine.
type Options struct {
	// Window bounds how far apart in time a transfer's two sides may be.
	// Zero means unbounded.
	Window time.Duration
	// LinkID generates the transfer_link reference for merged transfers.
	LinkID func() (string, error)
}

// Engine reconciles transactions.
type Engine struct {
	window time.Duration
	linkID func() (string, error)
}

// NewEngine returns an engine with the given options.
func NewEngine(opts Options) *Engine {
	e := &Engine{window: opts.Window, linkID: opts.LinkID}
	if e.linkID == nil {
		e.linkID = shortid.Generate
	}
	return e
}

// Balance classifies tx and reconciles it when that is unambiguous. The
// input is never modified. Balancing a balanced transaction is a no-op, so
// Balance is idempotent.
func (e *Engine) Balance(tx model.Transaction, pool CandidatePool) (Result, error) {
	if err := tx.Validate(); err != nil {
		return Result{}, err
	}
	out := tx.Clone()
	out.State = Classify(out)

	switch out.State {
	case model.StateBalanced:
		return Result{Tx: out, Outcome: OutcomeNoop}, nil
	case model.StateNeedsEnvelopeOffset:
		if err := offset(&out); err != nil {
			return Result{}, fmt.Errorf("offsetting %s: %w", tx.ID, err)
		}
		out.State = Classify(out)
		return Result{Tx: out, Outcome: OutcomeOffset}, nil
	case model.StateAwaitingTransferMatch:
		return e.match(out, pool)
	default:
		b := BucketsOf(out)
		return Result{}, &UnreconcilableError{TxID: tx.ID, Buckets: b.only(b.NonZero())}
	}
}

// offset adds or adjusts a P&L leg so the open bucket nets to zero. An
// unattributed transaction that already nets to zero gets a zero P&L leg
// so the attribution has somewhere to live.
func offset(tx *model.Transaction) error {
	b := BucketsOf(*tx)
	open := b.NonZero()
	if len(open) == 0 {
		unit, _ := tx.Legs[0].Bucket()
		leg, err := legFromSigned(model.PnLAccount, unit, decimal.Zero)
		if err != nil {
			return err
		}
		tx.Legs = append(tx.Legs, leg)
		return nil
	}
	unit := open[0]
	residual := b[unit]

	for i, l := range tx.Legs {
		if !l.IsPnL() || l.FX != nil || l.Amount.Unit() != unit {
			continue
		}
		leg, err := legFromSigned(model.PnLAccount, unit, l.Signed().Sub(residual))
		if err != nil {
			return err
		}
		leg.CategoryID = l.CategoryID
		leg.Notes = l.Notes
		tx.Legs[i] = leg
		return nil
	}

	leg, err := legFromSigned(model.PnLAccount, unit, residual.Neg())
	if err != nil {
		return err
	}
	tx.Legs = append(tx.Legs, leg)
	return nil
}

func legFromSigned(account, unit string, signed decimal.Decimal) (model.Leg, error) {
	dir := model.Debit
	if signed.IsNegative() {
		dir = model.Credit
	}
	amt, err := money.NewAmount(signed.Abs(), unit)
	if err != nil {
		return model.Leg{}, err
	}
	return model.Leg{AccountID: account, Direction: dir, Amount: amt}, nil
}

// match looks for the opposite side of a single-sided transfer and merges
// it in. Amounts must match exactly; the closest candidate in time wins,
// ties going to the lowest transaction id.
func (e *Engine) match(tx model.Transaction, pool CandidatePool) (Result, error) {
	principal := tx.Legs[tx.PrincipalLegs()[0]]
	unit, signed := principal.Bucket()
	hint, _ := tx.Ref(RefCounterpart)
	q := MatchQuery{
		TxID:    tx.ID,
		Account: principal.AccountID,
		Hint:    hint,
		Unit:    unit,
		Amount:  signed.Neg(),
		At:      tx.TS,
		Window:  e.window,
	}

	var found []Candidate
	if pool != nil {
		for _, c := range pool.Candidates(q) {
			if q.Matches(c) {
				found = append(found, c)
			}
		}
	}
	if len(found) == 0 {
		return Result{Tx: tx, Outcome: OutcomePending}, nil
	}
	sort.SliceStable(found, func(i, j int) bool {
		di, dj := absDuration(found[i].TS.Sub(tx.TS)), absDuration(found[j].TS.Sub(tx.TS))
		if di != dj {
			return di < dj
		}
		if found[i].TxID != found[j].TxID {
			return found[i].TxID < found[j].TxID
		}
		return found[i].LegIndex < found[j].LegIndex
	})
	best := found[0]

	link, err := e.linkID()
	if err != nil {
		return Result{}, fmt.Errorf("generating transfer link: %w", err)
	}
	leg := best.Leg.Clone()
	leg.FeeOf = nil
	tx.Legs = append(tx.Legs, leg)
	tx.SetRef(RefTransferLink, link)
	tx.SetRef(RefMergedFrom, best.TxID)
	tx.State = Classify(tx)
	return Result{Tx: tx, Outcome: OutcomeMatched, Matched: &best}, nil
}
