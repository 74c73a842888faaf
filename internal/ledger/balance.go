package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/envelope/internal/auditlog"
	"github.com/cleared-dev/envelope/internal/balance"
	"github.com/cleared-dev/envelope/internal/model"
)

// maxMergeAttempts bounds how often Balance retries a transfer merge whose
// counterpart changed between matching and locking.
const maxMergeAttempts = 3

// Report is the outcome of balancing one transaction.
type Report struct {
	TxID    string
	Outcome balance.Outcome
	State   model.BalanceState
	// MergedFrom is the retired counterpart of a matched transfer.
	MergedFrom string
	// Err is set by BalanceAll for a transaction that could not be
	// reconciled; the run continues past it.
	Err error
}

// CandidatePool offers the principal legs of every stored transfer that is
// still awaiting its counterpart. Each query reads the current snapshot.
func (s *Service) CandidatePool() balance.CandidatePool {
	return balance.PoolFunc(func(q balance.MatchQuery) []balance.Candidate {
		return balance.PoolFromTransactions(s.snap.Load().All()).Candidates(q)
	})
}

// Balance runs the balance engine on one stored transaction and persists
// the result. A matched transfer absorbs its counterpart, which is removed
// from the ledger in the same write.
func (s *Service) Balance(txID string) (Report, error) {
	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		rep, retry, err := s.balanceOnce(txID)
		if !retry {
			return rep, err
		}
		s.log.WithFields(logrus.Fields{"tx": txID, "attempt": attempt + 1}).Debug("transfer counterpart changed, retrying")
	}
	return Report{}, fmt.Errorf("balancing %s: %w", txID, ErrConflict)
}

func (s *Service) balanceOnce(txID string) (rep Report, retry bool, err error) {
	unlock := s.locks.Lock(txID)
	tx, err := s.Get(txID)
	if err != nil {
		unlock()
		return Report{}, false, err
	}
	res, err := s.engine.Balance(tx, s.CandidatePool())
	if err != nil {
		unlock()
		s.log.WithError(err).WithField("tx", txID).Warn("cannot balance transaction")
		var ue *balance.UnreconcilableError
		if errors.As(err, &ue) {
			s.record(auditlog.Entry{Action: auditlog.ActionBalance, TxID: txID, Outcome: "unreconcilable", Details: ue.Error()})
		}
		return Report{}, false, err
	}

	if res.Outcome != balance.OutcomeMatched {
		defer unlock()
		if !res.Tx.Equal(tx) {
			if err := s.commitLocked([]model.Transaction{res.Tx}, nil); err != nil {
				return Report{}, false, err
			}
		}
		return s.balanced(res, ""), false, nil
	}

	// The counterpart must be locked too, and locks are taken in id order,
	// so start over holding both.
	unlock()
	other := res.Matched.TxID
	unlock = s.locks.Lock(txID, other)
	defer unlock()

	cur := s.snap.Load()
	now, ok := cur.Get(txID)
	if !ok || !now.Equal(tx) {
		return Report{}, true, nil
	}
	counter, ok := cur.Get(other)
	if !ok || res.Matched.LegIndex >= len(counter.Legs) ||
		!counter.Legs[res.Matched.LegIndex].Equal(res.Matched.Leg) ||
		balance.Classify(counter) != model.StateAwaitingTransferMatch {
		return Report{}, true, nil
	}

	merged := absorb(res.Tx, counter, res.Matched.LegIndex)
	if err := s.commitLocked([]model.Transaction{merged}, []string{other}); err != nil {
		return Report{}, false, err
	}
	res.Tx = merged
	return s.balanced(res, other), false, nil
}

func (s *Service) balanced(res balance.Result, mergedFrom string) Report {
	rep := Report{TxID: res.Tx.ID, Outcome: res.Outcome, State: res.Tx.State, MergedFrom: mergedFrom}
	fields := logrus.Fields{"tx": rep.TxID, "outcome": rep.Outcome, "state": rep.State}
	if mergedFrom != "" {
		fields["merged_from"] = mergedFrom
	}
	s.log.WithFields(fields).Info("balanced transaction")
	if res.Outcome == balance.OutcomeOffset || res.Outcome == balance.OutcomeMatched {
		details := ""
		if mergedFrom != "" {
			details = "merged " + mergedFrom
		}
		s.record(auditlog.Entry{Action: auditlog.ActionBalance, TxID: rep.TxID, Outcome: string(rep.Outcome), Details: details})
	}
	return rep
}

// absorb finishes a transfer merge. The engine has already appended the
// counterpart's matched leg to tx; the counterpart's remaining legs (fees
// and their attribution) follow it with fee references renumbered, and its
// external refs are carried over.
func absorb(tx, counter model.Transaction, matched int) model.Transaction {
	out := tx.Clone()
	index := map[int]int{matched: len(out.Legs) - 1}
	next := len(out.Legs)
	for j := range counter.Legs {
		if j == matched {
			continue
		}
		index[j] = next
		next++
	}
	for j, l := range counter.Legs {
		if j == matched {
			continue
		}
		leg := l.Clone()
		if leg.FeeOf != nil {
			to := index[*leg.FeeOf]
			leg.FeeOf = &to
		}
		out.Legs = append(out.Legs, leg)
	}
	for _, r := range counter.ExternalRefs {
		if !slices.Contains(out.ExternalRefs, r) {
			out.ExternalRefs = append(out.ExternalRefs, r)
		}
	}
	out.State = balance.Classify(out)
	return out
}

// BalanceAll balances every transaction that is not already balanced, in
// ledger order. Transactions that cannot be reconciled are reported with
// Err set; any other failure stops the run.
func (s *Service) BalanceAll() ([]Report, error) {
	var reports []Report
	for _, txID := range s.snap.Load().IDs() {
		tx, ok := s.snap.Load().Get(txID)
		if !ok || tx.State == model.StateBalanced {
			// retired by an earlier merge, or nothing to do
			continue
		}
		rep, err := s.Balance(txID)
		if errors.Is(err, balance.ErrUnreconcilable) {
			reports = append(reports, Report{TxID: txID, State: model.StateUnknown, Err: err})
			continue
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// Reclassify moves one leg to another envelope, or clears its category when
// categoryID is empty.
func (s *Service) Reclassify(txID string, legIndex int, categoryID string) (model.Transaction, error) {
	if err := s.envelopes.CheckCategory(categoryID); err != nil {
		return model.Transaction{}, err
	}

	unlock := s.locks.Lock(txID)
	defer unlock()

	tx, err := s.Get(txID)
	if err != nil {
		return model.Transaction{}, err
	}
	out, err := balance.Reclassify(tx, legIndex, categoryID)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := s.commitLocked([]model.Transaction{out}, nil); err != nil {
		return model.Transaction{}, err
	}

	from := tx.Legs[legIndex].CategoryID
	s.log.WithFields(logrus.Fields{"tx": txID, "leg": legIndex, "from": from, "to": categoryID}).Info("reclassified leg")
	s.record(auditlog.Entry{
		Action:  auditlog.ActionReclassify,
		TxID:    txID,
		Outcome: string(out.State),
		Details: fmt.Sprintf("leg %d: %q -> %q", legIndex, from, categoryID),
	})
	return out, nil
}
