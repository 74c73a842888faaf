package journal

import (
	"fmt"

	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/id"
	"github.com/cleared-dev/envelope/internal/model"
)

// AccountChecker tests whether an account ID exists in the account registry.
type AccountChecker interface {
	Exists(id string) bool
}

// ValidateCycle enforces the journal invariants for the transactions filed
// under one cycle: every transaction is structurally valid, references
// registered accounts, carries an ID from this cycle, is timed inside the
// cycle, and no ID repeats.
func ValidateCycle(txs []model.Transaction, accounts AccountChecker, label string) []model.ValidationError {
	var errs []model.ValidationError
	fail := func(rule, txID, format string, args ...any) {
		errs = append(errs, model.ValidationError{Rule: rule, TxID: txID, Description: fmt.Sprintf(format, args...)})
	}

	c, err := cycle.Bounds(label)
	if err != nil {
		fail("cycle", "", "%v", err)
		return errs
	}

	seen := make(map[string]bool)
	for _, tx := range txs {
		errs = append(errs, model.ValidateTransaction(tx)...)

		for i, leg := range tx.Legs {
			if leg.IsPnL() || leg.AccountID == "" {
				continue
			}
			if accounts != nil && !accounts.Exists(leg.AccountID) {
				fail("account_exists", tx.ID, "leg %d: unknown account %q", i, leg.AccountID)
			}
		}

		if seen[tx.ID] {
			fail("unique_id", tx.ID, "duplicate transaction id")
		}
		seen[tx.ID] = true

		if l, _, err := id.ParseTxID(tx.ID); err != nil {
			fail("id", tx.ID, "%v", err)
		} else if l != label {
			fail("cycle", tx.ID, "id belongs to cycle %s, filed under %s", l, label)
		}
		if !tx.TS.IsZero() && !c.Contains(tx.TS) {
			fail("cycle", tx.ID, "ts %s not in cycle %s", tx.TS.UTC().Format(tsFormat), label)
		}
	}
	return errs
}
