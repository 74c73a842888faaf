package model

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/envelope/internal/money"
)

var (
	// ErrEmptyLegs is returned for a transaction without legs.
	ErrEmptyLegs = errors.New("transaction has no legs")
	// ErrInvalidTransaction covers every other structural violation.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// MaxLegs is the most legs a transaction can hold; journal leg references
// are a single letter.
const MaxLegs = 26

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Rule        string
	TxID        string
	Description string
	err         error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.TxID, e.Description)
}

func (e ValidationError) Unwrap() error { return e.err }

// ValidateTransaction checks the structural invariants of a transaction.
func ValidateTransaction(tx Transaction) []ValidationError {
	var errs []ValidationError
	fail := func(rule, format string, args ...any) {
		errs = append(errs, ValidationError{Rule: rule, TxID: tx.ID, Description: fmt.Sprintf(format, args...), err: ErrInvalidTransaction})
	}

	if tx.ID == "" {
		fail("id", "transaction id is empty")
	}
	if len(tx.Legs) == 0 {
		errs = append(errs, ValidationError{Rule: "legs", TxID: tx.ID, Description: "at least one leg is required", err: ErrEmptyLegs})
	}
	if len(tx.Legs) > MaxLegs {
		fail("legs", "%d legs, at most %d allowed", len(tx.Legs), MaxLegs)
	}
	if !tx.Type.Valid() {
		fail("tx_type", "unknown type %q", tx.Type)
	}
	if tx.TS.IsZero() {
		fail("ts", "event time is missing")
	}

	for i, l := range tx.Legs {
		if l.AccountID == "" {
			fail("account", "leg %d has no account", i)
		}
		if l.Direction != Debit && l.Direction != Credit {
			fail("direction", "leg %d has direction %q", i, l.Direction)
		}
		if l.Amount == nil {
			fail("amount", "leg %d has no amount", i)
			continue
		}
		if l.Amount.Value().IsNegative() {
			fail("amount", "leg %d amount %s is negative; use the direction for the sign", i, l.Amount)
		}
		if l.FeeOf != nil && (*l.FeeOf < 0 || *l.FeeOf >= len(tx.Legs) || *l.FeeOf == i) {
			fail("fee_of", "leg %d references fee target %d", i, *l.FeeOf)
		}
		if l.FX != nil {
			if !l.FX.Rate.IsPositive() {
				fail("fx", "leg %d rate %s is not positive", i, l.FX.Rate)
			}
			if l.FX.From != l.Amount.Unit() {
				fail("fx", "leg %d converts from %s but is denominated in %s", i, l.FX.From, l.Amount.Unit())
			}
			if !money.IsFiat(l.FX.To) && !money.ValidAsset(l.FX.To) {
				fail("fx", "leg %d converts to unknown unit %q", i, l.FX.To)
			}
		}
	}
	return errs
}

// Validate returns all violations joined, or nil.
func (t Transaction) Validate() error {
	verrs := ValidateTransaction(t)
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, ve := range verrs {
		errs[i] = ve
	}
	return errors.Join(errs...)
}
