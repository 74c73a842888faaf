package money

import (
	"errors"
	"fmt"
)

var (
	// ErrCurrencyMismatch is returned by arithmetic across different units.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrUnknownCurrency is returned for a code outside the fiat registry.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrInvalidAsset is returned for a malformed crypto asset symbol.
	ErrInvalidAsset = errors.New("invalid asset symbol")
	// ErrPrecision is returned when an amount has more decimal places than its unit allows.
	ErrPrecision = errors.New("amount exceeds unit precision")
)

// MismatchError names the two units involved in a rejected operation.
type MismatchError struct {
	Left  string
	Right string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s != %s", e.Left, e.Right)
}

// Is makes errors.Is(err, ErrCurrencyMismatch) hold.
func (e *MismatchError) Is(target error) bool {
	return target == ErrCurrencyMismatch
}

func mismatch(left, right string) error {
	return &MismatchError{Left: left, Right: right}
}
