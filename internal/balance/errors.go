package balance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreconcilable is returned when auto-balance is attempted on a
	// transaction classified as unknown.
	ErrUnreconcilable = errors.New("unreconcilable transaction")
	// ErrIndexOutOfRange is returned for a leg index outside the transaction.
	ErrIndexOutOfRange = errors.New("leg index out of range")
)

// UnreconcilableError names the buckets that do not net to zero.
type UnreconcilableError struct {
	TxID    string
	Buckets Buckets // non-zero buckets only
}

func (e *UnreconcilableError) Error() string {
	parts := make([]string, 0, len(e.Buckets))
	for _, unit := range e.Buckets.Units() {
		parts = append(parts, unit+" "+e.Buckets[unit].String())
	}
	return fmt.Sprintf("transaction %s is unreconcilable: %s", e.TxID, strings.Join(parts, ", "))
}

func (e *UnreconcilableError) Is(target error) bool { return target == ErrUnreconcilable }

// IndexError reports a bad leg index.
type IndexError struct {
	TxID  string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("transaction %s: leg index %d not in [0,%d)", e.TxID, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }
