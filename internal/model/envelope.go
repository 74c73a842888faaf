package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/money"
)

// ErrInvalidEnvelope is returned when an envelope's policy or budget is inconsistent.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// EnvelopeStatus is the lifecycle state of an envelope.
type EnvelopeStatus string

const (
	EnvelopeActive   EnvelopeStatus = "active"
	EnvelopeArchived EnvelopeStatus = "archived"
)

// RolloverPolicy governs how unused or overspent budget moves between cycles.
// Implementations: ResetToZero, CarryOver, SinkingFund, Decay.
type RolloverPolicy interface {
	PolicyName() string
	isRolloverPolicy()
}

// ResetToZero starts every cycle from the base budget.
type ResetToZero struct{}

// CarryOver adds the prior cycle's leftover (negative when overspent).
type CarryOver struct {
	Cap *money.Money
}

// SinkingFund accumulates contributions that never reset.
type SinkingFund struct {
	Cap *money.Money
}

// Decay carries KeepRatio of the prior leftover.
type Decay struct {
	KeepRatio decimal.Decimal
}

func (ResetToZero) PolicyName() string { return "reset_to_zero" }
func (CarryOver) PolicyName() string   { return "carry_over" }
func (SinkingFund) PolicyName() string { return "sinking_fund" }
func (Decay) PolicyName() string       { return "decay" }

func (ResetToZero) isRolloverPolicy() {}
func (CarryOver) isRolloverPolicy()   {}
func (SinkingFund) isRolloverPolicy() {}
func (Decay) isRolloverPolicy()       {}

// Envelope is a named budget category.
type Envelope struct {
	ID       string
	Name     string
	Status   EnvelopeStatus
	Budget   money.Money // base budget per cycle
	Rollover RolloverPolicy
}

// ValidateEnvelope checks the status, budget and rollover policy.
func ValidateEnvelope(e Envelope) error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: envelope %q: %s", ErrInvalidEnvelope, e.ID, fmt.Sprintf(format, args...))
	}
	if e.ID == "" {
		return bad("id is empty")
	}
	if e.Status != EnvelopeActive && e.Status != EnvelopeArchived {
		return bad("unknown status %q", e.Status)
	}
	if e.Budget.Currency() == "" || !money.IsFiat(e.Budget.Currency()) {
		return bad("budget currency %q is not a fiat currency", e.Budget.Currency())
	}
	if e.Budget.IsNegative() {
		return bad("budget %s is negative", e.Budget)
	}
	capCheck := func(c *money.Money) error {
		if c == nil {
			return nil
		}
		if c.Currency() != e.Budget.Currency() {
			return bad("cap %s is not in %s", c, e.Budget.Currency())
		}
		if c.IsNegative() {
			return bad("cap %s is negative", c)
		}
		return nil
	}
	switch p := e.Rollover.(type) {
	case ResetToZero:
		return nil
	case CarryOver:
		return capCheck(p.Cap)
	case SinkingFund:
		return capCheck(p.Cap)
	case Decay:
		if p.KeepRatio.IsNegative() || p.KeepRatio.GreaterThan(decimal.NewFromInt(1)) {
			return bad("keep ratio %s is outside [0,1]", p.KeepRatio)
		}
		return nil
	case nil:
		return bad("rollover policy is missing")
	default:
		return bad("unsupported rollover policy %T", p)
	}
}
