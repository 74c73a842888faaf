// Package budget evaluates envelope rollover policies.
//
// Leftover is prior budget minus prior spend and keeps its sign: overspending
// in one cycle reduces the next one under CarryOver and Decay. A SinkingFund
// cannot be drawn below empty, so its carried balance is floored at zero.
// Every policy floors the resulting budget at zero.
package budget

import (
	"fmt"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// PriorCycle is what the previous cycle left behind. Known is false for an
// envelope's first cycle.
type PriorCycle struct {
	Budget money.Money
	Spent  money.Money
	Known  bool
}

// Leftover returns Budget-Spent, or zero in cur when the prior cycle is unknown.
func (p PriorCycle) Leftover(cur string) (money.Money, error) {
	if !p.Known {
		return money.Zero(cur), nil
	}
	left, err := p.Budget.Sub(p.Spent)
	if err != nil {
		return money.Money{}, fmt.Errorf("prior cycle leftover: %w", err)
	}
	if left.Currency() != cur {
		return money.Money{}, fmt.Errorf("prior cycle leftover: %w", &money.MismatchError{Left: cur, Right: left.Currency()})
	}
	return left, nil
}

// EffectiveBudget returns the budget available to env in the cycle that
// follows prior.
func EffectiveBudget(env model.Envelope, prior PriorCycle) (money.Money, error) {
	base := env.Budget
	cur := base.Currency()

	var (
		result money.Money
		err    error
	)
	switch p := env.Rollover.(type) {
	case model.ResetToZero:
		result = base
	case model.CarryOver:
		result, err = carry(base, prior, cur)
		if err == nil {
			result, err = clamp(result, p.Cap)
		}
	case model.SinkingFund:
		result, err = sink(base, prior, cur)
		if err == nil {
			result, err = clamp(result, p.Cap)
		}
	case model.Decay:
		var left money.Money
		left, err = prior.Leftover(cur)
		if err == nil {
			result, err = base.Add(left.MulRatio(p.KeepRatio))
		}
	default:
		return money.Money{}, fmt.Errorf("envelope %s: unsupported rollover policy %T", env.ID, env.Rollover)
	}
	if err != nil {
		return money.Money{}, fmt.Errorf("envelope %s: %w", env.ID, err)
	}
	if result.IsNegative() {
		return money.Zero(cur), nil
	}
	return result, nil
}

func carry(base money.Money, prior PriorCycle, cur string) (money.Money, error) {
	left, err := prior.Leftover(cur)
	if err != nil {
		return money.Money{}, err
	}
	return base.Add(left)
}

func sink(base money.Money, prior PriorCycle, cur string) (money.Money, error) {
	left, err := prior.Leftover(cur)
	if err != nil {
		return money.Money{}, err
	}
	if left.IsNegative() {
		left = money.Zero(cur)
	}
	return left.Add(base)
}

func clamp(m money.Money, limit *money.Money) (money.Money, error) {
	if limit == nil {
		return m, nil
	}
	return m.Min(*limit)
}
