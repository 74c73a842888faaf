package ledger

import (
	"fmt"

	"github.com/cleared-dev/envelope/internal/aggregate"
	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/envelopes"
	"github.com/cleared-dev/envelope/internal/model"
)

// AccountBalance reports an account's per-unit opening and closing balance
// for a cycle.
func (s *Service) AccountBalance(accountID, label string) (aggregate.Balances, error) {
	if accountID != model.PnLAccount && !s.accounts.Exists(accountID) {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}
	c, err := cycle.Bounds(label)
	if err != nil {
		return nil, err
	}
	return aggregate.AccountBalance(accountID, c, s.snap.Load().All()), nil
}

// AccountsBalance sums several accounts per unit for a cycle.
func (s *Service) AccountsBalance(accountIDs []string, label string) (aggregate.Balances, error) {
	for _, a := range accountIDs {
		if a != model.PnLAccount && !s.accounts.Exists(a) {
			return nil, fmt.Errorf("account %s: %w", a, ErrNotFound)
		}
	}
	c, err := cycle.Bounds(label)
	if err != nil {
		return nil, err
	}
	return aggregate.AccountsBalance(accountIDs, c, s.snap.Load().All()), nil
}

// EnvelopeUsage reports an envelope's usage for the cycle label. Rollover
// is replayed over the configured number of history cycles ending at label.
func (s *Service) EnvelopeUsage(envelopeID, label string) (aggregate.UsageSummary, error) {
	hist, err := s.EnvelopeHistory(envelopeID, label, s.history)
	if err != nil {
		return aggregate.UsageSummary{}, err
	}
	return hist[len(hist)-1], nil
}

// EnvelopeHistory reports usage for the n cycles ending at label, oldest
// first. The oldest cycle starts without a prior.
func (s *Service) EnvelopeHistory(envelopeID, label string, n int) ([]aggregate.UsageSummary, error) {
	env, ok := s.envelopes.Get(envelopeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", envelopes.ErrUnknownEnvelope, envelopeID)
	}
	last, err := cycle.Bounds(label)
	if err != nil {
		return nil, err
	}
	first := last
	for i := 1; i < n; i++ {
		first = first.Prev()
	}
	cycles, err := cycle.Range(first.Label, last.Label)
	if err != nil {
		return nil, err
	}
	return aggregate.UsageHistory(env, cycles, s.snap.Load().All())
}
