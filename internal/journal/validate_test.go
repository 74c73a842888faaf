package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/model"
)

// mockAccounts implements AccountChecker for testing.
type mockAccounts struct {
	ids map[string]bool
}

func (m *mockAccounts) Exists(id string) bool {
	return m.ids[id]
}

func newMockAccounts(ids ...string) *mockAccounts {
	m := &mockAccounts{ids: make(map[string]bool)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

var defaultAccounts = newMockAccounts("acct.chase", "acct.sofi", "acct.kraken.usd", "acct.kraken.eth")

func rules(errs []model.ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Rule
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	txs := []model.Transaction{spending("2025-03-001", date(2025, 3, 12), "4.00"), tradeTx()}
	assert.Empty(t, ValidateCycle(txs, defaultAccounts, "2025-03"))
}

func TestValidate_UnknownAccount(t *testing.T) {
	tx := spending("2025-03-001", date(2025, 3, 12), "4.00")
	tx.Legs[0].AccountID = "acct.nowhere"
	errs := ValidateCycle([]model.Transaction{tx}, defaultAccounts, "2025-03")
	require.Len(t, errs, 1)
	assert.Equal(t, "account_exists", errs[0].Rule)
	assert.Contains(t, errs[0].Error(), "acct.nowhere")
}

func TestValidate_PnLNeedsNoRegistration(t *testing.T) {
	tx := spending("2025-03-001", date(2025, 3, 12), "4.00")
	errs := ValidateCycle([]model.Transaction{tx}, newMockAccounts("acct.chase"), "2025-03")
	assert.Empty(t, errs)
}

func TestValidate_DuplicateID(t *testing.T) {
	txs := []model.Transaction{
		spending("2025-03-001", date(2025, 3, 12), "4.00"),
		spending("2025-03-001", date(2025, 3, 13), "5.00"),
	}
	assert.Contains(t, rules(ValidateCycle(txs, defaultAccounts, "2025-03")), "unique_id")
}

func TestValidate_WrongCycle(t *testing.T) {
	// ID from another cycle
	errs := ValidateCycle([]model.Transaction{spending("2025-04-001", date(2025, 3, 12), "4.00")}, defaultAccounts, "2025-03")
	assert.Contains(t, rules(errs), "cycle")

	// ts outside the cycle: 2025-03-05 belongs to 2025-02
	errs = ValidateCycle([]model.Transaction{spending("2025-03-001", date(2025, 3, 5), "4.00")}, defaultAccounts, "2025-03")
	assert.Contains(t, rules(errs), "cycle")
}

func TestValidate_StructuralErrorsSurface(t *testing.T) {
	tx := spending("2025-03-001", date(2025, 3, 12), "4.00")
	tx.Legs = nil
	errs := ValidateCycle([]model.Transaction{tx}, defaultAccounts, "2025-03")
	assert.Contains(t, rules(errs), "legs")
}

func TestValidate_BadLabel(t *testing.T) {
	errs := ValidateCycle(nil, defaultAccounts, "2025-3")
	assert.Equal(t, []string{"cycle"}, rules(errs))
}
