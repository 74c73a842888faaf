package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/budget"
	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func leg(acct string, dir model.Direction, amt, unit, category string) model.Leg {
	a, err := money.ParseAmount(amt, unit)
	if err != nil {
		panic(err)
	}
	return model.Leg{AccountID: acct, Direction: dir, Amount: a, CategoryID: category}
}

func at(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

func txAt(id string, ts time.Time, typ model.TxType, legs ...model.Leg) model.Transaction {
	return model.Transaction{ID: id, TS: ts, Type: typ, Legs: legs}
}

func TestAccountBalance_Scenario(t *testing.T) {
	c := cycle.MustBounds("2025-03")
	txs := []model.Transaction{
		txAt("2025-02-001", at(2025, 3, 1), model.TxIncome,
			leg("acct.chase", model.Debit, "500.00", "USD", ""),
			leg(model.PnLAccount, model.Credit, "500.00", "USD", "env.salary")),
		txAt("2025-03-001", at(2025, 3, 20), model.TxSpending,
			leg("acct.chase", model.Credit, "20.00", "USD", ""),
			leg(model.PnLAccount, model.Debit, "20.00", "USD", "env.food")),
	}

	b := AccountBalance("acct.chase", c, txs)
	require.Equal(t, []string{"USD"}, b.Units())
	usd := b["USD"]
	assert.True(t, usd.Opening.Equal(dec("500")), "opening %s", usd.Opening)
	assert.True(t, usd.Closing.Equal(dec("480")), "closing %s", usd.Closing)
	assert.True(t, usd.Delta.Equal(dec("-20")), "delta %s", usd.Delta)
}

func TestAccountBalance_UsesPostedTimeAndCutoffs(t *testing.T) {
	c := cycle.MustBounds("2025-03")
	posted := c.End.Add(time.Second)
	late := txAt("t1", at(2025, 4, 5), model.TxSpending, leg("acct.chase", model.Credit, "10.00", "USD", ""))
	late.PostedTS = &posted
	onEnd := txAt("t2", c.End, model.TxIncome, leg("acct.chase", model.Debit, "5.00", "USD", ""))
	onStart := txAt("t3", c.Start, model.TxIncome, leg("acct.chase", model.Debit, "7.00", "USD", ""))

	b := AccountBalance("acct.chase", c, []model.Transaction{late, onEnd, onStart})
	usd := b["USD"]
	assert.True(t, usd.Opening.IsZero())
	assert.True(t, usd.Closing.Equal(dec("12")))
}

func TestAccountBalance_PerCurrencyAndPnL(t *testing.T) {
	c := cycle.MustBounds("2025-03")
	txs := []model.Transaction{
		txAt("t1", at(2025, 3, 12), model.TxTrade,
			leg("acct.kraken", model.Credit, "1000.00", "USD", ""),
			leg("acct.kraken", model.Debit, "0.4", "ETH", "")),
	}
	b := AccountBalance("acct.kraken", c, txs)
	assert.Equal(t, []string{"ETH", "USD"}, b.Units())
	assert.True(t, b["ETH"].Closing.Equal(dec("0.4")))
	assert.True(t, b["USD"].Closing.Equal(dec("-1000")))

	assert.Empty(t, AccountBalance(model.PnLAccount, c, txs))
}

func TestAccountsBalance_NeverCrossSums(t *testing.T) {
	c := cycle.MustBounds("2025-03")
	txs := []model.Transaction{
		txAt("t1", at(2025, 3, 1), model.TxIncome, leg("acct.chase", model.Debit, "100.00", "USD", "")),
		txAt("t2", at(2025, 3, 15), model.TxIncome, leg("acct.sofi", model.Debit, "50.00", "USD", "")),
		txAt("t3", at(2025, 3, 15), model.TxIncome, leg("acct.hsbc", model.Debit, "780.00", "HKD", "")),
	}
	b := AccountsBalance([]string{"acct.chase", "acct.sofi", "acct.hsbc"}, c, txs)
	assert.Equal(t, []string{"HKD", "USD"}, b.Units())
	assert.True(t, b["USD"].Opening.Equal(dec("100")))
	assert.True(t, b["USD"].Closing.Equal(dec("150")))
	assert.True(t, b["USD"].Delta.Equal(dec("50")))
	assert.True(t, b["HKD"].Closing.Equal(dec("780")))
}

func foodEnvelope(p model.RolloverPolicy) model.Envelope {
	return model.Envelope{ID: "env.food", Name: "Food", Status: model.EnvelopeActive, Budget: money.MustParse("400", "USD"), Rollover: p}
}

func TestEnvelopeUsage(t *testing.T) {
	c := cycle.MustBounds("2025-03")
	hkd := leg(model.PnLAccount, model.Debit, "78.00", "HKD", "env.food")
	hkd.FX = &model.FxConversion{From: "HKD", To: "USD", Rate: dec("0.128205"), At: at(2025, 3, 14)}
	txs := []model.Transaction{
		// offset: counted once via the P&L leg
		txAt("t1", at(2025, 3, 12), model.TxSpending,
			leg("acct.chase", model.Credit, "50.00", "USD", "env.food"),
			leg(model.PnLAccount, model.Debit, "50.00", "USD", "env.food")),
		// categorized real leg only
		txAt("t2", at(2025, 3, 13), model.TxSpending,
			leg("acct.chase", model.Credit, "30.00", "USD", "env.food")),
		// FX-annotated: 78 HKD at 0.128205 is 10.00 USD
		txAt("t3", at(2025, 3, 14), model.TxSpending,
			leg("acct.hsbc", model.Credit, "78.00", "HKD", ""), hkd),
		// refund subtracts
		txAt("t4", at(2025, 3, 15), model.TxRefund,
			leg("acct.chase", model.Debit, "5.00", "USD", ""),
			leg(model.PnLAccount, model.Credit, "5.00", "USD", "env.food")),
		// other currency without rate is skipped
		txAt("t5", at(2025, 3, 16), model.TxSpending,
			leg(model.PnLAccount, model.Debit, "100.00", "HKD", "env.food")),
		// outside the cycle
		txAt("t6", at(2025, 4, 12), model.TxSpending,
			leg(model.PnLAccount, model.Debit, "999.00", "USD", "env.food")),
		// other envelope
		txAt("t7", at(2025, 3, 17), model.TxSpending,
			leg(model.PnLAccount, model.Debit, "12.00", "USD", "env.fun")),
	}

	u, err := EnvelopeUsage(foodEnvelope(model.ResetToZero{}), c, txs, budget.PriorCycle{})
	require.NoError(t, err)
	assert.Equal(t, "env.food", u.EnvelopeID)
	assert.Equal(t, "2025-03", u.Cycle)
	assert.True(t, u.Spent.Equal(money.MustParse("85", "USD")), "spent %s", u.Spent)
	assert.True(t, u.Budget.Equal(money.MustParse("400", "USD")))
	require.True(t, u.Percent.Valid)
	assert.True(t, u.Percent.Decimal.Equal(dec("0.2125")), "percent %s", u.Percent.Decimal)
	assert.True(t, u.Remaining().Equal(money.MustParse("315", "USD")))

	require.Len(t, u.Skipped, 1)
	assert.Equal(t, "t5", u.Skipped[0].TxID)
	assert.Equal(t, "HKD", u.Skipped[0].Unit)
}

func TestEnvelopeUsage_ZeroBudget(t *testing.T) {
	env := foodEnvelope(model.ResetToZero{})
	env.Budget = money.MustParse("0", "USD")
	u, err := EnvelopeUsage(env, cycle.MustBounds("2025-03"), nil, budget.PriorCycle{})
	require.NoError(t, err)
	assert.False(t, u.Percent.Valid)
	assert.True(t, u.Spent.IsZero())
}

func TestEnvelopeUsage_AppliesRollover(t *testing.T) {
	prior := budget.PriorCycle{Budget: money.MustParse("400", "USD"), Spent: money.MustParse("100", "USD"), Known: true}
	u, err := EnvelopeUsage(foodEnvelope(model.CarryOver{}), cycle.MustBounds("2025-03"), nil, prior)
	require.NoError(t, err)
	assert.True(t, u.Budget.Equal(money.MustParse("700", "USD")))
}

func TestUsageHistory_ChainsPriors(t *testing.T) {
	cycles, err := cycle.Range("2025-01", "2025-03")
	require.NoError(t, err)
	txs := []model.Transaction{
		txAt("t1", at(2025, 1, 20), model.TxSpending, leg(model.PnLAccount, model.Debit, "100.00", "USD", "env.food")),
		txAt("t2", at(2025, 2, 20), model.TxSpending, leg(model.PnLAccount, model.Debit, "600.00", "USD", "env.food")),
	}
	hist, err := UsageHistory(foodEnvelope(model.CarryOver{}), cycles, txs)
	require.NoError(t, err)
	require.Len(t, hist, 3)

	// 400 base; 400+300; 400+(700-600)
	want := []string{"400", "700", "500"}
	for i, w := range want {
		assert.True(t, hist[i].Budget.Equal(money.MustParse(w, "USD")), "%s budget %s", hist[i].Cycle, hist[i].Budget)
	}
}
