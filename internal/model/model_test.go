package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/money"
)

var testTime = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func intp(i int) *int { return &i }

func fullTransaction() Transaction {
	posted := testTime.Add(48 * time.Hour)
	return Transaction{
		ID:         "2025-03-001",
		TS:         testTime,
		PostedTS:   &posted,
		Source:     "manual",
		Payee:      "Kraken",
		Memo:       "buy eth",
		Status:     "cleared",
		Reconciled: true,
		ExternalRefs: []Ref{
			{Key: "fitid", Value: "F1"},
			{Key: "batch", Value: "b-7"},
		},
		Type: TxTrade,
		Legs: []Leg{
			{AccountID: "acct.kraken.usd", Direction: Credit, Amount: money.MustParse("1000.00", "USD")},
			{
				AccountID: "acct.kraken.eth", Direction: Debit, Amount: money.MustParseCrypto("0.4", "ETH"),
				FX: &FxConversion{From: "ETH", To: "USD", Rate: decimal.RequireFromString("2500"), Source: "kraken", At: testTime},
			},
			{AccountID: "acct.kraken.usd", Direction: Credit, Amount: money.MustParse("2.50", "USD"), FeeOf: intp(1), Notes: "taker fee"},
			{AccountID: PnLAccount, Direction: Debit, Amount: money.MustParse("2.50", "USD"), CategoryID: "env.fees"},
		},
		State: StateBalanced,
	}
}

func TestTransactionJSON_RoundTrip(t *testing.T) {
	tx := fullTransaction()
	data, err := json.Marshal(tx)
	require.NoError(t, err)

	var got Transaction
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, tx.Equal(got), "round trip changed the transaction:\n%s", data)
}

func TestTransactionJSON_Shape(t *testing.T) {
	data, err := json.Marshal(fullTransaction())
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"fiat":{"amount":"1000","currency":"USD"}`)
	assert.Contains(t, s, `"crypto":{"qty":"0.4","asset":"ETH"}`)
	assert.Contains(t, s, `"fee_of_leg_idx":1`)
	assert.Contains(t, s, `"balance_state":"balanced"`)
}

func TestLegJSON_RejectsMissingAmount(t *testing.T) {
	var l Leg
	err := json.Unmarshal([]byte(`{"account_id":"a","direction":"debit","amount":{}}`), &l)
	assert.Error(t, err)
}

func TestNewTransaction_EmptyLegs(t *testing.T) {
	_, err := NewTransaction("t1", testTime, TxSpending)
	assert.ErrorIs(t, err, ErrEmptyLegs)

	tx, err := NewTransaction("t1", testTime, TxSpending, Leg{AccountID: "a", Direction: Debit, Amount: money.MustParse("1", "USD")})
	require.NoError(t, err)
	assert.Len(t, tx.Legs, 1)
}

func TestValidateTransaction(t *testing.T) {
	assert.NoError(t, fullTransaction().Validate())

	tests := []struct {
		name   string
		mutate func(*Transaction)
		rule   string
	}{
		{"empty legs", func(tx *Transaction) { tx.Legs = nil }, "legs"},
		{"missing id", func(tx *Transaction) { tx.ID = "" }, "id"},
		{"bad type", func(tx *Transaction) { tx.Type = "gift" }, "tx_type"},
		{"self fee", func(tx *Transaction) { tx.Legs[2].FeeOf = intp(2) }, "fee_of"},
		{"fee out of range", func(tx *Transaction) { tx.Legs[2].FeeOf = intp(9) }, "fee_of"},
		{"zero rate", func(tx *Transaction) { tx.Legs[1].FX.Rate = decimal.Zero }, "fx"},
		{"fx from mismatch", func(tx *Transaction) { tx.Legs[1].FX.From = "BTC" }, "fx"},
		{"negative amount", func(tx *Transaction) { tx.Legs[0].Amount = money.MustParse("-1", "USD") }, "amount"},
		{"bad direction", func(tx *Transaction) { tx.Legs[0].Direction = "up" }, "direction"},
		{"no account", func(tx *Transaction) { tx.Legs[0].AccountID = "" }, "account"},
		{"too many legs", func(tx *Transaction) {
			for len(tx.Legs) <= MaxLegs {
				tx.Legs = append(tx.Legs, tx.Legs[0].Clone())
			}
		}, "legs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := fullTransaction()
			tt.mutate(&tx)
			errs := ValidateTransaction(tx)
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if e.Rule == tt.rule {
					found = true
				}
			}
			assert.True(t, found, "expected a %s violation, got %v", tt.rule, errs)
		})
	}
}

func TestValidate_EmptyLegsIsDetectable(t *testing.T) {
	tx := fullTransaction()
	tx.Legs = nil
	err := tx.Validate()
	assert.ErrorIs(t, err, ErrEmptyLegs)
}

func TestLegBucket(t *testing.T) {
	tx := fullTransaction()

	unit, v := tx.Legs[0].Bucket()
	assert.Equal(t, "USD", unit)
	assert.True(t, v.Equal(decimal.RequireFromString("-1000")))

	unit, v = tx.Legs[1].Bucket()
	assert.Equal(t, "USD", unit)
	assert.True(t, v.Equal(decimal.RequireFromString("1000")))
}

func TestCloneIsDeep(t *testing.T) {
	tx := fullTransaction()
	c := tx.Clone()
	require.True(t, tx.Equal(c))

	c.Legs[1].FX.Rate = decimal.NewFromInt(1)
	*c.Legs[2].FeeOf = 0
	c.ExternalRefs[0].Value = "changed"
	assert.False(t, tx.Equal(c))
	assert.True(t, tx.Legs[1].FX.Rate.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 1, *tx.Legs[2].FeeOf)
	assert.Equal(t, "F1", tx.ExternalRefs[0].Value)
}

func TestRefs(t *testing.T) {
	tx := fullTransaction()
	v, ok := tx.Ref("fitid")
	assert.True(t, ok)
	assert.Equal(t, "F1", v)

	tx.SetRef("fitid", "F2")
	tx.SetRef("link", "x")
	v, _ = tx.Ref("fitid")
	assert.Equal(t, "F2", v)
	assert.Len(t, tx.ExternalRefs, 3)
}

func TestLegIndexHelpers(t *testing.T) {
	tx := fullTransaction()
	assert.Equal(t, []int{0, 1, 2}, tx.RealLegs())
	assert.Equal(t, []int{0, 1}, tx.PrincipalLegs())
	assert.True(t, tx.Attributed())
	assert.True(t, tx.EffectiveTS().Equal(testTime.Add(48*time.Hour)))
}

func TestValidateAccount(t *testing.T) {
	tests := []struct {
		name string
		acct Account
		ok   bool
	}{
		{"checking", Account{ID: "acct.chase", Currency: "USD", Type: AccountTypeChecking, Details: BankDetails{Institution: "Chase", Last4: "1234"}}, true},
		{"savings", Account{ID: "acct.sofi", Currency: "USD", Type: AccountTypeSavings, Details: BankDetails{}}, true},
		{"wallet", Account{ID: "acct.ledger", Currency: "ETH", Type: AccountTypeCryptoWallet, Details: CryptoWalletDetails{Network: "ethereum"}}, true},
		{"wallet without network", Account{ID: "w", Currency: "ETH", Type: AccountTypeCryptoWallet, Details: CryptoWalletDetails{}}, false},
		{"details mismatch", Account{ID: "c", Currency: "USD", Type: AccountTypeCredit, Details: BankDetails{}}, false},
		{"no details", Account{ID: "c", Currency: "USD", Type: AccountTypeTrust}, false},
		{"unknown type", Account{ID: "c", Currency: "USD", Type: "brokerage", Details: BankDetails{}}, false},
		{"reserved id", Account{ID: PnLAccount, Currency: "USD", Type: AccountTypeChecking, Details: BankDetails{}}, false},
		{"bad last4", Account{ID: "c", Currency: "USD", Type: AccountTypeChecking, Details: BankDetails{Last4: "12a4"}}, false},
		{"cex", Account{ID: "x", Currency: "USDT", Type: AccountTypeCex, Details: CexDetails{Exchange: "binance", SubAccount: "spot"}}, true},
		{"trust", Account{ID: "t", Currency: "HKD", Type: AccountTypeTrust, Details: TrustDetails{Trustee: "HSBC"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccount(tt.acct)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidAccountMetadata)
		})
	}
}

func TestSettlementCurrency(t *testing.T) {
	a := Account{ID: "acct.hsbc", Currency: "HKD"}
	assert.Equal(t, "HKD", SettlementCurrency(a))
}

func TestValidateEnvelope(t *testing.T) {
	usdCap := money.MustParse("500", "USD")
	hkdCap := money.MustParse("500", "HKD")
	base := Envelope{ID: "env.food", Status: EnvelopeActive, Budget: money.MustParse("400", "USD")}

	tests := []struct {
		name   string
		policy RolloverPolicy
		ok     bool
	}{
		{"reset", ResetToZero{}, true},
		{"carry", CarryOver{Cap: &usdCap}, true},
		{"carry foreign cap", CarryOver{Cap: &hkdCap}, false},
		{"sinking", SinkingFund{}, true},
		{"decay", Decay{KeepRatio: decimal.RequireFromString("0.5")}, true},
		{"decay above one", Decay{KeepRatio: decimal.RequireFromString("1.5")}, false},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			e.Rollover = tt.policy
			err := ValidateEnvelope(e)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidEnvelope), "got %v", err)
		})
	}
}
