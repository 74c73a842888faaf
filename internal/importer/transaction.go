package importer

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// bankTransaction turns one signed statement line into a candidate.
//
// Outflows become a Credit leg on the account and are typed spending (or
// transfer). Inflows become a Debit leg; non-transfer inflows are income and
// get an unassigned P&L leg so they arrive balanced. Spending is left
// one-sided for the balance engine to offset.
func bankTransaction(target Target, ts time.Time, posted *time.Time, payee string, signed decimal.Decimal, transfer bool) (model.Transaction, error) {
	amt, err := money.NewAmount(signed.Abs(), target.Currency)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("amount %s %s: %w", signed, target.Currency, err)
	}

	dir := model.Debit
	typ := model.TxIncome
	if signed.IsNegative() {
		dir = model.Credit
		typ = model.TxSpending
	}
	if transfer {
		typ = model.TxTransfer
	}

	legs := []model.Leg{{AccountID: target.AccountID, Direction: dir, Amount: amt}}
	if typ == model.TxIncome {
		legs = append(legs, model.Leg{AccountID: model.PnLAccount, Direction: dir.Opposite(), Amount: amt})
	}

	txn, err := model.NewTransaction("", ts.UTC(), typ, legs...)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.Source = target.Feed
	txn.Payee = payee
	if posted != nil {
		p := posted.UTC()
		txn.PostedTS = &p
	}
	return txn, nil
}
