package accounts

import "github.com/cleared-dev/envelope/internal/model"

// DefaultAccounts returns the starter registry for a new ledger: everyday
// cash accounts in the reporting currency.
func DefaultAccounts(currency string) []model.Account {
	first, second := 1, 2
	return []model.Account{
		{ID: "acct.checking", Name: "Checking", Currency: currency, Type: model.AccountTypeChecking, Details: model.BankDetails{}, GroupID: "cash", GroupOrder: &first},
		{ID: "acct.savings", Name: "Savings", Currency: currency, Type: model.AccountTypeSavings, Details: model.BankDetails{}, GroupID: "cash", GroupOrder: &second},
		{ID: "acct.credit", Name: "Credit Card", Currency: currency, Type: model.AccountTypeCredit, Details: model.CreditDetails{}, GroupID: "credit"},
	}
}
