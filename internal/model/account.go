package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/envelope/internal/money"
)

// ErrInvalidAccountMetadata is returned when an account's type or details are inconsistent.
var ErrInvalidAccountMetadata = errors.New("invalid account metadata")

// AccountType classifies a holding.
type AccountType string

const (
	AccountTypeChecking     AccountType = "checking"
	AccountTypeSavings      AccountType = "savings"
	AccountTypeCredit       AccountType = "credit"
	AccountTypeCryptoWallet AccountType = "crypto_wallet"
	AccountTypeCex          AccountType = "cex"
	AccountTypeTrust        AccountType = "trust"
)

// AccountTypes lists the closed set of account types.
var AccountTypes = []AccountType{
	AccountTypeChecking, AccountTypeSavings, AccountTypeCredit,
	AccountTypeCryptoWallet, AccountTypeCex, AccountTypeTrust,
}

// AccountDetails is the type-specific payload of an account. The set of
// implementations is closed.
type AccountDetails interface {
	supports(t AccountType) bool
	check() error
}

// BankDetails belongs to checking and savings accounts.
type BankDetails struct {
	Institution string
	Last4       string
}

// CreditDetails belongs to credit accounts.
type CreditDetails struct {
	Issuer string
	Last4  string
	Limit  *money.Money
}

// CryptoWalletDetails belongs to self-custody wallets.
type CryptoWalletDetails struct {
	Network string // required, e.g. "ethereum"
	Address string
}

// CexDetails belongs to exchange sub-accounts.
type CexDetails struct {
	Exchange   string // required
	SubAccount string
}

// TrustDetails belongs to trust accounts.
type TrustDetails struct {
	Trustee string // required
}

func (BankDetails) supports(t AccountType) bool {
	return t == AccountTypeChecking || t == AccountTypeSavings
}
func (CreditDetails) supports(t AccountType) bool       { return t == AccountTypeCredit }
func (CryptoWalletDetails) supports(t AccountType) bool { return t == AccountTypeCryptoWallet }
func (CexDetails) supports(t AccountType) bool          { return t == AccountTypeCex }
func (TrustDetails) supports(t AccountType) bool        { return t == AccountTypeTrust }

func (d BankDetails) check() error {
	return checkLast4(d.Last4)
}

func (d CreditDetails) check() error {
	if d.Limit != nil && d.Limit.IsNegative() {
		return fmt.Errorf("credit limit %s is negative", d.Limit)
	}
	return checkLast4(d.Last4)
}

func (d CryptoWalletDetails) check() error {
	if strings.TrimSpace(d.Network) == "" {
		return errors.New("crypto wallet requires a network")
	}
	return nil
}

func (d CexDetails) check() error {
	if strings.TrimSpace(d.Exchange) == "" {
		return errors.New("exchange account requires an exchange name")
	}
	return nil
}

func (d TrustDetails) check() error {
	if strings.TrimSpace(d.Trustee) == "" {
		return errors.New("trust account requires a trustee")
	}
	return nil
}

func checkLast4(s string) error {
	if s == "" {
		return nil
	}
	if len(s) != 4 || strings.Trim(s, "0123456789") != "" {
		return fmt.Errorf("last4 %q must be four digits", s)
	}
	return nil
}

// Account is a named holding with a settlement currency.
type Account struct {
	ID         string
	Name       string
	Currency   string
	Type       AccountType
	Details    AccountDetails
	GroupID    string
	GroupOrder *int
}

// SettlementCurrency returns the unit the account settles in.
func SettlementCurrency(a Account) string {
	return a.Currency
}

// ValidateAccount checks the account's type and type-specific details.
func ValidateAccount(a Account) error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: account %q: %s", ErrInvalidAccountMetadata, a.ID, fmt.Sprintf(format, args...))
	}
	if a.ID == "" {
		return bad("id is empty")
	}
	if a.ID == PnLAccount {
		return bad("id %q is reserved", PnLAccount)
	}
	known := false
	for _, t := range AccountTypes {
		if a.Type == t {
			known = true
		}
	}
	if !known {
		return bad("unknown type %q", a.Type)
	}
	if !money.IsFiat(a.Currency) && !money.ValidAsset(a.Currency) {
		return bad("invalid currency %q", a.Currency)
	}
	if a.Details == nil {
		return bad("type %s requires details", a.Type)
	}
	if !a.Details.supports(a.Type) {
		return bad("details %T do not match type %s", a.Details, a.Type)
	}
	if err := a.Details.check(); err != nil {
		return bad("%v", err)
	}
	return nil
}
