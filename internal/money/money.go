package money

import (
	"encoding/json"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an exact fiat amount. The currency is an ISO-4217 code known to
// the go-money registry; the amount never carries more decimal places than
// the currency's minor unit.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// IsFiat reports whether code is in the fiat registry.
func IsFiat(code string) bool {
	return gomoney.GetCurrency(code) != nil
}

// Fraction returns the minor-unit digits of a fiat currency.
func Fraction(code string) (int32, error) {
	c := gomoney.GetCurrency(code)
	if c == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return int32(c.Fraction), nil
}

// New builds a Money, validating the currency and the amount's precision.
func New(amount decimal.Decimal, currency string) (Money, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	frac, err := Fraction(code)
	if err != nil {
		return Money{}, err
	}
	if !amount.Equal(amount.Round(frac)) {
		return Money{}, fmt.Errorf("%w: %s has more than %d decimal places for %s", ErrPrecision, amount, frac, code)
	}
	return Money{amount: amount, currency: code}, nil
}

// Parse builds a Money from a decimal string.
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return New(d, currency)
}

// MustParse is Parse for literals; it panics on error.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in currency. The code is not validated.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(currency)}
}

func (m Money) Currency() string        { return m.currency }
func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Unit() string            { return m.currency }
func (m Money) Value() decimal.Decimal  { return m.amount }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) Neg() Money              { return Money{amount: m.amount.Neg(), currency: m.currency} }
func (m Money) Abs() Money              { return Money{amount: m.amount.Abs(), currency: m.currency} }

func (m Money) isLegAmount() {}

// Precision returns the number of decimal places of the currency.
func (m Money) Precision() int32 {
	frac, err := Fraction(m.currency)
	if err != nil {
		return 2
	}
	return frac
}

// Equal reports whether both currency and amount are equal.
func (m Money) Equal(n Money) bool {
	return m.currency == n.currency && m.amount.Equal(n.amount)
}

// Add returns m+n.
func (m Money) Add(n Money) (Money, error) {
	if m.currency != n.currency {
		return Money{}, mismatch(m.currency, n.currency)
	}
	return Money{amount: m.amount.Add(n.amount), currency: m.currency}, nil
}

// Sub returns m-n.
func (m Money) Sub(n Money) (Money, error) {
	if m.currency != n.currency {
		return Money{}, mismatch(m.currency, n.currency)
	}
	return Money{amount: m.amount.Sub(n.amount), currency: m.currency}, nil
}

// Cmp compares m and n like decimal.Cmp.
func (m Money) Cmp(n Money) (int, error) {
	if m.currency != n.currency {
		return 0, mismatch(m.currency, n.currency)
	}
	return m.amount.Cmp(n.amount), nil
}

// MulRatio returns m scaled by r, rounded to the currency's precision.
func (m Money) MulRatio(r decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(r).Round(m.Precision()), currency: m.currency}
}

// Min returns the smaller of m and n.
func (m Money) Min(n Money) (Money, error) {
	c, err := m.Cmp(n)
	if err != nil {
		return Money{}, err
	}
	if c > 0 {
		return n, nil
	}
	return m, nil
}

// String formats the amount at the currency's precision, e.g. "50.00 USD".
func (m Money) String() string {
	return m.amount.StringFixed(m.Precision()) + " " + m.currency
}

type jsonMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMoney{Amount: m.amount.String(), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var j jsonMoney
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	parsed, err := Parse(j.Amount, j.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
