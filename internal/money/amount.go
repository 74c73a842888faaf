package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LegAmount is either a fiat Money or a CryptoAmount. The interface is sealed:
// no other type implements it.
type LegAmount interface {
	Unit() string
	Value() decimal.Decimal
	Precision() int32
	IsZero() bool
	String() string
	isLegAmount()
}

var (
	_ LegAmount = Money{}
	_ LegAmount = CryptoAmount{}
)

// NewAmount builds a fiat amount when unit is a registry currency and a
// crypto amount otherwise.
func NewAmount(value decimal.Decimal, unit string) (LegAmount, error) {
	code := strings.ToUpper(strings.TrimSpace(unit))
	if IsFiat(code) {
		return New(value, code)
	}
	return NewCrypto(value, code)
}

// ParseAmount is NewAmount from a decimal string.
func ParseAmount(value, unit string) (LegAmount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", value, err)
	}
	return NewAmount(d, unit)
}

// PrecisionOf returns the decimal places allowed for a unit code.
func PrecisionOf(unit string) int32 {
	if frac, err := Fraction(unit); err == nil {
		return frac
	}
	return CryptoPrecision
}

// RoundTo rounds v to the precision of unit.
func RoundTo(v decimal.Decimal, unit string) decimal.Decimal {
	return v.Round(PrecisionOf(unit))
}

// IsCrypto reports whether a holds a crypto quantity.
func IsCrypto(a LegAmount) bool {
	_, ok := a.(CryptoAmount)
	return ok
}

// SameAmount reports whether a and b carry the same unit and value.
func SameAmount(a, b LegAmount) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Unit() == b.Unit() && a.Value().Equal(b.Value()) && IsCrypto(a) == IsCrypto(b)
}

// legAmountJSON is the tagged encoding of a LegAmount: exactly one field is set.
type legAmountJSON struct {
	Fiat   *Money        `json:"fiat,omitempty"`
	Crypto *CryptoAmount `json:"crypto,omitempty"`
}

// MarshalAmount encodes a LegAmount as {"fiat":{...}} or {"crypto":{...}}.
func MarshalAmount(a LegAmount) ([]byte, error) {
	var j legAmountJSON
	switch v := a.(type) {
	case Money:
		j.Fiat = &v
	case CryptoAmount:
		j.Crypto = &v
	case nil:
		return nil, errors.New("nil amount")
	default:
		return nil, fmt.Errorf("unsupported amount type %T", a)
	}
	return json.Marshal(j)
}

// UnmarshalAmount decodes the tagged encoding produced by MarshalAmount.
func UnmarshalAmount(data []byte) (LegAmount, error) {
	var j legAmountJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	switch {
	case j.Fiat != nil && j.Crypto != nil:
		return nil, errors.New("amount has both fiat and crypto")
	case j.Fiat != nil:
		return *j.Fiat, nil
	case j.Crypto != nil:
		return *j.Crypto, nil
	default:
		return nil, errors.New("amount has neither fiat nor crypto")
	}
}
