package money

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CryptoPrecision is the maximum number of decimal places of a crypto quantity.
const CryptoPrecision = 8

var assetPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,15}$`)

// CryptoAmount is an exact quantity of a crypto asset. The asset is a free-form
// symbol, validated only for shape.
type CryptoAmount struct {
	qty   decimal.Decimal
	asset string
}

// ValidAsset reports whether symbol is a well-formed asset symbol.
func ValidAsset(symbol string) bool {
	return assetPattern.MatchString(symbol)
}

// NewCrypto builds a CryptoAmount.
func NewCrypto(qty decimal.Decimal, asset string) (CryptoAmount, error) {
	sym := strings.ToUpper(strings.TrimSpace(asset))
	if !ValidAsset(sym) {
		return CryptoAmount{}, fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
	}
	if !qty.Equal(qty.Round(CryptoPrecision)) {
		return CryptoAmount{}, fmt.Errorf("%w: %s has more than %d decimal places for %s", ErrPrecision, qty, CryptoPrecision, sym)
	}
	return CryptoAmount{qty: qty, asset: sym}, nil
}

// ParseCrypto builds a CryptoAmount from a decimal string.
func ParseCrypto(qty, asset string) (CryptoAmount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(qty))
	if err != nil {
		return CryptoAmount{}, fmt.Errorf("parsing quantity %q: %w", qty, err)
	}
	return NewCrypto(d, asset)
}

// MustParseCrypto is ParseCrypto for literals; it panics on error.
func MustParseCrypto(qty, asset string) CryptoAmount {
	c, err := ParseCrypto(qty, asset)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CryptoAmount) Asset() string          { return c.asset }
func (c CryptoAmount) Qty() decimal.Decimal   { return c.qty }
func (c CryptoAmount) Unit() string           { return c.asset }
func (c CryptoAmount) Value() decimal.Decimal { return c.qty }
func (c CryptoAmount) Precision() int32       { return CryptoPrecision }
func (c CryptoAmount) IsZero() bool           { return c.qty.IsZero() }
func (c CryptoAmount) Neg() CryptoAmount      { return CryptoAmount{qty: c.qty.Neg(), asset: c.asset} }

func (c CryptoAmount) isLegAmount() {}

// Equal reports whether both asset and quantity are equal.
func (c CryptoAmount) Equal(d CryptoAmount) bool {
	return c.asset == d.asset && c.qty.Equal(d.qty)
}

func (c CryptoAmount) Add(d CryptoAmount) (CryptoAmount, error) {
	if c.asset != d.asset {
		return CryptoAmount{}, mismatch(c.asset, d.asset)
	}
	return CryptoAmount{qty: c.qty.Add(d.qty), asset: c.asset}, nil
}

func (c CryptoAmount) Sub(d CryptoAmount) (CryptoAmount, error) {
	if c.asset != d.asset {
		return CryptoAmount{}, mismatch(c.asset, d.asset)
	}
	return CryptoAmount{qty: c.qty.Sub(d.qty), asset: c.asset}, nil
}

func (c CryptoAmount) Cmp(d CryptoAmount) (int, error) {
	if c.asset != d.asset {
		return 0, mismatch(c.asset, d.asset)
	}
	return c.qty.Cmp(d.qty), nil
}

func (c CryptoAmount) String() string {
	return c.qty.String() + " " + c.asset
}

type jsonCrypto struct {
	Qty   string `json:"qty"`
	Asset string `json:"asset"`
}

func (c CryptoAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonCrypto{Qty: c.qty.String(), Asset: c.asset})
}

func (c *CryptoAmount) UnmarshalJSON(data []byte) error {
	var j jsonCrypto
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	parsed, err := ParseCrypto(j.Qty, j.Asset)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
