package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/money"
)

// PnLAccount is the reserved pseudo-account id. Legs against it carry a
// budget category that offsets a real-money leg; it never has a balance.
const PnLAccount = "pnl"

// Direction is the side of a leg. Debit contributes +amount, Credit -amount.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == Debit {
		return Credit
	}
	return Debit
}

// TxType is the optional classification of a transaction.
type TxType string

const (
	TxNone       TxType = ""
	TxSpending   TxType = "spending"
	TxIncome     TxType = "income"
	TxFeeOnly    TxType = "fee_only"
	TxTransfer   TxType = "transfer"
	TxTransferFX TxType = "transfer_fx"
	TxTrade      TxType = "trade"
	TxAdjustment TxType = "adjustment"
	TxRefund     TxType = "refund"
)

// Valid reports whether t is empty or one of the known types.
func (t TxType) Valid() bool {
	switch t {
	case TxNone, TxSpending, TxIncome, TxFeeOnly, TxTransfer, TxTransferFX, TxTrade, TxAdjustment, TxRefund:
		return true
	}
	return false
}

// IsTransfer reports whether t moves money between two real accounts.
func (t TxType) IsTransfer() bool { return t == TxTransfer || t == TxTransferFX }

// NeedsEnvelope reports whether t must be attributed to a budget envelope.
func (t TxType) NeedsEnvelope() bool { return t == TxSpending || t == TxRefund }

// BalanceState is the diagnosis of a transaction's internal consistency.
// It is derived from the legs and the type; only the balance engine and the
// ledger service write it.
type BalanceState string

const (
	StateUnclassified          BalanceState = ""
	StateBalanced              BalanceState = "balanced"
	StateNeedsEnvelopeOffset   BalanceState = "needs_envelope_offset"
	StateAwaitingTransferMatch BalanceState = "awaiting_transfer_match"
	StateUnknown               BalanceState = "unknown"
)

// FxConversion declares the rate used to translate a leg into another unit.
type FxConversion struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source,omitempty"`
	At     time.Time       `json:"at"`
}

// Convert translates v (in From) into To, rounded to To's precision.
func (fx FxConversion) Convert(v decimal.Decimal) decimal.Decimal {
	return money.RoundTo(v.Mul(fx.Rate), fx.To)
}

// Equal compares two conversions field by field.
func (fx FxConversion) Equal(o FxConversion) bool {
	return fx.From == o.From && fx.To == o.To && fx.Rate.Equal(o.Rate) &&
		fx.Source == o.Source && fx.At.Equal(o.At)
}

// Leg is one signed line of a transaction against a single account.
type Leg struct {
	AccountID  string
	Direction  Direction
	Amount     money.LegAmount // magnitude, never negative
	CategoryID string          // envelope id, empty when unassigned
	FX         *FxConversion
	FeeOf      *int // index of the leg this leg is a fee for
	Notes      string
}

// IsPnL reports whether the leg is against the P&L pseudo-account.
func (l Leg) IsPnL() bool { return l.AccountID == PnLAccount }

// Signed returns the native amount with the direction's sign applied.
func (l Leg) Signed() decimal.Decimal {
	if l.Amount == nil {
		return decimal.Zero
	}
	if l.Direction == Credit {
		return l.Amount.Value().Neg()
	}
	return l.Amount.Value()
}

// Bucket returns the unit the leg is balanced in and its signed value there.
// A leg with an FX annotation is converted into the annotation's target unit.
func (l Leg) Bucket() (string, decimal.Decimal) {
	if l.Amount == nil {
		return "", decimal.Zero
	}
	if l.FX != nil {
		return l.FX.To, l.FX.Convert(l.Signed())
	}
	return l.Amount.Unit(), l.Signed()
}

// Clone returns a copy sharing no pointers with l.
func (l Leg) Clone() Leg {
	c := l
	if l.FX != nil {
		fx := *l.FX
		c.FX = &fx
	}
	if l.FeeOf != nil {
		i := *l.FeeOf
		c.FeeOf = &i
	}
	return c
}

// Equal compares two legs by value.
func (l Leg) Equal(o Leg) bool {
	if l.AccountID != o.AccountID || l.Direction != o.Direction || l.CategoryID != o.CategoryID || l.Notes != o.Notes {
		return false
	}
	if !money.SameAmount(l.Amount, o.Amount) {
		return false
	}
	if (l.FX == nil) != (o.FX == nil) || (l.FX != nil && !l.FX.Equal(*o.FX)) {
		return false
	}
	if (l.FeeOf == nil) != (o.FeeOf == nil) || (l.FeeOf != nil && *l.FeeOf != *o.FeeOf) {
		return false
	}
	return true
}

// Ref is an ordered key/value pair carried from an external system.
type Ref struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Transaction records one financial event as a set of legs.
type Transaction struct {
	ID           string       `json:"id"`
	TS           time.Time    `json:"ts"`
	PostedTS     *time.Time   `json:"posted_ts,omitempty"`
	Source       string       `json:"source"`
	Payee        string       `json:"payee,omitempty"`
	Memo         string       `json:"memo,omitempty"`
	Status       string       `json:"status,omitempty"`
	Reconciled   bool         `json:"reconciled"`
	ExternalRefs []Ref        `json:"external_refs,omitempty"`
	Legs         []Leg        `json:"legs"`
	Type         TxType       `json:"tx_type,omitempty"`
	State        BalanceState `json:"balance_state,omitempty"`
}

// NewTransaction builds a transaction, rejecting an empty leg list.
func NewTransaction(id string, ts time.Time, typ TxType, legs ...Leg) (Transaction, error) {
	if len(legs) == 0 {
		return Transaction{}, ErrEmptyLegs
	}
	return Transaction{ID: id, TS: ts, Type: typ, Legs: legs}, nil
}

// EffectiveTS is the settlement time when known, the event time otherwise.
func (t Transaction) EffectiveTS() time.Time {
	if t.PostedTS != nil {
		return *t.PostedTS
	}
	return t.TS
}

// Ref returns the first value stored under key.
func (t Transaction) Ref(key string) (string, bool) {
	for _, r := range t.ExternalRefs {
		if r.Key == key {
			return r.Value, true
		}
	}
	return "", false
}

// SetRef replaces the first value under key or appends a new pair.
func (t *Transaction) SetRef(key, value string) {
	for i, r := range t.ExternalRefs {
		if r.Key == key {
			t.ExternalRefs[i].Value = value
			return
		}
	}
	t.ExternalRefs = append(t.ExternalRefs, Ref{Key: key, Value: value})
}

// RealLegs returns the indices of legs against real accounts.
func (t Transaction) RealLegs() []int {
	var idx []int
	for i, l := range t.Legs {
		if !l.IsPnL() {
			idx = append(idx, i)
		}
	}
	return idx
}

// PrincipalLegs returns the real-account legs that are not fees.
func (t Transaction) PrincipalLegs() []int {
	var idx []int
	for _, i := range t.RealLegs() {
		if t.Legs[i].FeeOf == nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Attributed reports whether a leg is against P&L or carries a category.
func (t Transaction) Attributed() bool {
	for _, l := range t.Legs {
		if l.IsPnL() || l.CategoryID != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (t Transaction) Clone() Transaction {
	c := t
	if t.PostedTS != nil {
		p := *t.PostedTS
		c.PostedTS = &p
	}
	c.ExternalRefs = slices.Clone(t.ExternalRefs)
	c.Legs = make([]Leg, len(t.Legs))
	for i, l := range t.Legs {
		c.Legs[i] = l.Clone()
	}
	return c
}

// Equal compares two transactions by value.
func (t Transaction) Equal(o Transaction) bool {
	if t.ID != o.ID || !t.TS.Equal(o.TS) || t.Source != o.Source || t.Payee != o.Payee ||
		t.Memo != o.Memo || t.Status != o.Status || t.Reconciled != o.Reconciled ||
		t.Type != o.Type || t.State != o.State {
		return false
	}
	if (t.PostedTS == nil) != (o.PostedTS == nil) || (t.PostedTS != nil && !t.PostedTS.Equal(*o.PostedTS)) {
		return false
	}
	if !slices.Equal(t.ExternalRefs, o.ExternalRefs) {
		return false
	}
	return slices.EqualFunc(t.Legs, o.Legs, Leg.Equal)
}
