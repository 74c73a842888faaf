package model

import (
	"encoding/json"
	"fmt"

	"github.com/cleared-dev/envelope/internal/money"
)

// jsonLeg mirrors Leg with the amount in its tagged encoding.
type jsonLeg struct {
	AccountID  string          `json:"account_id"`
	Direction  Direction       `json:"direction"`
	Amount     json.RawMessage `json:"amount"`
	CategoryID string          `json:"category_id,omitempty"`
	FX         *FxConversion   `json:"fx,omitempty"`
	FeeOf      *int            `json:"fee_of_leg_idx,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

func (l Leg) MarshalJSON() ([]byte, error) {
	amount, err := money.MarshalAmount(l.Amount)
	if err != nil {
		return nil, fmt.Errorf("leg %s: %w", l.AccountID, err)
	}
	return json.Marshal(jsonLeg{
		AccountID:  l.AccountID,
		Direction:  l.Direction,
		Amount:     amount,
		CategoryID: l.CategoryID,
		FX:         l.FX,
		FeeOf:      l.FeeOf,
		Notes:      l.Notes,
	})
}

func (l *Leg) UnmarshalJSON(data []byte) error {
	var j jsonLeg
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	amount, err := money.UnmarshalAmount(j.Amount)
	if err != nil {
		return fmt.Errorf("leg %s: %w", j.AccountID, err)
	}
	*l = Leg{
		AccountID:  j.AccountID,
		Direction:  j.Direction,
		Amount:     amount,
		CategoryID: j.CategoryID,
		FX:         j.FX,
		FeeOf:      j.FeeOf,
		Notes:      j.Notes,
	}
	return nil
}
