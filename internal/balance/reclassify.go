package balance

import "github.com/cleared-dev/envelope/internal/model"

// Reclassify sets the category of one leg and re-derives the balance state.
// An empty categoryID clears the assignment. The input is not modified.
func Reclassify(tx model.Transaction, legIndex int, categoryID string) (model.Transaction, error) {
	if legIndex < 0 || legIndex >= len(tx.Legs) {
		return tx, &IndexError{TxID: tx.ID, Index: legIndex, Len: len(tx.Legs)}
	}
	out := tx.Clone()
	out.Legs[legIndex].CategoryID = categoryID
	out.State = Classify(out)
	return out, nil
}
