package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cleared-dev/envelope/internal/cycle"
)

// FormatTxID returns a transaction ID like "2025-03-001" for the given
// cycle label and sequence number.
func FormatTxID(label string, seq int) string {
	return fmt.Sprintf("%s-%03d", label, seq)
}

// FormatLegRef returns a leg reference like "2025-03-001a" (leg 0='a', 1='b', etc.).
func FormatLegRef(txID string, leg int) string {
	return txID + string(rune('a'+leg))
}

// ParseTxID parses "2025-03-001" into its cycle label and sequence.
// A trailing leg suffix is ignored.
func ParseTxID(id string) (label string, seq int, err error) {
	base := TxOf(id)

	i := strings.LastIndex(base, "-")
	if i < 0 {
		return "", 0, fmt.Errorf("invalid transaction ID format: %q", id)
	}
	label = base[:i]
	if _, err := cycle.Bounds(label); err != nil {
		return "", 0, fmt.Errorf("invalid cycle in transaction ID %q: %w", id, err)
	}
	seq, err = strconv.Atoi(base[i+1:])
	if err != nil || seq < 1 {
		return "", 0, fmt.Errorf("invalid sequence in transaction ID %q", id)
	}
	return label, seq, nil
}

// ParseLegRef splits "2025-03-001b" into the transaction ID and leg index.
func ParseLegRef(ref string) (txID string, leg int, err error) {
	txID = TxOf(ref)
	suffix := ref[len(txID):]
	if len(suffix) != 1 {
		return "", 0, fmt.Errorf("invalid leg reference: %q", ref)
	}
	if _, _, err := ParseTxID(txID); err != nil {
		return "", 0, err
	}
	return txID, int(suffix[0] - 'a'), nil
}

// TxOf strips the leg suffix from a leg reference.
// "2025-03-001a" -> "2025-03-001"
func TxOf(legRef string) string {
	if len(legRef) == 0 {
		return ""
	}
	i := len(legRef)
	for i > 0 && legRef[i-1] >= 'a' && legRef[i-1] <= 'z' {
		i--
	}
	return legRef[:i]
}

// NextSeq returns one past the highest sequence used by ids in label.
// IDs from other cycles or that fail to parse are ignored.
func NextSeq(label string, ids []string) int {
	next := 1
	for _, s := range ids {
		l, seq, err := ParseTxID(s)
		if err != nil || l != label {
			continue
		}
		if seq >= next {
			next = seq + 1
		}
	}
	return next
}
