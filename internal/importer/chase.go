package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/model"
)

// ChaseParser parses Chase bank checking CSV exports.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColType    = 4
)

// chaseTransferTypes are the Type values Chase uses for moves between accounts.
var chaseTransferTypes = map[string]bool{"ACCT_XFER": true, "TRANSFER": true}

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns one candidate transaction per row.
func (p *ChaseParser) Parse(r io.Reader, target Target) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	refs := make(map[string]int)
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec, target)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		// Same-day purchases at the same merchant share a prefix; the
		// occurrence count keeps their refs distinct and stable.
		base, _ := txn.Ref(RefImport)
		refs[base]++
		if n := refs[base]; n > 1 {
			txn.SetRef(RefImport, fmt.Sprintf("%s_%d", base, n))
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseChaseRow(rec []string, target Target) (model.Transaction, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	desc := rec[chaseColDesc]
	txn, err := bankTransaction(target, date, &date, desc, amount, chaseTransferTypes[rec[chaseColType]])
	if err != nil {
		return model.Transaction{}, err
	}
	txn.SetRef(RefImport, makeChaseRef(date, desc))
	txn.SetRef("chase_type", rec[chaseColType])
	return txn, nil
}

// makeChaseRef creates a reference like chase_20250103_GITHUB.
func makeChaseRef(date time.Time, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", date.Format("20060102"), prefix)
}
