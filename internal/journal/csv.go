package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/id"
	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// Header is the CSV header for journal.csv. Each row is one leg; the
// transaction columns repeat on every leg of the same transaction.
const Header = "leg_ref,tx_id,ts,posted_ts,source,payee,memo,status,reconciled,tx_type,balance_state,external_refs," +
	"account_id,direction,amount,unit,kind,category_id,fx_from,fx_to,fx_rate,fx_source,fx_at,fee_of,notes"

const (
	numFields     = 25
	tsFormat      = time.RFC3339Nano
	colLegRef     = 0
	colTxID       = 1
	colTS         = 2
	colPostedTS   = 3
	colSource     = 4
	colPayee      = 5
	colMemo       = 6
	colStatus     = 7
	colReconciled = 8
	colTxType     = 9
	colState      = 10
	colRefs       = 11
	colAcctID     = 12
	colDirection  = 13
	colAmount     = 14
	colUnit       = 15
	colKind       = 16
	colCategory   = 17
	colFxFrom     = 18
	colFxTo       = 19
	colFxRate     = 20
	colFxSource   = 21
	colFxAt       = 22
	colFeeOf      = 23
	colNotes      = 24
)

const (
	kindFiat   = "fiat"
	kindCrypto = "crypto"
)

// ReadTransactions reads all transactions from a journal.csv reader.
// Rows of one transaction must be contiguous and in leg order.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}
	return decodeRows(records[1:], 2)
}

// DecodeRows rebuilds transactions from header-less journal rows, as
// produced by EncodeRows.
func DecodeRows(rows [][]string) ([]model.Transaction, error) {
	return decodeRows(rows, 1)
}

// EncodeRows converts transactions to journal rows without a header.
func EncodeRows(txs []model.Transaction) [][]string {
	var rows [][]string
	for _, tx := range txs {
		for i := range tx.Legs {
			rows = append(rows, MarshalRow(tx, i))
		}
	}
	return rows
}

// decodeRows groups contiguous rows into transactions. first is the row
// number of rows[0] for error messages.
func decodeRows(rows [][]string, first int) ([]model.Transaction, error) {
	var txs []model.Transaction
	for i, rec := range rows {
		row := i + first
		tx, leg, err := UnmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if n := len(txs); n > 0 && txs[n-1].ID == tx.ID {
			txs[n-1].Legs = append(txs[n-1].Legs, leg)
		} else {
			for _, prev := range txs {
				if prev.ID == tx.ID {
					return nil, fmt.Errorf("row %d: transaction %s is not contiguous", row, tx.ID)
				}
			}
			tx.Legs = []model.Leg{leg}
			txs = append(txs, tx)
		}
		cur := txs[len(txs)-1]
		refTx, legIdx, err := id.ParseLegRef(rec[colLegRef])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if refTx != cur.ID || legIdx != len(cur.Legs)-1 {
			return nil, fmt.Errorf("row %d: leg ref %q out of order, want %q", row, rec[colLegRef], id.FormatLegRef(cur.ID, len(cur.Legs)-1))
		}
	}
	return txs, nil
}

// WriteTransactions writes transactions to a journal.csv writer (including header).
func WriteTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return writeRows(cw, txs)
}

// AppendTransactions appends transactions to an existing journal.csv writer (no header).
func AppendTransactions(w io.Writer, txs []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	return writeRows(cw, txs)
}

func writeRows(cw *csv.Writer, txs []model.Transaction) error {
	for _, tx := range txs {
		for i := range tx.Legs {
			if err := cw.Write(MarshalRow(tx, i)); err != nil {
				return fmt.Errorf("writing %s: %w", id.FormatLegRef(tx.ID, i), err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts leg i of tx to a CSV row.
func MarshalRow(tx model.Transaction, i int) []string {
	leg := tx.Legs[i]
	row := make([]string, numFields)
	row[colLegRef] = id.FormatLegRef(tx.ID, i)
	row[colTxID] = tx.ID
	row[colTS] = tx.TS.UTC().Format(tsFormat)
	if tx.PostedTS != nil {
		row[colPostedTS] = tx.PostedTS.UTC().Format(tsFormat)
	}
	row[colSource] = tx.Source
	row[colPayee] = tx.Payee
	row[colMemo] = tx.Memo
	row[colStatus] = tx.Status
	row[colReconciled] = strconv.FormatBool(tx.Reconciled)
	row[colTxType] = string(tx.Type)
	row[colState] = string(tx.State)
	row[colRefs] = formatRefs(tx.ExternalRefs)

	row[colAcctID] = leg.AccountID
	row[colDirection] = string(leg.Direction)
	if leg.Amount != nil {
		row[colAmount] = leg.Amount.Value().StringFixed(leg.Amount.Precision())
		row[colUnit] = leg.Amount.Unit()
		row[colKind] = kindFiat
		if money.IsCrypto(leg.Amount) {
			row[colKind] = kindCrypto
		}
	}
	row[colCategory] = leg.CategoryID
	if leg.FX != nil {
		row[colFxFrom] = leg.FX.From
		row[colFxTo] = leg.FX.To
		row[colFxRate] = leg.FX.Rate.String()
		row[colFxSource] = leg.FX.Source
		row[colFxAt] = leg.FX.At.UTC().Format(tsFormat)
	}
	if leg.FeeOf != nil {
		row[colFeeOf] = strconv.Itoa(*leg.FeeOf)
	}
	row[colNotes] = leg.Notes

	return row
}

// UnmarshalRow converts a CSV row to its transaction header and leg. The
// returned transaction has no legs.
func UnmarshalRow(record []string) (model.Transaction, model.Leg, error) {
	if len(record) != numFields {
		return model.Transaction{}, model.Leg{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(tsFormat, record[colTS])
	if err != nil {
		return model.Transaction{}, model.Leg{}, fmt.Errorf("parsing ts %q: %w", record[colTS], err)
	}

	tx := model.Transaction{
		ID:     record[colTxID],
		TS:     ts,
		Source: record[colSource],
		Payee:  record[colPayee],
		Memo:   record[colMemo],
		Status: record[colStatus],
		Type:   model.TxType(record[colTxType]),
		State:  model.BalanceState(record[colState]),
	}

	if record[colPostedTS] != "" {
		posted, err := time.Parse(tsFormat, record[colPostedTS])
		if err != nil {
			return model.Transaction{}, model.Leg{}, fmt.Errorf("parsing posted_ts %q: %w", record[colPostedTS], err)
		}
		tx.PostedTS = &posted
	}

	if record[colReconciled] != "" {
		tx.Reconciled, err = strconv.ParseBool(record[colReconciled])
		if err != nil {
			return model.Transaction{}, model.Leg{}, fmt.Errorf("parsing reconciled %q: %w", record[colReconciled], err)
		}
	}

	tx.ExternalRefs, err = parseRefs(record[colRefs])
	if err != nil {
		return model.Transaction{}, model.Leg{}, err
	}

	leg, err := unmarshalLeg(record)
	if err != nil {
		return model.Transaction{}, model.Leg{}, err
	}
	return tx, leg, nil
}

func unmarshalLeg(record []string) (model.Leg, error) {
	leg := model.Leg{
		AccountID:  record[colAcctID],
		Direction:  model.Direction(record[colDirection]),
		CategoryID: record[colCategory],
		Notes:      record[colNotes],
	}

	var err error
	switch record[colKind] {
	case kindFiat:
		leg.Amount, err = money.Parse(record[colAmount], record[colUnit])
	case kindCrypto:
		leg.Amount, err = money.ParseCrypto(record[colAmount], record[colUnit])
	default:
		return model.Leg{}, fmt.Errorf("unknown amount kind %q", record[colKind])
	}
	if err != nil {
		return model.Leg{}, fmt.Errorf("parsing amount %q %s: %w", record[colAmount], record[colUnit], err)
	}

	if record[colFxTo] != "" {
		rate, err := decimal.NewFromString(record[colFxRate])
		if err != nil {
			return model.Leg{}, fmt.Errorf("parsing fx_rate %q: %w", record[colFxRate], err)
		}
		at, err := time.Parse(tsFormat, record[colFxAt])
		if err != nil {
			return model.Leg{}, fmt.Errorf("parsing fx_at %q: %w", record[colFxAt], err)
		}
		leg.FX = &model.FxConversion{
			From:   record[colFxFrom],
			To:     record[colFxTo],
			Rate:   rate,
			Source: record[colFxSource],
			At:     at,
		}
	}

	if record[colFeeOf] != "" {
		idx, err := strconv.Atoi(record[colFeeOf])
		if err != nil {
			return model.Leg{}, fmt.Errorf("parsing fee_of %q: %w", record[colFeeOf], err)
		}
		leg.FeeOf = &idx
	}
	return leg, nil
}

// formatRefs encodes ordered refs as "k=v;k=v" with both sides escaped.
func formatRefs(refs []model.Ref) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = url.QueryEscape(r.Key) + "=" + url.QueryEscape(r.Value)
	}
	return strings.Join(parts, ";")
}

func parseRefs(s string) ([]model.Ref, error) {
	if s == "" {
		return nil, nil
	}
	var refs []model.Ref
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("parsing external ref %q: missing '='", part)
		}
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("parsing external ref key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("parsing external ref value %q: %w", v, err)
		}
		refs = append(refs, model.Ref{Key: key, Value: value})
	}
	return refs, nil
}
