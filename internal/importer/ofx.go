package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/envelope/internal/model"
)

// RefFITID carries the institution's transaction ID from an OFX statement.
const RefFITID = "fitid"

// OFXParser parses OFX/QFX bank and credit card statements.
type OFXParser struct{}

// Format returns the parser name.
func (p *OFXParser) Format() string { return "ofx" }

// Parse reads an OFX response and returns one candidate per statement
// transaction. Bank and credit card statements are both accepted.
func (p *OFXParser) Parse(r io.Reader, target Target) ([]model.Transaction, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing OFX: %w", err)
	}

	if len(resp.Bank) == 0 && len(resp.CreditCard) == 0 {
		return nil, errors.New("OFX response has no bank or credit card statements")
	}

	var txns []model.Transaction
	for _, msg := range append(resp.Bank, resp.CreditCard...) {
		var (
			list   *ofxgo.TransactionList
			curDef ofxgo.CurrSymbol
		)
		switch m := msg.(type) {
		case *ofxgo.StatementResponse:
			list, curDef = m.BankTranList, m.CurDef
		case *ofxgo.CCStatementResponse:
			list, curDef = m.BankTranList, m.CurDef
		default:
			return nil, fmt.Errorf("unexpected OFX message %T", msg)
		}
		if ok, _ := curDef.Valid(); ok && !strings.EqualFold(curDef.String(), target.Currency) {
			return nil, fmt.Errorf("statement currency %s does not match account %s (%s)", curDef, target.AccountID, target.Currency)
		}
		if list == nil {
			continue
		}

		for _, st := range list.Transactions {
			txn, err := ofxTransaction(st, target)
			if err != nil {
				return nil, fmt.Errorf("FITID %s: %w", st.FiTID, err)
			}
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func ofxTransaction(st ofxgo.Transaction, target Target) (model.Transaction, error) {
	amount, err := decimal.NewFromString(st.TrnAmt.String())
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", st.TrnAmt.String(), err)
	}

	posted := st.DtPosted.Time
	ts := posted
	if st.DtUser != nil {
		ts = st.DtUser.Time
	}

	payee := strings.TrimSpace(string(st.Name))
	if payee == "" {
		payee = strings.TrimSpace(string(st.Memo))
	}

	txn, err := bankTransaction(target, ts, &posted, payee, amount, st.TrnType == ofxgo.TrnTypeXfer)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.Memo = strings.TrimSpace(string(st.Memo))
	txn.SetRef(RefImport, "ofx_"+target.AccountID+"_"+string(st.FiTID))
	txn.SetRef(RefFITID, string(st.FiTID))
	txn.SetRef("ofx_type", st.TrnType.String())
	return txn, nil
}
