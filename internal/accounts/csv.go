package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

const (
	numFields     = 7
	colID         = 0
	colName       = 1
	colCurrency   = 2
	colType       = 3
	colGroup      = 4
	colGroupOrder = 5
	colDetails    = 6
)

var header = []string{"account_id", "name", "currency", "type", "group_id", "group_order", "details"}

// ReadAccounts reads accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		row, err := MarshalAccount(acct)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row. Details are encoded as
// escaped key=value pairs joined by ';'.
func MarshalAccount(acct model.Account) ([]string, error) {
	row := make([]string, numFields)
	row[colID] = acct.ID
	row[colName] = acct.Name
	row[colCurrency] = acct.Currency
	row[colType] = string(acct.Type)
	row[colGroup] = acct.GroupID
	if acct.GroupOrder != nil {
		row[colGroupOrder] = strconv.Itoa(*acct.GroupOrder)
	}
	details, err := detailFields(acct.Details)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", acct.ID, err)
	}
	row[colDetails] = encodeFields(details)
	return row, nil
}

// UnmarshalAccount converts a CSV row to an Account and validates it.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	acct := model.Account{
		ID:       record[colID],
		Name:     record[colName],
		Currency: strings.ToUpper(record[colCurrency]),
		Type:     model.AccountType(record[colType]),
		GroupID:  record[colGroup],
	}

	if record[colGroupOrder] != "" {
		order, err := strconv.Atoi(record[colGroupOrder])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing group_order %q: %w", record[colGroupOrder], err)
		}
		acct.GroupOrder = &order
	}

	fields, err := decodeFields(record[colDetails])
	if err != nil {
		return model.Account{}, err
	}
	acct.Details, err = detailsFor(acct.Type, fields)
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", acct.ID, err)
	}

	if err := model.ValidateAccount(acct); err != nil {
		return model.Account{}, err
	}
	return acct, nil
}

func detailFields(d model.AccountDetails) (map[string]string, error) {
	f := make(map[string]string)
	put := func(k, v string) {
		if v != "" {
			f[k] = v
		}
	}
	switch d := d.(type) {
	case model.BankDetails:
		put("institution", d.Institution)
		put("last4", d.Last4)
	case model.CreditDetails:
		put("issuer", d.Issuer)
		put("last4", d.Last4)
		if d.Limit != nil {
			put("limit", d.Limit.Amount().String())
			put("limit_currency", d.Limit.Currency())
		}
	case model.CryptoWalletDetails:
		put("network", d.Network)
		put("address", d.Address)
	case model.CexDetails:
		put("exchange", d.Exchange)
		put("sub_account", d.SubAccount)
	case model.TrustDetails:
		put("trustee", d.Trustee)
	case nil:
	default:
		return nil, fmt.Errorf("unsupported details %T", d)
	}
	return f, nil
}

func detailsFor(t model.AccountType, f map[string]string) (model.AccountDetails, error) {
	switch t {
	case model.AccountTypeChecking, model.AccountTypeSavings:
		return model.BankDetails{Institution: f["institution"], Last4: f["last4"]}, nil
	case model.AccountTypeCredit:
		d := model.CreditDetails{Issuer: f["issuer"], Last4: f["last4"]}
		if f["limit"] != "" {
			limit, err := money.Parse(f["limit"], f["limit_currency"])
			if err != nil {
				return nil, fmt.Errorf("parsing credit limit: %w", err)
			}
			d.Limit = &limit
		}
		return d, nil
	case model.AccountTypeCryptoWallet:
		return model.CryptoWalletDetails{Network: f["network"], Address: f["address"]}, nil
	case model.AccountTypeCex:
		return model.CexDetails{Exchange: f["exchange"], SubAccount: f["sub_account"]}, nil
	case model.AccountTypeTrust:
		return model.TrustDetails{Trustee: f["trustee"]}, nil
	default:
		return nil, fmt.Errorf("%w: unknown account type %q", model.ErrInvalidAccountMetadata, t)
	}
}

func encodeFields(f map[string]string) string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + url.QueryEscape(f[k])
	}
	return strings.Join(parts, ";")
}

func decodeFields(s string) (map[string]string, error) {
	f := make(map[string]string)
	if s == "" {
		return f, nil
	}
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("parsing details %q: missing '='", part)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("parsing details %q: %w", part, err)
		}
		f[k] = value
	}
	return f, nil
}
