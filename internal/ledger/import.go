package ledger

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/envelope/internal/auditlog"
	"github.com/cleared-dev/envelope/internal/importer"
	"github.com/cleared-dev/envelope/internal/model"
)

// ImportResult summarises one import.
type ImportResult struct {
	Parsed     int
	Duplicates int
	Added      []model.Transaction
}

// Import parses a feed export for target and adds every row that is not
// already in the ledger.
func (s *Service) Import(p importer.Parser, r io.Reader, target importer.Target) (ImportResult, error) {
	acct, ok := s.accounts.Get(target.AccountID)
	if !ok {
		return ImportResult{}, fmt.Errorf("import target account %s: %w", target.AccountID, ErrNotFound)
	}
	if target.Currency == "" {
		target.Currency = acct.Currency
	}

	candidates, err := p.Parse(r, target)
	if err != nil {
		return ImportResult{}, fmt.Errorf("parsing %s feed %s: %w", p.Format(), target.Feed, err)
	}
	added, dups, err := s.addAll(candidates, true)
	if err != nil {
		return ImportResult{}, err
	}

	for _, tx := range added {
		ref, _ := tx.Ref(importer.RefImport)
		s.record(auditlog.Entry{Action: auditlog.ActionImport, TxID: tx.ID, Outcome: string(tx.State), Details: ref})
	}
	s.log.WithFields(logrus.Fields{
		"feed":       target.Feed,
		"account":    target.AccountID,
		"parsed":     len(candidates),
		"added":      len(added),
		"duplicates": dups,
	}).Info("imported feed")
	return ImportResult{Parsed: len(candidates), Duplicates: dups, Added: added}, nil
}
