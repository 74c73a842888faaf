package journal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio"

	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/model"
)

// Dir is the journal directory under the repository root.
const Dir = "journal"

// Service reads and writes the per-cycle journal files.
type Service struct {
	repoRoot string
	accounts AccountChecker
}

// NewService creates a journal Service.
func NewService(repoRoot string, accounts AccountChecker) *Service {
	return &Service{repoRoot: repoRoot, accounts: accounts}
}

// Append validates txs together with their cycle's existing transactions
// and appends them to that cycle's journal.csv. The cycle is the one
// containing txs[0].TS; every tx must belong to it.
func (s *Service) Append(txs ...model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	label := cycle.Containing(txs[0].TS).Label

	existing, err := s.ReadCycle(label)
	if err != nil {
		return err
	}
	if err := s.validate(append(existing, txs...), label); err != nil {
		return err
	}

	// Append to journal file (create dir + header if new).
	journalPath := s.CyclePath(label)
	if err := os.MkdirAll(filepath.Dir(journalPath), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(journalPath); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(journalPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	if err := AppendTransactions(f, txs); err != nil {
		return fmt.Errorf("appending to %s: %w", label, err)
	}
	return f.Close()
}

// WriteCycle validates and atomically replaces a cycle's journal.csv. An
// empty txs removes the file.
func (s *Service) WriteCycle(label string, txs []model.Transaction) error {
	path := s.CyclePath(label)
	if len(txs) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing journal %s: %w", path, err)
		}
		return nil
	}
	if err := s.validate(txs, label); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteTransactions(&buf, txs); err != nil {
		return fmt.Errorf("encoding journal %s: %w", label, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating journal dir: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing journal %s: %w", path, err)
	}
	return nil
}

func (s *Service) validate(txs []model.Transaction, label string) error {
	verrs := ValidateCycle(txs, s.accounts, label)
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, ve := range verrs {
		errs[i] = ve
	}
	return fmt.Errorf("validation failed: %w", errors.Join(errs...))
}

// ReadCycle reads all transactions filed under a cycle label.
func (s *Service) ReadCycle(label string) ([]model.Transaction, error) {
	path := s.CyclePath(label)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	defer f.Close()

	txs, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal %s: %w", path, err)
	}
	return txs, nil
}

// Cycles lists the labels that have a journal file, oldest first.
func (s *Service) Cycles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.repoRoot, Dir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing journal: %w", err)
	}
	var labels []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := cycle.Bounds(e.Name()); err != nil {
			continue
		}
		if _, err := os.Stat(s.CyclePath(e.Name())); err == nil {
			labels = append(labels, e.Name())
		}
	}
	sort.Strings(labels)
	return labels, nil
}

// Fingerprint identifies the current state of the journal files. It
// covers every cycle file's label, size and modification time, so adding,
// removing or rewriting any file changes it, including older cycles and
// files whose mtime moved backwards.
func (s *Service) Fingerprint() (string, error) {
	labels, err := s.Cycles()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, label := range labels {
		info, err := os.Stat(s.CyclePath(label))
		if err != nil {
			return "", fmt.Errorf("stat journal %s: %w", label, err)
		}
		fmt.Fprintf(h, "%s %d %d\n", label, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CyclePath returns the journal.csv path for a cycle label.
func (s *Service) CyclePath(label string) string {
	return filepath.Join(s.repoRoot, Dir, label, "journal.csv")
}
