package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/renameio"
	"github.com/vmihailenco/msgpack"

	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/id"
	"github.com/cleared-dev/envelope/internal/journal"
	"github.com/cleared-dev/envelope/internal/model"
)

// Snapshot is an immutable view of every transaction in the ledger. Readers
// hold on to one for as long as they like; writers publish a new one.
type Snapshot struct {
	byID map[string]model.Transaction
	ids  []string
}

func newSnapshot(txs []model.Transaction) *Snapshot {
	s := &Snapshot{byID: make(map[string]model.Transaction, len(txs))}
	for _, tx := range txs {
		s.byID[tx.ID] = tx
	}
	s.sortIDs()
	return s
}

func (s *Snapshot) sortIDs() {
	s.ids = make([]string, 0, len(s.byID))
	for txID := range s.byID {
		s.ids = append(s.ids, txID)
	}
	slices.SortFunc(s.ids, compareTxIDs)
}

// compareTxIDs orders ids by cycle then sequence number, falling back to
// plain string order for ids that do not parse.
func compareTxIDs(a, b string) int {
	la, sa, errA := id.ParseTxID(a)
	lb, sb, errB := id.ParseTxID(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	if c := strings.Compare(la, lb); c != 0 {
		return c
	}
	return sa - sb
}

// with returns a copy of s with puts stored and dels removed.
func (s *Snapshot) with(puts []model.Transaction, dels []string) *Snapshot {
	next := &Snapshot{byID: make(map[string]model.Transaction, len(s.byID)+len(puts))}
	for k, v := range s.byID {
		next.byID[k] = v
	}
	for _, txID := range dels {
		delete(next.byID, txID)
	}
	for _, tx := range puts {
		next.byID[tx.ID] = tx.Clone()
	}
	next.sortIDs()
	return next
}

// Len returns the number of transactions.
func (s *Snapshot) Len() int { return len(s.ids) }

// IDs returns all transaction ids in ledger order.
func (s *Snapshot) IDs() []string { return slices.Clone(s.ids) }

// Get returns a copy of one transaction.
func (s *Snapshot) Get(txID string) (model.Transaction, bool) {
	tx, ok := s.byID[txID]
	if !ok {
		return model.Transaction{}, false
	}
	return tx.Clone(), true
}

// All returns copies of every transaction in ledger order.
func (s *Snapshot) All() []model.Transaction {
	out := make([]model.Transaction, len(s.ids))
	for i, txID := range s.ids {
		out[i] = s.byID[txID].Clone()
	}
	return out
}

// Cycle returns the transactions filed under a cycle label.
func (s *Snapshot) Cycle(label string) []model.Transaction {
	var out []model.Transaction
	for _, txID := range s.ids {
		tx := s.byID[txID]
		if fileLabel(tx) == label {
			out = append(out, tx.Clone())
		}
	}
	return out
}

// fileLabel is the cycle whose journal holds tx.
func fileLabel(tx model.Transaction) string {
	return cycle.Containing(tx.TS).Label
}

const (
	cacheDir     = ".ledger-cache"
	cacheFile    = "snapshot.msgpack"
	cacheVersion = 2
)

// cacheDoc is the on-disk snapshot. Transactions are stored as journal rows
// so the cache and the journal share one codec.
type cacheDoc struct {
	Version      int        `msgpack:"version"`
	JournalStamp string     `msgpack:"journal_stamp"`
	Rows         [][]string `msgpack:"rows"`
}

// CachePath returns the snapshot cache location under repoRoot.
func CachePath(repoRoot string) string {
	return filepath.Join(repoRoot, cacheDir, cacheFile)
}

var errStaleCache = errors.New("snapshot cache is stale")

// readCache returns the cached transactions when the journal files still
// match the fingerprint recorded with the cache.
func readCache(repoRoot string, j *journal.Service) ([]model.Transaction, error) {
	data, err := os.ReadFile(CachePath(repoRoot))
	if err != nil {
		return nil, err
	}
	var doc cacheDoc
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot cache: %w", err)
	}
	if doc.Version != cacheVersion {
		return nil, fmt.Errorf("%w: version %d", errStaleCache, doc.Version)
	}
	stamp, err := j.Fingerprint()
	if err != nil {
		return nil, err
	}
	if stamp != doc.JournalStamp {
		return nil, errStaleCache
	}
	txs, err := journal.DecodeRows(doc.Rows)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot cache: %w", err)
	}
	return txs, nil
}

func writeCache(repoRoot string, j *journal.Service, s *Snapshot) error {
	stamp, err := j.Fingerprint()
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(&cacheDoc{
		Version:      cacheVersion,
		JournalStamp: stamp,
		Rows:         journal.EncodeRows(s.All()),
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot cache: %w", err)
	}
	path := CachePath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot cache: %w", err)
	}
	return nil
}
