// Package ledger keeps the transaction journal in memory and is the only
// writer of it. Mutations of one transaction are serialised by a per-id
// lock; readers work on immutable snapshots and never block writers.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/envelope/internal/accounts"
	"github.com/cleared-dev/envelope/internal/auditlog"
	"github.com/cleared-dev/envelope/internal/balance"
	"github.com/cleared-dev/envelope/internal/cycle"
	"github.com/cleared-dev/envelope/internal/envelopes"
	"github.com/cleared-dev/envelope/internal/id"
	"github.com/cleared-dev/envelope/internal/importer"
	"github.com/cleared-dev/envelope/internal/journal"
	"github.com/cleared-dev/envelope/internal/model"
)

var (
	// ErrNotFound is returned for an unknown transaction or account id.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when adding a transaction whose id is taken.
	ErrExists = errors.New("already exists")
	// ErrConflict is returned when a transfer merge keeps losing a race
	// with concurrent writers.
	ErrConflict = errors.New("concurrent modification")
)

// Service is the ledger.
type Service struct {
	repoRoot  string
	journal   *journal.Service
	accounts  *accounts.Service
	envelopes *envelopes.Service
	engine    *balance.Engine
	log       logrus.FieldLogger
	audit     auditlog.Recorder
	cache     bool
	history   int

	locks keyedMutex
	// writeMu serialises journal writes and snapshot publication.
	writeMu sync.Mutex
	snap    atomic.Pointer[Snapshot]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithAudit sets where audit entries go. The default drops them.
func WithAudit(r auditlog.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

// WithEngine sets the balance engine.
func WithEngine(e *balance.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithSnapshotCache turns the msgpack snapshot cache on or off.
func WithSnapshotCache(on bool) Option {
	return func(s *Service) { s.cache = on }
}

// WithHistoryCycles sets how many cycles of rollover history envelope
// usage is computed over.
func WithHistoryCycles(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.history = n
		}
	}
}

// Open loads the account and envelope registries and the journal of the
// repository at repoRoot.
func Open(repoRoot string, opts ...Option) (*Service, error) {
	accts, err := accounts.Load(repoRoot)
	if err != nil {
		return nil, err
	}
	envs, err := envelopes.Load(repoRoot)
	if err != nil {
		return nil, err
	}
	return New(repoRoot, accts, envs, opts...)
}

// New builds a Service over the given registries and loads the journal.
func New(repoRoot string, accts *accounts.Service, envs *envelopes.Service, opts ...Option) (*Service, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Service{
		repoRoot:  repoRoot,
		journal:   journal.NewService(repoRoot, accts),
		accounts:  accts,
		envelopes: envs,
		log:       discard,
		audit:     auditlog.Discard,
		history:   12,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = balance.NewEngine(balance.Options{})
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	if s.cache {
		txs, err := readCache(s.repoRoot, s.journal)
		if err == nil {
			s.snap.Store(newSnapshot(txs))
			s.log.WithField("transactions", len(txs)).Debug("loaded snapshot cache")
			return nil
		}
		s.log.WithError(err).Debug("snapshot cache not used")
	}

	labels, err := s.journal.Cycles()
	if err != nil {
		return err
	}
	var all []model.Transaction
	for _, label := range labels {
		txs, err := s.journal.ReadCycle(label)
		if err != nil {
			return err
		}
		if verrs := journal.ValidateCycle(txs, s.accounts, label); len(verrs) > 0 {
			errs := make([]error, len(verrs))
			for i, ve := range verrs {
				errs[i] = ve
			}
			return fmt.Errorf("journal %s: %w", label, errors.Join(errs...))
		}
		for i := range txs {
			if st := balance.Classify(txs[i]); st != txs[i].State {
				s.log.WithFields(logrus.Fields{"tx": txs[i].ID, "stored": txs[i].State, "derived": st}).
					Warn("stored balance state is out of date")
				txs[i].State = st
			}
		}
		all = append(all, txs...)
	}
	snap := newSnapshot(all)
	s.snap.Store(snap)
	s.log.WithFields(logrus.Fields{"transactions": len(all), "cycles": len(labels)}).Debug("loaded journal")
	if s.cache {
		if err := writeCache(s.repoRoot, s.journal, snap); err != nil {
			s.log.WithError(err).Warn("writing snapshot cache")
		}
	}
	return nil
}

// Accounts returns the account registry.
func (s *Service) Accounts() *accounts.Service { return s.accounts }

// Envelopes returns the envelope registry.
func (s *Service) Envelopes() *envelopes.Service { return s.envelopes }

// Snapshot returns the current immutable view.
func (s *Service) Snapshot() *Snapshot { return s.snap.Load() }

// All returns every transaction in ledger order.
func (s *Service) All() []model.Transaction { return s.snap.Load().All() }

// Get returns one transaction.
func (s *Service) Get(txID string) (model.Transaction, error) {
	tx, ok := s.snap.Load().Get(txID)
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", txID, ErrNotFound)
	}
	return tx, nil
}

// Add stores a new transaction. An empty ID is assigned from the cycle
// containing tx.TS. The stored copy, with ID and balance state, is returned.
func (s *Service) Add(tx model.Transaction) (model.Transaction, error) {
	added, _, err := s.addAll([]model.Transaction{tx}, false)
	if err != nil {
		return model.Transaction{}, err
	}
	return added[0], nil
}

// AddAll stores several new transactions in one write.
func (s *Service) AddAll(txs []model.Transaction) ([]model.Transaction, error) {
	added, _, err := s.addAll(txs, false)
	return added, err
}

// addAll assigns ids and commits txs. With dedupe set, candidates whose
// import ref is already in the ledger are dropped and counted instead.
func (s *Service) addAll(txs []model.Transaction, dedupe bool) ([]model.Transaction, int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.snap.Load()
	skipped := 0
	if dedupe {
		fresh := importer.Deduplicate(txs, cur.All())
		skipped = len(txs) - len(fresh)
		txs = fresh
	}
	if len(txs) == 0 {
		return nil, skipped, nil
	}
	added, err := s.prepareAndCommit(cur, txs)
	return added, skipped, err
}

func (s *Service) prepareAndCommit(cur *Snapshot, txs []model.Transaction) ([]model.Transaction, error) {
	ids := cur.IDs()
	next := make(map[string]int)
	added := make([]model.Transaction, 0, len(txs))
	for _, in := range txs {
		tx := in.Clone()
		if tx.ID == "" {
			label := cycle.Containing(tx.TS).Label
			if _, ok := next[label]; !ok {
				next[label] = id.NextSeq(label, ids)
			}
			tx.ID = id.FormatTxID(label, next[label])
			next[label]++
		} else if _, ok := cur.Get(tx.ID); ok || slices.ContainsFunc(added, func(a model.Transaction) bool { return a.ID == tx.ID }) {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, ErrExists)
		}
		tx.State = balance.Classify(tx)
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		added = append(added, tx)
	}
	if err := s.commitNew(added); err != nil {
		return nil, err
	}
	for _, tx := range added {
		s.log.WithFields(logrus.Fields{"tx": tx.ID, "state": tx.State}).Debug("added transaction")
	}
	return added, nil
}

// Update replaces a stored transaction. Its balance state is re-derived.
// When the new timestamp falls in another cycle the transaction is
// renumbered into that cycle; the returned copy carries the new id.
func (s *Service) Update(tx model.Transaction) (model.Transaction, error) {
	unlock := s.locks.Lock(tx.ID)
	defer unlock()

	if _, err := s.Get(tx.ID); err != nil {
		return model.Transaction{}, err
	}
	tx = tx.Clone()
	tx.State = balance.Classify(tx)
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var dels []string
	oldID := tx.ID
	label, _, err := id.ParseTxID(oldID)
	if err != nil {
		return model.Transaction{}, err
	}
	if to := fileLabel(tx); to != label {
		tx.ID = id.FormatTxID(to, id.NextSeq(to, s.snap.Load().IDs()))
		dels = []string{oldID}
	}
	if err := s.commit([]model.Transaction{tx}, dels); err != nil {
		return model.Transaction{}, err
	}
	if dels != nil {
		s.log.WithFields(logrus.Fields{"from": oldID, "to": tx.ID}).Info("moved transaction")
	}
	return tx, nil
}

// Delete removes a transaction.
func (s *Service) Delete(txID string) error {
	unlock := s.locks.Lock(txID)
	defer unlock()

	if _, err := s.Get(txID); err != nil {
		return err
	}
	if err := s.commitLocked(nil, []string{txID}); err != nil {
		return err
	}
	s.record(auditlog.Entry{Action: auditlog.ActionDelete, TxID: txID})
	s.log.WithField("tx", txID).Info("deleted transaction")
	return nil
}

func (s *Service) commitLocked(puts []model.Transaction, dels []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.commit(puts, dels)
}

// commit writes every touched cycle and then publishes the new snapshot.
// Callers hold writeMu. A failed write restores the cycles already written.
func (s *Service) commit(puts []model.Transaction, dels []string) error {
	cur := s.snap.Load()
	next := cur.with(puts, dels)

	touched := make(map[string]bool)
	for _, tx := range puts {
		touched[fileLabel(tx)] = true
		if old, ok := cur.Get(tx.ID); ok {
			touched[fileLabel(old)] = true
		}
	}
	for _, txID := range dels {
		if old, ok := cur.Get(txID); ok {
			touched[fileLabel(old)] = true
		}
	}
	labels := make([]string, 0, len(touched))
	for l := range touched {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	for i, label := range labels {
		if err := s.journal.WriteCycle(label, next.Cycle(label)); err != nil {
			for _, done := range labels[:i] {
				if rerr := s.journal.WriteCycle(done, cur.Cycle(done)); rerr != nil {
					s.log.WithError(rerr).WithField("cycle", done).Error("restoring journal")
				}
			}
			return err
		}
	}

	s.publish(next)
	return nil
}

// commitNew stores newly added transactions. A cycle whose new
// transactions all sort after what it already holds is appended to;
// anything else falls back to rewriting the touched cycles.
func (s *Service) commitNew(added []model.Transaction) error {
	cur := s.snap.Load()
	byLabel := make(map[string][]model.Transaction)
	for _, tx := range added {
		l := fileLabel(tx)
		byLabel[l] = append(byLabel[l], tx)
	}
	labels := make([]string, 0, len(byLabel))
	for l, txs := range byLabel {
		ids := make([]string, len(txs))
		for i, tx := range txs {
			ids[i] = tx.ID
		}
		if !slices.IsSortedFunc(ids, compareTxIDs) {
			return s.commit(added, nil)
		}
		if existing := cur.Cycle(l); len(existing) > 0 && compareTxIDs(ids[0], existing[len(existing)-1].ID) <= 0 {
			return s.commit(added, nil)
		}
		labels = append(labels, l)
	}
	slices.Sort(labels)

	for i, label := range labels {
		if err := s.journal.Append(byLabel[label]...); err != nil {
			// the failed append may have written part of its batch
			for _, done := range labels[:i+1] {
				if rerr := s.journal.WriteCycle(done, cur.Cycle(done)); rerr != nil {
					s.log.WithError(rerr).WithField("cycle", done).Error("restoring journal")
				}
			}
			return err
		}
	}
	s.publish(cur.with(added, nil))
	return nil
}

func (s *Service) publish(next *Snapshot) {
	s.snap.Store(next)
	if s.cache {
		if err := writeCache(s.repoRoot, s.journal, next); err != nil {
			s.log.WithError(err).Warn("writing snapshot cache")
		}
	}
}

func (s *Service) record(e auditlog.Entry) {
	if err := s.audit.Record(e); err != nil {
		s.log.WithError(err).WithField("tx", e.TxID).Warn("writing audit log")
	}
}
