// Package auditlog records what the ledger did to which transaction, one CSV
// row per action, in logs/audit-log.csv.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Action names a ledger mutation.
type Action string

const (
	ActionBalance    Action = "balance"
	ActionReclassify Action = "reclassify"
	ActionImport     Action = "import"
	ActionDelete     Action = "delete"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	Actor     string
	Action    Action
	TxID      string
	Outcome   string
	Details   string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,actor,action,tx_id,outcome,details"

const (
	numFields    = 6
	logDir       = "logs"
	logFile      = "logs/audit-log.csv"
	colTimestamp = 0
	colActor     = 1
	colAction    = 2
	colTxID      = 3
	colOutcome   = 4
	colDetails   = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = e.Actor
	row[colAction] = string(e.Action)
	row[colTxID] = e.TxID
	row[colOutcome] = e.Outcome
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		Actor:     record[colActor],
		Action:    Action(record[colAction]),
		TxID:      record[colTxID],
		Outcome:   record[colOutcome],
		Details:   record[colDetails],
	}, nil
}

// Path returns the audit log location under repoRoot.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, logFile)
}

// Append writes entries to <repoRoot>/logs/audit-log.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(repoRoot)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/audit-log.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(Path(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Recorder receives audit entries from the ledger.
type Recorder interface {
	Record(e Entry) error
}

// FileRecorder appends to the audit log of one repository. It is safe for
// concurrent use.
type FileRecorder struct {
	repoRoot string
	actor    string
	now      func() time.Time
	mu       sync.Mutex
}

// NewFileRecorder returns a recorder that stamps entries with actor and the
// current time when they carry none.
func NewFileRecorder(repoRoot, actor string) *FileRecorder {
	return &FileRecorder{repoRoot: repoRoot, actor: actor, now: time.Now}
}

// Record appends e to the log.
func (r *FileRecorder) Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	if e.Actor == "" {
		e.Actor = r.actor
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return Append(r.repoRoot, []Entry{e})
}

// Discard drops every entry.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Entry) error { return nil }
