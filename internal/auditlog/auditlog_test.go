package auditlog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Actor:     "cli",
		Action:    ActionBalance,
		TxID:      "2025-01-001",
		Outcome:   "offset",
		Details:   "offset 4.00 USD to env.software",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	err := Append(dir, []Entry{testEntry()})
	require.NoError(t, err)

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, ActionBalance, entries[0].Action)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Action = ActionImport
	e2.Details = "imported 12 rows from chase.csv"
	require.NoError(t, Append(dir, []Entry{e2}))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, ActionBalance, entries[0].Action)
	assert.Equal(t, ActionImport, entries[1].Action)
}

func TestAppend_Nothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, nil))
	_, err := os.Stat(Path(dir))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	original.Details = "has, a comma and \"quotes\""
	require.NoError(t, Append(dir, []Entry{original}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, original, entries[0])
}

func TestRead_NotFound(t *testing.T) {
	dir := t.TempDir()
	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(Path(dir), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_BadTimestamp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	data := Header + "\nyesterday,cli,balance,2025-01-001,offset,\n"
	require.NoError(t, os.WriteFile(Path(dir), []byte(data), 0o644))

	_, err := Read(dir)
	assert.ErrorContains(t, err, "row 2")
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 6 fields")
}

func TestTimestampFormat(t *testing.T) {
	e := testEntry()
	e.Timestamp = testTime.In(time.FixedZone("HKT", 8*3600))
	row := MarshalEntry(e)
	assert.Equal(t, "2025-01-15T10:30:00Z", row[0])
}

func TestFileRecorder_FillsDefaults(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir, "ledger")
	r.now = func() time.Time { return testTime }

	require.NoError(t, r.Record(Entry{Action: ActionReclassify, TxID: "2025-01-002"}))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger", entries[0].Actor)
	assert.True(t, testTime.Equal(entries[0].Timestamp))
}

func TestFileRecorder_Concurrent(t *testing.T) {
	dir := t.TempDir()
	r := NewFileRecorder(dir, "ledger")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Record(testEntry()))
		}()
	}
	wg.Wait()

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Record(testEntry()))
}
