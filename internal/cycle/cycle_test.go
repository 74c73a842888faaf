package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestBounds(t *testing.T) {
	tests := []struct {
		label string
		start time.Time
		end   time.Time
	}{
		{"2025-03", utc(2025, 3, 10, 0, 0, 0), utc(2025, 4, 9, 23, 59, 59)},
		{"2025-12", utc(2025, 12, 10, 0, 0, 0), utc(2026, 1, 9, 23, 59, 59)},
		{"2024-01", utc(2024, 1, 10, 0, 0, 0), utc(2024, 2, 9, 23, 59, 59)},
		{"2024-02", utc(2024, 2, 10, 0, 0, 0), utc(2024, 3, 9, 23, 59, 59)},
	}
	for _, tt := range tests {
		c, err := Bounds(tt.label)
		require.NoError(t, err, tt.label)
		assert.Equal(t, tt.label, c.Label)
		assert.True(t, tt.start.Equal(c.Start), "%s start = %s", tt.label, c.Start)
		assert.True(t, tt.end.Equal(c.End), "%s end = %s", tt.label, c.End)
		assert.Equal(t, time.UTC, c.Start.Location())
	}
}

func TestBounds_InvalidLabel(t *testing.T) {
	for _, label := range []string{"", "2025-3", "2025-13", "2025-00", "25-03", "2025/03", "2025-03-01", "abcd-ef"} {
		_, err := Bounds(label)
		assert.ErrorIs(t, err, ErrInvalidLabel, "label %q", label)
	}
}

func TestContaining(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{utc(2025, 3, 10, 0, 0, 0), "2025-03"},
		{utc(2025, 4, 9, 23, 59, 59), "2025-03"},
		{utc(2025, 4, 10, 0, 0, 0), "2025-04"},
		{utc(2025, 1, 5, 12, 0, 0), "2024-12"},
		{time.Date(2025, 3, 10, 1, 0, 0, 0, time.FixedZone("HKT", 8*3600)), "2025-02"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Containing(tt.at).Label, "at %s", tt.at)
	}
}

func TestContains_InclusiveToTheSecond(t *testing.T) {
	c := MustBounds("2025-03")
	assert.True(t, c.Contains(c.Start))
	assert.True(t, c.Contains(c.End))
	assert.True(t, c.Contains(c.End.Add(500*time.Millisecond)))
	assert.False(t, c.Contains(c.End.Add(time.Second)))
	assert.False(t, c.Contains(c.Start.Add(-time.Second)))
}

func TestNextPrev(t *testing.T) {
	c := MustBounds("2025-12")
	assert.Equal(t, "2026-01", c.Next().Label)
	assert.Equal(t, "2025-11", c.Prev().Label)
	assert.Equal(t, "2025-12", c.Next().Prev().Label)
	assert.True(t, c.Next().Start.Equal(c.End.Add(time.Second)))
}

func TestRange(t *testing.T) {
	cs, err := Range("2024-11", "2025-02")
	require.NoError(t, err)
	labels := make([]string, len(cs))
	for i, c := range cs {
		labels[i] = c.Label
	}
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"}, labels)

	_, err = Range("2025-02", "2024-11")
	assert.ErrorIs(t, err, ErrInvalidLabel)
}
