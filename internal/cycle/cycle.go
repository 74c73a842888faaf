// Package cycle maps "YYYY-MM" labels to accounting periods. A cycle runs
// from the 10th of its month at 00:00:00 UTC through the 9th of the next
// month at 23:59:59 UTC, inclusive to the second.
package cycle

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// StartDay is the day of month a cycle begins on.
const StartDay = 10

// ErrInvalidLabel is returned for a label that is not "YYYY-MM" with a month in 1..12.
var ErrInvalidLabel = errors.New("invalid cycle label")

var labelPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// Cycle is one accounting period.
type Cycle struct {
	Label string
	Start time.Time
	End   time.Time
}

// Parse splits a label into year and month.
func Parse(label string) (year int, month time.Month, err error) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q does not match YYYY-MM", ErrInvalidLabel, label)
	}
	year, _ = strconv.Atoi(m[1])
	mon, _ := strconv.Atoi(m[2])
	if mon < 1 || mon > 12 {
		return 0, 0, fmt.Errorf("%w: %q has month %d", ErrInvalidLabel, label, mon)
	}
	return year, time.Month(mon), nil
}

// Bounds returns the cycle named by label.
func Bounds(label string) (Cycle, error) {
	year, month, err := Parse(label)
	if err != nil {
		return Cycle{}, err
	}
	return of(year, month), nil
}

// MustBounds is Bounds for literals; it panics on error.
func MustBounds(label string) Cycle {
	c, err := Bounds(label)
	if err != nil {
		panic(err)
	}
	return c
}

func of(year int, month time.Month) Cycle {
	start := time.Date(year, month, StartDay, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes month 13 into January of the next year.
	end := time.Date(year, month+1, StartDay-1, 23, 59, 59, 0, time.UTC)
	return Cycle{Label: Label(year, month), Start: start, End: end}
}

// Label formats year and month as "YYYY-MM".
func Label(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// Containing returns the cycle holding t, evaluated in UTC at second resolution.
func Containing(t time.Time) Cycle {
	u := t.UTC()
	year, month := u.Year(), u.Month()
	if u.Day() < StartDay {
		month--
		if month == 0 {
			month = time.December
			year--
		}
	}
	return of(year, month)
}

// Contains reports whether t falls inside the cycle. Sub-second parts are
// dropped so that 23:59:59.5 on the last day still belongs to the cycle.
func (c Cycle) Contains(t time.Time) bool {
	s := t.Truncate(time.Second)
	return !s.Before(c.Start) && !s.After(c.End)
}

// Next returns the following cycle.
func (c Cycle) Next() Cycle {
	return Containing(c.End.Add(time.Second))
}

// Prev returns the preceding cycle.
func (c Cycle) Prev() Cycle {
	return Containing(c.Start.Add(-time.Second))
}

func (c Cycle) String() string {
	return fmt.Sprintf("%s [%s .. %s]", c.Label, c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
}

// Range returns every cycle from the label from through to, inclusive.
func Range(from, to string) ([]Cycle, error) {
	first, err := Bounds(from)
	if err != nil {
		return nil, err
	}
	last, err := Bounds(to)
	if err != nil {
		return nil, err
	}
	if last.Start.Before(first.Start) {
		return nil, fmt.Errorf("%w: range %s..%s is reversed", ErrInvalidLabel, from, to)
	}
	var out []Cycle
	for c := first; !c.Start.After(last.Start); c = c.Next() {
		out = append(out, c)
	}
	return out, nil
}
