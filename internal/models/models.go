package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateKeyLayout is the canonical DD.MM.YYYY form used for set membership and storage.
const DateKeyLayout = "02.01.2006"

var ErrInvalidDateKey = errors.New("invalid date key")

type Identity struct {
	UserID      int64
	DisplayName string
}

// DateKey identifies a calendar day by its canonical string.
type DateKey string

func NewDateKey(year int, month time.Month, day int) DateKey {
	return DateKey(fmt.Sprintf("%02d.%02d.%d", day, int(month), year))
}

func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(DateKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
	}
	return DateKey(t.Format(DateKeyLayout)), nil
}

func (k DateKey) String() string {
	return string(k)
}

// SortDateKeys sorts keys on the canonical string. This is chronological only
// within a single month.
func SortDateKeys(keys []DateKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

type Phase string

const (
	PhaseBrowsing   Phase = "browsing"
	PhaseConfirming Phase = "confirming"
	PhaseDone       Phase = "done"
	PhaseCancelled  Phase = "cancelled"
)

func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseCancelled
}

type Outcome int

const (
	OutcomeStored Outcome = iota
	OutcomeStoredToFallback
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeStoredToFallback:
		return "stored_to_fallback"
	default:
		return "failed"
	}
}

// Saved reports whether the selection reached the store or the fallback log.
func (o Outcome) Saved() bool {
	return o == OutcomeStored || o == OutcomeStoredToFallback
}

// PollConfig is the active poll month and its restricted days. It is not
// modified after construction.
type PollConfig struct {
	Year       int
	Month      time.Month
	restricted map[DateKey]struct{}
}

// NewPollConfig builds a poll for the given month. Restricted days outside
// the month are rejected.
func NewPollConfig(year int, month time.Month, restrictedDays []int) (PollConfig, error) {
	if month < time.January || month > time.December {
		return PollConfig{}, fmt.Errorf("invalid month %d", int(month))
	}
	if year < 1 {
		return PollConfig{}, fmt.Errorf("invalid year %d", year)
	}

	cfg := PollConfig{
		Year:       year,
		Month:      month,
		restricted: make(map[DateKey]struct{}, len(restrictedDays)),
	}
	days := cfg.Days()
	for _, d := range restrictedDays {
		if d < 1 || d > days {
			return PollConfig{}, fmt.Errorf("restricted day %d outside %s %d", d, month, year)
		}
		cfg.restricted[NewDateKey(year, month, d)] = struct{}{}
	}

	return cfg, nil
}

// Days returns the number of days in the poll month.
func (c PollConfig) Days() int {
	return time.Date(c.Year, c.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (c PollConfig) IsRestricted(k DateKey) bool {
	_, ok := c.restricted[k]
	return ok
}

// Contains reports whether k is a day of the poll month.
func (c PollConfig) Contains(k DateKey) bool {
	t, err := time.Parse(DateKeyLayout, string(k))
	if err != nil {
		return false
	}
	return t.Year() == c.Year && t.Month() == c.Month
}

// DateKeys returns every day of the month in calendar order.
func (c PollConfig) DateKeys() []DateKey {
	n := c.Days()
	keys := make([]DateKey, 0, n)
	for d := 1; d <= n; d++ {
		keys = append(keys, NewDateKey(c.Year, c.Month, d))
	}
	return keys
}

// Restricted returns a copy of the restricted set.
func (c PollConfig) Restricted() map[DateKey]struct{} {
	out := make(map[DateKey]struct{}, len(c.restricted))
	for k := range c.restricted {
		out[k] = struct{}{}
	}
	return out
}

// RestrictedDays returns the restricted day numbers in ascending order.
func (c PollConfig) RestrictedDays() []int {
	var days []int
	for d := 1; d <= c.Days(); d++ {
		if c.IsRestricted(NewDateKey(c.Year, c.Month, d)) {
			days = append(days, d)
		}
	}
	return days
}
