package session

import (
	"errors"

	"availability-bot/internal/models"
)

var ErrRestrictedDate = errors.New("date is restricted")

type ToggleResult int

const (
	Unchanged ToggleResult = iota
	Added
	Removed
)

func (r ToggleResult) String() string {
	switch r {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Snapshot is an immutable copy of a session handed to storage.
type Snapshot struct {
	Identity models.Identity
	Dates    []models.DateKey
}

// Has reports whether k is part of the snapshot.
func (s Snapshot) Has(k models.DateKey) bool {
	for _, d := range s.Dates {
		if d == k {
			return true
		}
	}
	return false
}

// Session holds one user's poll interaction. It has a single writer: the
// caller must serialize access per identity.
type Session struct {
	Identity models.Identity
	Phase    models.Phase

	// Chat message carrying this session's keyboard; zero until sent.
	ChatID    int64
	MessageID int

	poll     models.PollConfig
	selected map[models.DateKey]struct{}
}

func New(identity models.Identity, poll models.PollConfig) *Session {
	return &Session{
		Identity: identity,
		Phase:    models.PhaseBrowsing,
		poll:     poll,
		selected: make(map[models.DateKey]struct{}),
	}
}

// Toggle flips k in the selection. Restricted dates are never added.
func (s *Session) Toggle(k models.DateKey) (ToggleResult, error) {
	if !s.poll.Contains(k) {
		return Unchanged, nil
	}
	if _, ok := s.selected[k]; ok {
		delete(s.selected, k)
		return Removed, nil
	}
	if s.poll.IsRestricted(k) {
		return Unchanged, ErrRestrictedDate
	}
	s.selected[k] = struct{}{}
	return Added, nil
}

func (s *Session) IsEmpty() bool {
	return len(s.selected) == 0
}

func (s *Session) IsSelected(k models.DateKey) bool {
	_, ok := s.selected[k]
	return ok
}

// Selected returns a copy of the selected set.
func (s *Session) Selected() map[models.DateKey]struct{} {
	out := make(map[models.DateKey]struct{}, len(s.selected))
	for k := range s.selected {
		out[k] = struct{}{}
	}
	return out
}

// SortedDates returns the selection in canonical string order.
func (s *Session) SortedDates() []models.DateKey {
	keys := make([]models.DateKey, 0, len(s.selected))
	for k := range s.selected {
		keys = append(keys, k)
	}
	models.SortDateKeys(keys)
	return keys
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{Identity: s.Identity, Dates: s.SortedDates()}
}
