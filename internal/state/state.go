// Package state holds the month-keyed application state and the commands
// that change it.
//
// A State is not safe for concurrent use; callers serialise access (see
// services.Tracker).
package state

import (
	"slices"

	"sorpes/internal/core"

	"github.com/google/uuid"
)

// State is the whole application state.
type State struct {
	Months      map[core.MonthKey]*core.MonthData
	ActiveMonth core.MonthKey // "" when no month is active
	ActiveYear  string
	Owners      []core.Owner
}

// newID generates block and owner identifiers.
var newID = uuid.NewString

// New returns a state holding one empty month, seed, which is active.
func New(seed core.MonthKey) *State {
	s := &State{
		Months: map[core.MonthKey]*core.MonthData{},
		Owners: []core.Owner{},
	}
	s.EnsureSeeded(seed)
	return s
}

// EnsureSeeded restores the "at least one month" invariant by creating an
// empty seed month when the state has none.
func (s *State) EnsureSeeded(seed core.MonthKey) {
	if s.Months == nil {
		s.Months = map[core.MonthKey]*core.MonthData{}
	}
	if len(s.Months) > 0 {
		return
	}
	s.Months[seed] = core.EmptyMonthData()
	s.ActiveMonth = seed
	s.ActiveYear = seed.Year()
}

// Keys returns every month key, most recent first.
func (s *State) Keys() []core.MonthKey {
	keys := make([]core.MonthKey, 0, len(s.Months))
	for k := range s.Months {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)
	return keys
}

// Latest returns the most recent month key.
func (s *State) Latest() (core.MonthKey, bool) {
	keys := s.Keys()
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

// Years returns the distinct years present, most recent first.
func (s *State) Years() []string {
	var years []string
	for _, k := range s.Keys() {
		y := k.Year()
		if len(years) == 0 || years[len(years)-1] != y {
			years = append(years, y)
		}
	}
	return years
}

// MonthsOfYear returns the keys belonging to year, most recent first.
func (s *State) MonthsOfYear(year string) []core.MonthKey {
	var keys []core.MonthKey
	for _, k := range s.Keys() {
		if k.Year() == year {
			keys = append(keys, k)
		}
	}
	return keys
}

// Month returns the data stored under key.
func (s *State) Month(key core.MonthKey) (*core.MonthData, bool) {
	md, ok := s.Months[key]
	return md, ok
}

// Active returns the active month's data, or nil.
func (s *State) Active() *core.MonthData {
	if s.ActiveMonth == "" {
		return nil
	}
	return s.Months[s.ActiveMonth]
}

// UpsertMonth stores data under key, replacing what was there.
func (s *State) UpsertMonth(key core.MonthKey, md *core.MonthData) {
	md.Normalize()
	s.Months[key] = md
}

// SetActiveMonth makes key active and derives the active year from it.
func (s *State) SetActiveMonth(key core.MonthKey) error {
	if _, ok := s.Months[key]; !ok {
		return core.ErrMonthNotFound
	}
	s.ActiveMonth = key
	s.ActiveYear = key.Year()
	return nil
}

// OwnerName resolves an owner id. Unknown and empty ids resolve to "".
func (s *State) OwnerName(id core.OwnerID) string {
	for _, o := range s.Owners {
		if o.ID == id {
			return o.Name
		}
	}
	return ""
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		Months:      make(map[core.MonthKey]*core.MonthData, len(s.Months)),
		ActiveMonth: s.ActiveMonth,
		ActiveYear:  s.ActiveYear,
		Owners:      append([]core.Owner{}, s.Owners...),
	}
	for k, md := range s.Months {
		c.Months[k] = md.Clone()
	}
	return c
}
