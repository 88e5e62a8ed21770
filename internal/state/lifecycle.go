package state

import (
	"time"

	"sorpes/internal/core"
)

// CreateMonth adds an empty month and makes it active.
func (s *State) CreateMonth(key core.MonthKey) error {
	if err := s.checkNewKey(key); err != nil {
		return err
	}
	s.UpsertMonth(key, core.EmptyMonthData())
	return s.SetActiveMonth(key)
}

// CreateMonthFrom adds a month seeded from another one and makes it active.
//
// Fixed and variable expenses are copied with Paid reset. Blocks keep title
// and limit, get a fresh id and start without items. Income and future
// income are not carried over.
func (s *State) CreateMonthFrom(key, from core.MonthKey) error {
	if err := s.checkNewKey(key); err != nil {
		return err
	}
	src, ok := s.Months[from]
	if !ok {
		return core.ErrMonthNotFound
	}
	s.UpsertMonth(key, copyForward(src))
	return s.SetActiveMonth(key)
}

func copyForward(src *core.MonthData) *core.MonthData {
	md := core.EmptyMonthData()
	for _, e := range src.FixedExpenses {
		e.Paid = false
		md.FixedExpenses = append(md.FixedExpenses, e)
	}
	for _, e := range src.VariableExpenses {
		e.Paid = false
		md.VariableExpenses = append(md.VariableExpenses, e)
	}
	for _, b := range src.MonthlyBlocks {
		md.MonthlyBlocks = append(md.MonthlyBlocks, core.MonthlyBlock{
			ID:    newID(),
			Title: b.Title,
			Limit: b.Limit,
			Items: []core.BlockItem{},
		})
	}
	return md
}

func (s *State) checkNewKey(key core.MonthKey) error {
	if !key.Valid() {
		return core.ErrInvalidMonthKey
	}
	if _, exists := s.Months[key]; exists {
		return core.ErrDuplicateMonth
	}
	return nil
}

// CopySource returns the month immediately before key when it exists, so
// the caller can offer to copy it forward.
func (s *State) CopySource(key core.MonthKey) (core.MonthKey, bool) {
	prev, ok := key.Previous()
	if !ok {
		return "", false
	}
	if _, exists := s.Months[prev]; !exists {
		return "", false
	}
	return prev, true
}

// SuggestNextMonth proposes the month after the most recent one, or the
// month after now when the state is empty.
func (s *State) SuggestNextMonth(now time.Time) core.MonthKey {
	if latest, ok := s.Latest(); ok {
		if next, ok := latest.Next(); ok {
			return next
		}
	}
	next, _ := core.MonthKeyOf(now).Next()
	return next
}

// SwitchTo activates key. changed is false when key was already active.
func (s *State) SwitchTo(key core.MonthKey) (changed bool, err error) {
	if key == s.ActiveMonth {
		if _, ok := s.Months[key]; ok {
			return false, nil
		}
	}
	if err := s.SetActiveMonth(key); err != nil {
		return false, err
	}
	return true, nil
}

// NeedsDeleteConfirmation reports whether deleting key discards data.
func (s *State) NeedsDeleteConfirmation(key core.MonthKey) bool {
	return s.Months[key].HasData()
}

// DeleteMonth removes key unconditionally. When the active month is
// removed the most recent remaining month becomes active; when nothing is
// left an empty seed month is created.
func (s *State) DeleteMonth(key core.MonthKey, seed core.MonthKey) error {
	if _, ok := s.Months[key]; !ok {
		return core.ErrMonthNotFound
	}
	delete(s.Months, key)

	if len(s.Months) == 0 {
		s.ActiveMonth = ""
		s.EnsureSeeded(seed)
		return nil
	}
	if s.ActiveMonth == key {
		latest, _ := s.Latest()
		return s.SetActiveMonth(latest)
	}
	return nil
}

// Reset drops every month and starts over from an empty seed month.
// Owners are kept.
func (s *State) Reset(seed core.MonthKey) {
	s.Months = map[core.MonthKey]*core.MonthData{}
	s.ActiveMonth = ""
	s.EnsureSeeded(seed)
}
