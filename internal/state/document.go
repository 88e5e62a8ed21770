package state

import (
	"sorpes/internal/core"
)

// Document is the persisted and exported form of a State.
type Document struct {
	Months      map[core.MonthKey]*core.MonthData `json:"months"`
	ActiveMonth core.MonthKey                     `json:"activeMonth"`
	ActiveYear  string                            `json:"activeYear"`
	Owners      []core.Owner                      `json:"owners"`
}

// IsEmpty reports whether the document holds no months. Empty documents
// never win a load.
func (d *Document) IsEmpty() bool {
	return d == nil || len(d.Months) == 0
}

// Document returns a deep-copied document of s.
func (s *State) Document() *Document {
	c := s.Clone()
	return &Document{
		Months:      c.Months,
		ActiveMonth: c.ActiveMonth,
		ActiveYear:  c.ActiveYear,
		Owners:      c.Owners,
	}
}

// FromDocument rebuilds a State from a loaded document and repairs it.
// Malformed keys and nil months are dropped, nil lists become empty and
// blocks without an id get one. A dangling active month falls back to the
// most recent key, and the state is seeded when nothing is left.
func FromDocument(d *Document, seed core.MonthKey) *State {
	s := &State{
		Months: map[core.MonthKey]*core.MonthData{},
		Owners: []core.Owner{},
	}
	if d == nil {
		s.EnsureSeeded(seed)
		return s
	}
	for k, md := range d.Months {
		if !k.Valid() || md == nil {
			continue
		}
		md = md.Clone()
		for i := range md.MonthlyBlocks {
			if md.MonthlyBlocks[i].ID == "" {
				md.MonthlyBlocks[i].ID = newID()
			}
		}
		s.UpsertMonth(k, md)
	}
	for _, o := range d.Owners {
		if o.ID != "" {
			s.Owners = append(s.Owners, o)
		}
	}
	s.EnsureSeeded(seed)

	if _, ok := s.Months[d.ActiveMonth]; ok {
		s.ActiveMonth = d.ActiveMonth
	} else if s.ActiveMonth == "" || s.Months[s.ActiveMonth] == nil {
		s.ActiveMonth, _ = s.Latest()
	}
	s.ActiveYear = s.ActiveMonth.Year()
	return s
}
