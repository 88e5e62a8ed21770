// Package memory is an in-process summary sheet used by tests and local
// runs without Google credentials.
package memory

import (
	"context"
	"sync"

	"sorpes/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	rows   []sheets.MonthSummary
	writes int
}

var (
	_ sheets.SummaryWriter = (*Store)(nil)
	_ sheets.SummaryReader = (*Store)(nil)
)

func New() *Store { return &Store{} }

func (s *Store) WriteMonthSummaries(_ context.Context, rows []sheets.MonthSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]sheets.MonthSummary(nil), rows...)
	s.writes++
	return nil
}

func (s *Store) ReadMonthSummaries(_ context.Context) ([]sheets.MonthSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.MonthSummary(nil), s.rows...), nil
}

// Writes counts calls to WriteMonthSummaries.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
