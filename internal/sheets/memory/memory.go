package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
)

// Store keeps the latest exported report of every month in memory.
type Store struct {
	mu      sync.Mutex
	reports map[string]core.MonthReport
	writes  int
}

func New() *Store {
	return &Store{reports: make(map[string]core.MonthReport)}
}

// WriteMonthReport replaces any previous export of the same month.
func (s *Store) WriteMonthReport(_ context.Context, report core.MonthReport) (string, error) {
	if report.Month < 1 || report.Month > 12 {
		return "", fmt.Errorf("month %d: %w", report.Month, core.ErrInvalidMonth)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.Key()] = report
	s.writes++
	return fmt.Sprintf("mem:%s", report.Key()), nil
}

// Get returns the last report exported for year+month.
func (s *Store) Get(year, month int) (core.MonthReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[core.MonthKey(year, month)]
	return r, ok
}

// Writes counts every export, including overwrites.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
