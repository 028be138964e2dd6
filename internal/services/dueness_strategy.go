// Package services holds the recurring, expense and report use cases.
package services

import (
	"fmt"
	"sync"
	"time"

	"bilancio/internal/core"
)

// DuenessChecker decides whether a recurring expense must be materialized at
// now, given the time of its previous materialization (zero if never).
type DuenessChecker interface {
	IsDue(lastExecution, now time.Time, startDate core.Date) bool
}

// DailyChecker materializes once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return core.TruncateDay(lastExecution).Before(core.TruncateDay(now))
}

// WeeklyChecker materializes when a week of calendar days has gone by.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	nextDue := core.TruncateDay(lastExecution).AddDays(7)
	return !core.TruncateDay(now).Before(nextDue)
}

// MonthlyChecker materializes once per month, from the start date's day of
// the month on. Short months clamp the anchor day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, now time.Time, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	last, today := core.TruncateDay(lastExecution), core.TruncateDay(now)
	if last.Year() == today.Year() && last.Month() == today.Month() {
		return false
	}
	return today.Day() >= anchorDay(today, startDate.Day())
}

// YearlyChecker materializes once per year, from the start date's month and
// day on. February 29 falls on the 28th in common years.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, now time.Time, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	today := core.TruncateDay(now)
	if core.TruncateDay(lastExecution).Year() == today.Year() {
		return false
	}
	switch {
	case today.Month() > startDate.Month():
		return true
	case today.Month() < startDate.Month():
		return false
	default:
		return today.Day() >= anchorDay(today, startDate.Day())
	}
}

// anchorDay clamps day to the length of the month containing d.
func anchorDay(d core.Date, day int) int {
	return min(day, core.LastDayOfMonth(d.Year(), d.Month()))
}

var (
	duenessMu         sync.RWMutex
	duenessStrategies = map[core.RepetitionTypes]DuenessChecker{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}
)

// GetDuenessChecker returns the checker registered for a repetition type.
func GetDuenessChecker(frequency core.RepetitionTypes) (DuenessChecker, error) {
	duenessMu.RLock()
	defer duenessMu.RUnlock()
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("no dueness checker for repetition %q: %w", frequency, core.ErrInvalidArgument)
	}
	return checker, nil
}

// RegisterDuenessChecker installs checker for frequency, replacing any existing one.
func RegisterDuenessChecker(frequency core.RepetitionTypes, checker DuenessChecker) {
	duenessMu.Lock()
	defer duenessMu.Unlock()
	duenessStrategies[frequency] = checker
}
