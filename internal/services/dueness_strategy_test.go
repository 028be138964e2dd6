package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

func at(y, m, d, h int) time.Time {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
}

func TestDuenessCheckers(t *testing.T) {
	rentStart := core.NewDate(2024, 1, 31)
	insuranceStart := core.NewDate(2020, 2, 29)

	tests := []struct {
		name    string
		checker DuenessChecker
		start   core.Date
		last    time.Time
		now     time.Time
		want    bool
	}{
		{"daily: never run", DailyChecker{}, rentStart, time.Time{}, at(2025, 3, 1, 9), true},
		{"daily: already run this morning", DailyChecker{}, rentStart, at(2025, 3, 1, 1), at(2025, 3, 1, 23), false},
		{"daily: run late yesterday", DailyChecker{}, rentStart, at(2025, 2, 28, 23), at(2025, 3, 1, 0), true},

		{"weekly: six days later", WeeklyChecker{}, rentStart, at(2025, 3, 1, 22), at(2025, 3, 7, 23), false},
		{"weekly: seven calendar days, earlier hour", WeeklyChecker{}, rentStart, at(2025, 3, 1, 22), at(2025, 3, 8, 6), true},

		{"monthly: same month", MonthlyChecker{}, rentStart, at(2025, 1, 31, 8), at(2025, 1, 31, 20), false},
		{"monthly: 31st clamps to february's last day", MonthlyChecker{}, rentStart, at(2025, 1, 31, 8), at(2025, 2, 28, 8), true},
		{"monthly: before the anchor day", MonthlyChecker{}, rentStart, at(2025, 2, 28, 8), at(2025, 3, 30, 8), false},
		{"monthly: on the anchor day", MonthlyChecker{}, rentStart, at(2025, 2, 28, 8), at(2025, 3, 31, 8), true},
		{"monthly: 31st clamps to april 30th", MonthlyChecker{}, rentStart, at(2025, 3, 31, 8), at(2025, 4, 30, 8), true},

		{"yearly: same year", YearlyChecker{}, insuranceStart, at(2025, 2, 28, 8), at(2025, 12, 31, 8), false},
		{"yearly: earlier month", YearlyChecker{}, insuranceStart, at(2024, 2, 29, 8), at(2025, 1, 31, 8), false},
		{"yearly: leap day falls on the 28th", YearlyChecker{}, insuranceStart, at(2024, 2, 29, 8), at(2025, 2, 28, 8), true},
		{"yearly: leap year waits for the 29th", YearlyChecker{}, insuranceStart, at(2027, 3, 1, 8), at(2028, 2, 28, 8), false},
		{"yearly: missed month catches up", YearlyChecker{}, insuranceStart, at(2024, 2, 29, 8), at(2025, 6, 1, 8), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker.IsDue(tt.last, tt.now, tt.start))
		})
	}
}

func TestAnchorDay(t *testing.T) {
	assert.Equal(t, 28, anchorDay(core.NewDate(2025, 2, 10), 31))
	assert.Equal(t, 29, anchorDay(core.NewDate(2024, 2, 10), 31))
	assert.Equal(t, 30, anchorDay(core.NewDate(2025, 4, 10), 31))
	assert.Equal(t, 15, anchorDay(core.NewDate(2025, 4, 10), 15))
}

type alwaysDue struct{}

func (alwaysDue) IsDue(time.Time, time.Time, core.Date) bool { return true }

func TestDuenessRegistry(t *testing.T) {
	for _, rt := range []core.RepetitionTypes{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		_, err := GetDuenessChecker(rt)
		require.NoError(t, err, rt)
	}

	_, err := GetDuenessChecker("fortnightly")
	require.ErrorIs(t, err, core.ErrInvalidArgument)

	RegisterDuenessChecker("fortnightly", alwaysDue{})
	t.Cleanup(func() {
		duenessMu.Lock()
		delete(duenessStrategies, "fortnightly")
		duenessMu.Unlock()
	})
	checker, err := GetDuenessChecker("fortnightly")
	require.NoError(t, err)
	assert.True(t, checker.IsDue(time.Now(), time.Now(), core.Date{}))
}
