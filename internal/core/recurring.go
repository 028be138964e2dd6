package core

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Modification overrides the base amount of a recurring expense for every
// day strictly after Date, until a later modification takes over.
type Modification struct {
	Date   Date
	Amount Money
}

// RecurringExpense is a budget entry repeating from a start date, optionally
// until an end date, whose amount can be changed over time.
//
// A RecurringExpense is not safe for concurrent mutation.
type RecurringExpense struct {
	ID          int64
	Description string
	Every       RepetitionTypes
	Primary     string
	Secondary   string

	base  Money
	start Date
	end   Date
	// sorted by Date, unique dates, never a zero amount
	mods []Modification
}

// NewRecurringExpense creates a recurring expense with no modifications.
// A zero end time means the expense never ends.
func NewRecurringExpense(base Money, start, end time.Time) (*RecurringExpense, error) {
	return RestoreRecurringExpense(base, start, end, nil)
}

// RestoreRecurringExpense rebuilds a recurring expense from persisted state.
// The modifications are copied; order does not matter and for duplicate
// dates the last one wins.
func RestoreRecurringExpense(base Money, start, end time.Time, mods []Modification) (*RecurringExpense, error) {
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrNullInput)
	}
	re := &RecurringExpense{
		base:  base,
		start: TruncateDay(start),
		end:   TruncateDay(end),
	}
	if !re.end.IsZero() && re.end.Before(re.start) {
		return nil, fmt.Errorf("%w: end date %s before start date %s", ErrInvalidArgument, re.end, re.start)
	}

	byDate := make(map[Date]Money, len(mods))
	for _, m := range mods {
		if m.Date.IsZero() {
			return nil, fmt.Errorf("%w: modification date is required", ErrNullInput)
		}
		if m.Amount.Cents == 0 {
			return nil, fmt.Errorf("%w: modification amount cannot be zero", ErrInvalidArgument)
		}
		byDate[TruncateDay(m.Date.Time)] = m.Amount
	}
	re.mods = make([]Modification, 0, len(byDate))
	for d, amt := range byDate {
		re.mods = append(re.mods, Modification{Date: d, Amount: amt})
	}
	sort.Slice(re.mods, func(i, j int) bool { return re.mods[i].Date.Before(re.mods[j].Date) })
	return re, nil
}

// Base returns the amount in effect before any modification.
func (re *RecurringExpense) Base() Money { return re.base }

// StartDate returns the first day of the recurrence.
func (re *RecurringExpense) StartDate() Date { return re.start }

// EndDate returns the last day of the recurrence, or a zero Date when unbounded.
func (re *RecurringExpense) EndDate() Date { return re.end }

// Unbounded reports whether the recurrence has no end date.
func (re *RecurringExpense) Unbounded() bool { return re.end.IsZero() }

// Modifications returns a copy of the modifications ordered by date.
func (re *RecurringExpense) Modifications() []Modification {
	out := make([]Modification, len(re.mods))
	copy(out, re.mods)
	return out
}

// AddModification changes the amount starting after effective. Every
// modification scheduled strictly after effective is discarded, and one at
// the same day is overwritten.
func (re *RecurringExpense) AddModification(effective time.Time, amount Money) error {
	if amount.Cents == 0 {
		return fmt.Errorf("%w: modification amount cannot be zero", ErrInvalidArgument)
	}
	if effective.IsZero() {
		return fmt.Errorf("%w: effective date is required", ErrNullInput)
	}
	day := TruncateDay(effective)

	// first index strictly after day
	cut := sort.Search(len(re.mods), func(i int) bool { return re.mods[i].Date.After(day) })
	re.mods = re.mods[:cut]

	if n := len(re.mods); n > 0 && re.mods[n-1].Date.Equal(day) {
		re.mods[n-1].Amount = amount
		return nil
	}
	re.mods = append(re.mods, Modification{Date: day, Amount: amount})
	return nil
}

// AmountForMonth resolves the amount that applies on the day of date: the
// latest modification strictly before that day, or the base amount.
// A modification never applies on its own effective day.
func (re *RecurringExpense) AmountForMonth(date time.Time) Money {
	day := TruncateDay(date)
	// first index not before day
	i := sort.Search(len(re.mods), func(i int) bool { return !re.mods[i].Date.Before(day) })
	if i == 0 {
		return re.base
	}
	return re.mods[i-1].Amount
}

// ActiveOn reports whether the recurrence covers day.
func (re *RecurringExpense) ActiveOn(day Date) bool {
	if day.Before(re.start) {
		return false
	}
	return re.end.IsZero() || !day.After(re.end)
}

// Validate checks the descriptive fields and the schedule.
func (re *RecurringExpense) Validate() error {
	if re == nil {
		return errors.New("recurring expense is nil")
	}
	if err := re.start.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !re.end.IsZero() && re.end.Before(re.start) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidArgument)
	}
	if err := re.Every.Validate(); err != nil {
		return err
	}
	if err := re.base.Validate(); err != nil {
		return err
	}
	return validateLabels(re.Description, re.Primary, re.Secondary)
}
