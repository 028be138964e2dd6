package core

import "time"

// Occurrence is one dated instance of a recurring expense, as shown on a calendar.
type Occurrence struct {
	RecurringID int64
	Date        Date
	Amount      Money
}

// maxOccurrences bounds the expansion of daily schedules over long ranges.
const maxOccurrences = 10000

// Occurrences expands the schedule into the days that fall inside both
// [from, to] and the recurrence's own range. Each occurrence carries the
// amount resolved for its day.
func (re *RecurringExpense) Occurrences(from, to Date) []Occurrence {
	if to.Before(from) {
		return nil
	}
	if from.Before(re.start) {
		from = re.start
	}
	if !re.end.IsZero() && re.end.Before(to) {
		to = re.end
	}
	if to.Before(from) {
		return nil
	}

	var out []Occurrence
	first := re.firstIndexNear(from)
	for n := first; n < first+maxOccurrences; n++ {
		day, ok := re.nth(n)
		if !ok || day.After(to) {
			break
		}
		if day.Before(from) {
			continue
		}
		out = append(out, Occurrence{
			RecurringID: re.ID,
			Date:        day,
			Amount:      re.AmountForMonth(day.Time),
		})
	}
	return out
}

// nth returns the n-th scheduled day counting from the start date.
func (re *RecurringExpense) nth(n int) (Date, bool) {
	switch re.Every {
	case Daily:
		return re.start.AddDays(n), true
	case Weekly:
		return re.start.AddDays(7 * n), true
	case Monthly:
		return addMonthsClamped(re.start, n), true
	case Yearly:
		return addMonthsClamped(re.start, 12*n), true
	default:
		return Date{}, false
	}
}

// firstIndexNear returns a schedule index at or before the first occurrence
// on or after from, so long-running schedules are not walked from the start.
func (re *RecurringExpense) firstIndexNear(from Date) int {
	days := int(from.Sub(re.start.Time).Hours() / 24)
	months := (from.Year()-re.start.Year())*12 + from.Month() - re.start.Month()
	var n int
	switch re.Every {
	case Daily:
		n = days
	case Weekly:
		n = days / 7
	case Monthly:
		n = months - 1
	case Yearly:
		n = months/12 - 1
	}
	if n < 0 {
		return 0
	}
	return n
}

// addMonthsClamped moves d by n months, clamping the day to the last day of
// the target month (Jan 31 + 1 month = Feb 28/29).
func addMonthsClamped(d Date, n int) Date {
	first := time.Date(d.Year(), time.Month(d.Month())+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := LastDayOfMonth(first.Year(), int(first.Month()))
	day := d.Day()
	if day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthBounds returns the first and last day of a month.
func MonthBounds(year, month int) (Date, Date) {
	return NewDate(year, month, 1), NewDate(year, month, LastDayOfMonth(year, month))
}
