package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

type (
	RepetitionTypes string

	// Date is a calendar day in UTC with the time of day zeroed.
	Date struct {
		time.Time
	}

	// Money is a signed amount in cents. Positive values are expenses,
	// negative values are revenues.
	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Date        Date
		Description string
		Amount      Money
		Primary     string // Primary category
		Secondary   string // Secondary category
		RecurringID int64  // set when materialized from a recurring expense
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyPrimary     = errors.New("empty primary category")
	ErrEmptySecondary   = errors.New("empty secondary category")

	// ErrInvalidArgument is returned when a mutating operation receives a zero amount.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNullInput is returned when a required date is missing.
	ErrNullInput = errors.New("null input")
)

const maxDescriptionLength = 200

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrNullInput)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Before reports whether d is a strictly earlier day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a strictly later day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year(), d.Month(), d.Day()+n)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// UnixMilli returns the date as epoch milliseconds, the persisted representation.
func (d Date) UnixMilli() int64 {
	return d.Time.UnixMilli()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// TruncateDay drops the time of day from t, keeping the calendar day
// as seen in t's own location.
func TruncateDay(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// DateFromUnixMilli rebuilds a Date from its persisted epoch milliseconds.
func DateFromUnixMilli(ms int64) Date {
	return TruncateDay(time.UnixMilli(ms).UTC())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return TruncateDay(t), nil
}

// Validate rejects zero amounts; the sign carries the expense/revenue meaning.
func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsRevenue reports whether the amount is money coming in.
func (m Money) IsRevenue() bool {
	return m.Cents < 0
}

func (r RepetitionTypes) Validate() error {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return fmt.Errorf("%w: repetition type %q", ErrInvalidArgument, string(r))
	}
}

func validateLabels(description, primary, secondary string) error {
	if len(strings.TrimSpace(description)) == 0 {
		return ErrEmptyDescription
	}
	if len(description) > maxDescriptionLength {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidArgument)
	}
	if strings.TrimSpace(primary) == "" {
		return ErrEmptyPrimary
	}
	if strings.TrimSpace(secondary) == "" {
		return ErrEmptySecondary
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return validateLabels(e.Description, e.Primary, e.Secondary)
}
