package core

import (
	"sort"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// ReportEntry is a single line of a month: a one-time expense or a
// recurring occurrence.
type ReportEntry struct {
	Date        Date
	Description string
	Amount      Money
	Primary     string
	Secondary   string
	RecurringID int64
}

// MonthReport aggregates every entry falling in a year+month.
type MonthReport struct {
	Year       int
	Month      int   // 1-12
	Expenses   Money // sum of positive amounts
	Revenues   Money // sum of negative amounts, as a positive value
	Balance    Money // Revenues - Expenses
	ByCategory []CategoryAmount
	Entries    []ReportEntry
}

// BuildMonthReport combines one-time expenses and recurring occurrences of a
// month. One-time expenses outside the month are ignored. Recurring expenses
// that already have a materialized expense on a day are not counted twice.
func BuildMonthReport(year, month int, expenses []Expense, recurring []*RecurringExpense) MonthReport {
	first, last := MonthBounds(year, month)
	report := MonthReport{Year: year, Month: month}

	materialized := make(map[int64]map[Date]bool)
	for _, e := range expenses {
		if e.Date.Before(first) || e.Date.After(last) {
			continue
		}
		if e.RecurringID != 0 {
			if materialized[e.RecurringID] == nil {
				materialized[e.RecurringID] = make(map[Date]bool)
			}
			materialized[e.RecurringID][e.Date] = true
		}
		report.Entries = append(report.Entries, ReportEntry{
			Date:        e.Date,
			Description: e.Description,
			Amount:      e.Amount,
			Primary:     e.Primary,
			Secondary:   e.Secondary,
			RecurringID: e.RecurringID,
		})
	}

	for _, re := range recurring {
		for _, occ := range re.Occurrences(first, last) {
			if materialized[re.ID][occ.Date] {
				continue
			}
			report.Entries = append(report.Entries, ReportEntry{
				Date:        occ.Date,
				Description: re.Description,
				Amount:      occ.Amount,
				Primary:     re.Primary,
				Secondary:   re.Secondary,
				RecurringID: re.ID,
			})
		}
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		return report.Entries[i].Date.Before(report.Entries[j].Date)
	})

	byCat := make(map[string]int64)
	for _, e := range report.Entries {
		if e.Amount.IsRevenue() {
			report.Revenues.Cents -= e.Amount.Cents
		} else {
			report.Expenses.Cents += e.Amount.Cents
		}
		byCat[e.Primary] += e.Amount.Cents
	}
	report.Balance = Money{Cents: report.Revenues.Cents - report.Expenses.Cents}

	for name, cents := range byCat {
		report.ByCategory = append(report.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].Name < report.ByCategory[j].Name
	})
	return report
}

// Key identifies the report's month as YYYY-MM.
func (r MonthReport) Key() string {
	return MonthKey(r.Year, r.Month)
}

// MonthKey formats a year and month as YYYY-MM.
func MonthKey(year, month int) string {
	return NewDate(year, month, 1).Format("2006-01")
}
