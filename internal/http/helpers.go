package http

import (
	"strings"

	"bilancio/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

type modificationResponse struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type recurringResponse struct {
	ID            int64                  `json:"id"`
	Description   string                 `json:"description"`
	Every         string                 `json:"every"`
	Primary       string                 `json:"primary"`
	Secondary     string                 `json:"secondary"`
	BaseCents     int64                  `json:"base_cents"`
	Base          string                 `json:"base"`
	Start         string                 `json:"start"`
	End           string                 `json:"end,omitempty"`
	Modifications []modificationResponse `json:"modifications"`
}

func toRecurringResponse(re *core.RecurringExpense) recurringResponse {
	mods := re.Modifications()
	out := recurringResponse{
		ID:            re.ID,
		Description:   re.Description,
		Every:         string(re.Every),
		Primary:       re.Primary,
		Secondary:     re.Secondary,
		BaseCents:     re.Base().Cents,
		Base:          re.Base().String(),
		Start:         re.StartDate().String(),
		End:           re.EndDate().String(),
		Modifications: make([]modificationResponse, 0, len(mods)),
	}
	for _, m := range mods {
		out.Modifications = append(out.Modifications, modificationResponse{
			Date:        m.Date.String(),
			AmountCents: m.Amount.Cents,
			Amount:      m.Amount.String(),
		})
	}
	return out
}

type amountResponse struct {
	RecurringID int64  `json:"recurring_id"`
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type occurrenceResponse struct {
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary"`
	RecurringID int64  `json:"recurring_id,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Date:        e.Date.String(),
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Primary:     e.Primary,
		Secondary:   e.Secondary,
		RecurringID: e.RecurringID,
	}
}

type categoryResponse struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

type reportEntryResponse struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Primary     string `json:"primary"`
	Secondary   string `json:"secondary"`
	RecurringID int64  `json:"recurring_id,omitempty"`
}

type reportResponse struct {
	Year          int                   `json:"year"`
	Month         int                   `json:"month"`
	ExpensesCents int64                 `json:"expenses_cents"`
	RevenuesCents int64                 `json:"revenues_cents"`
	BalanceCents  int64                 `json:"balance_cents"`
	ByCategory    []categoryResponse    `json:"by_category"`
	Entries       []reportEntryResponse `json:"entries"`
}

func toReportResponse(r core.MonthReport) reportResponse {
	out := reportResponse{
		Year:          r.Year,
		Month:         r.Month,
		ExpensesCents: r.Expenses.Cents,
		RevenuesCents: r.Revenues.Cents,
		BalanceCents:  r.Balance.Cents,
		ByCategory:    make([]categoryResponse, 0, len(r.ByCategory)),
		Entries:       make([]reportEntryResponse, 0, len(r.Entries)),
	}
	for _, c := range r.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryResponse{Name: c.Name, AmountCents: c.Amount.Cents})
	}
	for _, e := range r.Entries {
		out.Entries = append(out.Entries, reportEntryResponse{
			Date:        e.Date.String(),
			Description: e.Description,
			AmountCents: e.Amount.Cents,
			Primary:     e.Primary,
			Secondary:   e.Secondary,
			RecurringID: e.RecurringID,
		})
	}
	return out
}
