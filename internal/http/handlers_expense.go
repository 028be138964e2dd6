package http

import (
	"net/http"

	"bilancio/internal/core"
)

type createExpenseRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
	Primary     string      `json:"primary"`
	Secondary   string      `json:"secondary"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e := core.Expense{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Primary:     sanitizeInput(req.Primary),
		Secondary:   sanitizeInput(req.Secondary),
	}
	id, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = id
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, month, err := queryYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.expenses.ListMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}
