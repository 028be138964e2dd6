package http

import (
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

type createRecurringRequest struct {
	Description string      `json:"description"`
	Every       string      `json:"every"`
	Primary     string      `json:"primary"`
	Secondary   string      `json:"secondary"`
	Amount      amountInput `json:"amount"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
}

type modificationRequest struct {
	Date   string      `json:"date"`
	Amount amountInput `json:"amount"`
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.recurring.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]recurringResponse, 0, len(items))
	for _, re := range items {
		out = append(out, toRecurringResponse(re))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseOptionalDate(req.Start)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseOptionalDate(req.End)
	if err != nil {
		writeError(w, r, err)
		return
	}

	re, err := s.recurring.Create(r.Context(), services.CreateRecurringInput{
		Description: sanitizeInput(req.Description),
		Every:       core.RepetitionTypes(sanitizeInput(req.Every)),
		Primary:     sanitizeInput(req.Primary),
		Secondary:   sanitizeInput(req.Secondary),
		Base:        amount,
		Start:       start.Time,
		End:         end.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringResponse(re))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	re, err := s.recurring.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(re))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.recurring.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddModification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req modificationRequest
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

	re, err := s.recurring.AddModification(r.Context(), id, date.Time, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(re))
}

func (s *Server) handleAmount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseOptionalDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := s.recurring.AmountForMonth(r.Context(), id, date.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{
		RecurringID: id,
		Date:        date.String(),
		AmountCents: amount.Cents,
		Amount:      amount.String(),
	})
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	from, err := parseOptionalDate(q.Get("from"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseOptionalDate(q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	occ, err := s.recurring.Occurrences(r.Context(), id, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]occurrenceResponse, 0, len(occ))
	for _, o := range occ {
		out = append(out, occurrenceResponse{Date: o.Date.String(), AmountCents: o.Amount.Cents, Amount: o.Amount.String()})
	}
	writeJSON(w, http.StatusOK, out)
}
