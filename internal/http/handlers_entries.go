package http

import (
	"net/http"

	"sorpes/internal/core"
)

// monthResult answers a successful command with the month it touched.
func (s *Server) monthResult(w http.ResponseWriter, r *http.Request, key core.MonthKey, status int) {
	s.writeMonth(w, r, key, status, nil)
}

// entryResult is monthResult plus the index the entry ended up at.
func (s *Server) entryResult(w http.ResponseWriter, r *http.Request, key core.MonthKey, status, index int) {
	s.writeMonth(w, r, key, status, &index)
}

func (s *Server) writeMonth(w http.ResponseWriter, r *http.Request, key core.MonthKey, status int, index *int) {
	if key == "" {
		key = s.tracker.View().ActiveMonth
	}
	md, err := s.tracker.Month(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(status).JSON(monthResponse{Month: key, Label: key.Label(), Data: md, Index: index}).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := expenseKindParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.entry()
	if err != nil {
		writeError(w, r, err)
		return
	}
	index, err := s.tracker.AddExpense(r.Context(), key, kind, entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.entryResult(w, r, key, http.StatusCreated, index)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	key, kind, index, ok := s.expenseTarget(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.entry()
	if err != nil {
		writeError(w, r, err)
		return
	}
	moved, err := s.tracker.UpdateExpense(r.Context(), key, kind, index, entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.entryResult(w, r, key, http.StatusOK, moved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	key, kind, index, ok := s.expenseTarget(w, r)
	if !ok {
		return
	}
	if err := s.tracker.DeleteExpense(r.Context(), key, kind, index); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	key, kind, index, ok := s.expenseTarget(w, r)
	if !ok {
		return
	}
	paid, err := s.tracker.TogglePaid(r.Context(), key, kind, index)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]bool{"paid": paid}).Write(w)
}

func (s *Server) handleSetPaid(w http.ResponseWriter, r *http.Request) {
	key, kind, index, ok := s.expenseTarget(w, r)
	if !ok {
		return
	}
	var req paidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.SetPaid(r.Context(), key, kind, index, req.Paid); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]bool{"paid": req.Paid}).Write(w)
}

// expenseTarget reads {month}, {kind} and {index}, answering the error
// itself when one is malformed.
func (s *Server) expenseTarget(w http.ResponseWriter, r *http.Request) (core.MonthKey, core.ExpenseKind, int, bool) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", "", 0, false
	}
	kind, err := expenseKindParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", "", 0, false
	}
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", "", 0, false
	}
	return key, kind, index, true
}

func (s *Server) incomeTarget(w http.ResponseWriter, r *http.Request, withIndex bool) (core.MonthKey, core.IncomeKind, int, bool) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", "", 0, false
	}
	kind, err := incomeKindParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", "", 0, false
	}
	if !withIndex {
		return key, kind, 0, true
	}
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", "", 0, false
	}
	return key, kind, index, true
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	key, kind, _, ok := s.incomeTarget(w, r, false)
	if !ok {
		return
	}
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.entry()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.AddIncome(r.Context(), key, kind, entry); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusCreated)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	key, kind, index, ok := s.incomeTarget(w, r, true)
	if !ok {
		return
	}
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := req.entry()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.UpdateIncome(r.Context(), key, kind, index, entry); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	key, kind, index, ok := s.incomeTarget(w, r, true)
	if !ok {
		return
	}
	if err := s.tracker.DeleteIncome(r.Context(), key, kind, index); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}
