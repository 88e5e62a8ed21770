package http

import (
	"net/http"
	"strings"

	"sorpes/internal/core"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.View()).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !boolQuery(r, "confirm") {
		writeError(w, r, badRequest("reset needs confirm=true"))
		return
	}
	if err := s.tracker.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(s.tracker.View()).Write(w)
}

// handleListMonths lists every month, or those of ?year=YYYY most recent
// first.
func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	year := strings.TrimSpace(r.URL.Query().Get("year"))
	if year == "" {
		NewResponse().JSON(map[string]any{"months": s.tracker.View().Months}).Write(w)
		return
	}
	months := s.tracker.MonthsOfYear(year)
	if months == nil {
		months = []core.MonthKey{}
	}
	NewResponse().JSON(map[string]any{"year": year, "months": months}).Write(w)
}

func (s *Server) handleSuggestMonth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.SuggestMonth()).Write(w)
}

func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	var req createMonthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	key, err := core.ParseMonthKey(string(req.Month))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var from core.MonthKey
	if req.CopyFrom != "" {
		if from, err = core.ParseMonthKey(string(req.CopyFrom)); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.tracker.CreateMonth(r.Context(), key, from); err != nil {
		writeError(w, r, err)
		return
	}
	md, err := s.tracker.Month(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/months/"+key.String()).
		JSON(monthResponse{Month: key, Label: key.Label(), Data: md}).
		Write(w)
}

type monthResponse struct {
	Month core.MonthKey   `json:"month"`
	Label string          `json:"label"`
	Data  *core.MonthData `json:"data"`
	Index *int            `json:"index,omitempty"`
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if key == "" {
		key = s.tracker.View().ActiveMonth
	}
	md, err := s.tracker.Month(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(monthResponse{Month: key, Label: key.Label(), Data: md}).Write(w)
}

func (s *Server) handleSwitchMonth(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil || key == "" {
		writeError(w, r, badRequest("a concrete month key is required"))
		return
	}
	changed, err := s.tracker.SwitchMonth(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]any{"activeMonth": key, "changed": changed}).Write(w)
}

// handleDeleteMonth removes a month. One that still holds entries answers
// 409 unless ?confirm=true.
func (s *Server) handleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil || key == "" {
		writeError(w, r, badRequest("a concrete month key is required"))
		return
	}
	if err := s.tracker.DeleteMonth(r.Context(), key, boolQuery(r, "confirm")); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(s.tracker.View()).Write(w)
}
