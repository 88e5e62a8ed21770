package http

import (
	"net/http"
)

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.tracker.Totals(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(totals).Write(w)
}

func (s *Server) handleOwnerSplit(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	split, err := s.tracker.OwnerSplit(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]any{"owners": split}).Write(w)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.Statistics()).Write(w)
}

// handleExport downloads the whole state as a backup file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.tracker.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Attachment(filename, data).Write(w)
}

// handleImport replaces the whole state with an uploaded backup.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readBackupBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.Import(r.Context(), data); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(s.tracker.View()).Write(w)
}

func (s *Server) handleBackupStatus(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.tracker.BackupStatus(r.Context())).Write(w)
}
