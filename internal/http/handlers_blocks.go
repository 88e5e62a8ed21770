package http

import (
	"net/http"
	"strings"

	"sorpes/internal/core"
)

func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := req.limit()
	if err != nil {
		writeError(w, r, err)
		return
	}
	block, err := s.tracker.CreateBlock(r.Context(), key, sanitizeInput(req.Title), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(block).Write(w)
}

func (s *Server) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := req.limit()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.UpdateBlock(r.Context(), key, r.PathValue("id"), sanitizeInput(req.Title), limit); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.DeleteBlock(r.Context(), key, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

// handleMoveBlock places the block right before {"before": id}, or last
// when before is empty.
func (s *Server) handleMoveBlock(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moveBlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.MoveBlock(r.Context(), key, r.PathValue("id"), strings.TrimSpace(req.Before)); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

func (s *Server) handleBlockLimit(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status, err := s.tracker.BlockLimit(key, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(status).Write(w)
}

func (s *Server) handleAddBlockItem(w http.ResponseWriter, r *http.Request) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req blockItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := req.item()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.AddBlockItem(r.Context(), key, r.PathValue("id"), item); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusCreated)
}

func (s *Server) handleUpdateBlockItem(w http.ResponseWriter, r *http.Request) {
	key, index, ok := s.blockItemTarget(w, r)
	if !ok {
		return
	}
	var req blockItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := req.item()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.UpdateBlockItem(r.Context(), key, r.PathValue("id"), index, item); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

func (s *Server) handleDeleteBlockItem(w http.ResponseWriter, r *http.Request) {
	key, index, ok := s.blockItemTarget(w, r)
	if !ok {
		return
	}
	if err := s.tracker.DeleteBlockItem(r.Context(), key, r.PathValue("id"), index); err != nil {
		writeError(w, r, err)
		return
	}
	s.monthResult(w, r, key, http.StatusOK)
}

func (s *Server) blockItemTarget(w http.ResponseWriter, r *http.Request) (core.MonthKey, int, bool) {
	key, err := monthParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", 0, false
	}
	index, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return "", 0, false
	}
	return key, index, true
}

func (s *Server) handleAddOwner(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := s.tracker.AddOwner(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(owner).Write(w)
}

func (s *Server) handleRemoveOwner(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.RemoveOwner(r.Context(), core.OwnerID(r.PathValue("id"))); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
