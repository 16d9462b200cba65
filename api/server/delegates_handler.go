package server

import (
	"encoding/json"
	"log"
	"net/http"

	"carechain/core/tx"
)

type delegateRequest struct {
	UserID string  `json:"userId"`
	Role   tx.Role `json:"role"`
}

// handleRegisterDelegate is an admin action: the roster is owned by
// the consensus engine, not derived from chain transactions.
func (s *Server) handleRegisterDelegate(w http.ResponseWriter, r *http.Request) {
	if !requireAPIKey(w, r) {
		return
	}
	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := s.eng.Register(req.UserID, req.Role); err != nil {
		writeCoreError(w, err)
		return
	}
	s.persistDelegates()
	writeJSON(w, http.StatusCreated, s.eng.Delegates())
}

func (s *Server) handleDeactivateDelegate(w http.ResponseWriter, r *http.Request) {
	if !requireAPIKey(w, r) {
		return
	}
	if err := s.eng.Deactivate(r.PathValue("userID")); err != nil {
		writeCoreError(w, err)
		return
	}
	s.persistDelegates()
	writeJSON(w, http.StatusOK, s.eng.Delegates())
}

func (s *Server) handleListDelegates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Delegates())
}

func (s *Server) persistDelegates() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveDelegates(s.eng.Delegates()); err != nil {
		log.Printf("[ERROR] failed to persist delegate roster: %v", err)
	}
}
