package server

import (
	"errors"
	"net/http"

	"carechain/core/validation"
)

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Blocks())
}

type validateResponse struct {
	Valid        bool    `json:"valid"`
	FailedIndex  *uint64 `json:"failedIndex,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func (s *Server) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ValidateChain(); err != nil {
		resp := validateResponse{Valid: false, Error: err.Error()}
		var chainErr *validation.ChainError
		if errors.As(err, &chainErr) {
			idx := chainErr.Index
			resp.FailedIndex = &idx
		}
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}

func (s *Server) handleAccessLog(w http.ResponseWriter, r *http.Request) {
	if !requireAPIKey(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.AccessLog())
}
