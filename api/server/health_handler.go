package server

import (
	"net/http"
)

// HandleLiveness reports that the process is up.
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness reports whether the node can serve: the chain must
// exist and re-validate.
func (s *Server) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ValidateChain(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
