package server

import (
	"net/http"
)

// handleHistory serves a patient's record history. The requester
// identity comes from the JWT subject; access control itself lives in
// the ledger, which also writes the access-log entry.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientID")
	requesterID, err := requesterFromJWT(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", err.Error())
		return
	}

	history, err := s.ledger.QueryHistory(patientID, requesterID)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
