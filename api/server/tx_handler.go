package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"carechain/core/tx"
)

// txSubmission is the wire form of a transaction submission: a kind
// plus exactly one payload.
type txSubmission struct {
	Kind         tx.Kind                  `json:"kind"`
	Registration *tx.RegistrationPayload  `json:"registration,omitempty"`
	Consent      *tx.ConsentPayload       `json:"consent,omitempty"`
	Record       *tx.MedicalRecordPayload `json:"record,omitempty"`
}

type txReceipt struct {
	ReceiptID string `json:"receiptId"`
	TxHash    string `json:"txHash"`
	Status    string `json:"status"`
}

func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	var sub txSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	t, err := buildTransaction(sub)
	if err != nil {
		writeCoreError(w, err)
		return
	}

	if !s.pool.Add(t) {
		writeError(w, http.StatusConflict, "duplicate_submission", "transaction already pending")
		return
	}
	writeJSON(w, http.StatusAccepted, txReceipt{
		ReceiptID: uuid.New().String(),
		TxHash:    t.Hash,
		Status:    "pending",
	})
}

func buildTransaction(sub txSubmission) (tx.Transaction, error) {
	switch sub.Kind {
	case tx.KindUserRegistration:
		if sub.Registration == nil {
			return tx.Transaction{}, fmt.Errorf("%w: missing registration payload", tx.ErrMalformedPayload)
		}
		return tx.NewRegistration(*sub.Registration)
	case tx.KindConsentGrant:
		if sub.Consent == nil {
			return tx.Transaction{}, fmt.Errorf("%w: missing consent payload", tx.ErrMalformedPayload)
		}
		return tx.NewConsentGrant(*sub.Consent)
	case tx.KindMedicalRecord:
		if sub.Record == nil {
			return tx.Transaction{}, fmt.Errorf("%w: missing record payload", tx.ErrMalformedPayload)
		}
		return tx.NewMedicalRecord(*sub.Record)
	}
	return tx.Transaction{}, fmt.Errorf("%w: unknown kind %q", tx.ErrMalformedPayload, sub.Kind)
}

func (s *Server) handleMempool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Pending())
}
