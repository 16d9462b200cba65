package server

import (
	"encoding/json"
	"log"
	"net/http"
)

type produceRequest struct {
	ProducerID string `json:"producerId"`
}

type produceResponse struct {
	Index      uint64 `json:"index"`
	Hash       string `json:"hash"`
	MerkleRoot string `json:"merkleRoot"`
	TxCount    int    `json:"txCount"`
}

// handleProduceBlock drains the pending pool into one block. On
// rejection the drained transactions go back to the pool so corrected
// input can be retried.
func (s *Server) handleProduceBlock(w http.ResponseWriter, r *http.Request) {
	var req produceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProducerID == "" {
		writeError(w, http.StatusBadRequest, "missing_producer", "producerId is required")
		return
	}

	txs := s.pool.Drain()
	if len(txs) == 0 {
		writeError(w, http.StatusConflict, "empty_mempool", "no pending transactions to include")
		return
	}

	b, err := s.ledger.Append(txs, req.ProducerID)
	if err != nil {
		s.pool.Requeue(txs)
		writeCoreError(w, err)
		return
	}

	s.persistAfterAppend()

	writeJSON(w, http.StatusCreated, produceResponse{
		Index:      b.Index,
		Hash:       b.Hash,
		MerkleRoot: b.MerkleRoot,
		TxCount:    len(b.Transactions),
	})
}

// persistAfterAppend flushes the chain tip and access log to storage.
// Persistence runs after validation, never interleaved with it.
func (s *Server) persistAfterAppend() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveBlock(s.ledger.Tip()); err != nil {
		log.Printf("[ERROR] failed to persist block: %v", err)
	}
	if err := s.store.SaveAuditLog(s.ledger.AccessLog()); err != nil {
		log.Printf("[ERROR] failed to persist access log: %v", err)
	}
}
