package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"carechain/core/audit"
	"carechain/core/block"
	"carechain/core/consensus"
	"carechain/core/state"
	"carechain/core/tx"
	"carechain/core/validation"
)

// ErrAccessDenied is returned when a history query comes from a
// requester who is not the patient, an admin, or a doctor holding
// active consent.
var ErrAccessDenied = errors.New("access denied")

// Ledger owns the ordered block sequence, the world state derived from
// it, and the access log. Append is the only mutator and holds the
// write lock for its full assemble-validate-commit span, so readers
// never observe a partially appended block.
type Ledger struct {
	mu        sync.RWMutex
	blocks    []block.Block
	st        *state.State
	eng       *consensus.Engine
	accessLog *audit.Log
}

// New creates a ledger with a fresh genesis block (index 0, sentinel
// parent hash, no transactions).
func New(eng *consensus.Engine) (*Ledger, error) {
	genesis, err := block.Assemble(0, block.GenesisPrevHash, time.Now().UTC(), block.GenesisProducer, nil)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		blocks:    []block.Block{genesis},
		st:        state.New(),
		eng:       eng,
		accessLog: audit.NewLog(),
	}
	l.accessLog.Append("system", audit.ActionBlockAdded, "0", true, "genesis")
	return l, nil
}

// Rehydrate builds a ledger from an already-deserialized block
// sequence, replaying full validation from genesis. A corrupted chain
// fails with a *validation.ChainError naming the first offending
// block, so the caller can refuse startup or quarantine the tail.
func Rehydrate(blocks []block.Block, eng *consensus.Engine) (*Ledger, error) {
	st, err := validation.ValidateChain(blocks, eng)
	if err != nil {
		return nil, err
	}
	owned := make([]block.Block, len(blocks))
	copy(owned, blocks)
	return &Ledger{
		blocks:    owned,
		st:        st,
		eng:       eng,
		accessLog: audit.NewLog(),
	}, nil
}

// RestoreAccessLog replaces the access log with persisted entries,
// verifying the hash chain.
func (l *Ledger) RestoreAccessLog(entries []audit.Entry) error {
	return l.accessLog.Restore(entries)
}

// Append assembles, validates, and commits one block carrying the
// given transactions. The caller-supplied producer identity must match
// the schedule for the next height. On any failure the chain is
// unchanged.
func (l *Ledger) Append(txs []tx.Transaction, producerID string) (block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.blocks[len(l.blocks)-1]
	next := tip.Index + 1

	expected, err := l.eng.ExpectedProducer(next)
	if err != nil {
		return block.Block{}, err
	}
	if producerID != expected {
		l.accessLog.Append(producerID, audit.ActionBlockAdded, fmt.Sprint(next), false, "unauthorized producer")
		return block.Block{}, fmt.Errorf("%w: expected %s, got %s", validation.ErrUnauthorizedProducer, expected, producerID)
	}

	// Timestamps must be non-decreasing across the chain; clamp to the
	// tip when the wall clock reads earlier than the last append.
	ts := time.Now().UTC()
	if ts.Before(tip.Timestamp) {
		ts = tip.Timestamp
	}

	b, err := block.Assemble(next, tip.Hash, ts, producerID, txs)
	if err != nil {
		return block.Block{}, err
	}
	if err := validation.ValidateBlock(b, tip, l.eng, l.st); err != nil {
		l.accessLog.Append(producerID, audit.ActionBlockAdded, fmt.Sprint(next), false, err.Error())
		return block.Block{}, err
	}

	for _, t := range b.Transactions {
		if err := l.st.Apply(t); err != nil {
			// ValidateBlock already replayed these against a clone, so
			// this indicates a programming error, not bad input.
			return block.Block{}, err
		}
	}
	l.blocks = append(l.blocks, b)

	l.accessLog.Append(producerID, audit.ActionBlockAdded, fmt.Sprint(b.Index), true, "")
	for _, t := range b.Transactions {
		if t.Kind == tx.KindMedicalRecord {
			l.accessLog.Append(t.Record.DoctorID, audit.ActionWrite, t.Record.PatientID, true, t.Record.RecordID)
		}
	}
	return b, nil
}

// QueryHistory returns the patient's medical record entries in chain
// order. The requester must be the patient, an admin, or a doctor
// holding active consent. Every call appends one access-log entry
// whether or not it succeeds.
func (l *Ledger) QueryHistory(patientID, requesterID string) ([]tx.MedicalRecordPayload, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if err := l.authorizeRead(patientID, requesterID); err != nil {
		l.accessLog.Append(requesterID, audit.ActionRead, patientID, false, err.Error())
		return nil, err
	}

	var history []tx.MedicalRecordPayload
	for _, b := range l.blocks {
		for _, t := range b.Transactions {
			if t.Kind == tx.KindMedicalRecord && t.Record.PatientID == patientID {
				history = append(history, *t.Record)
			}
		}
	}
	l.accessLog.Append(requesterID, audit.ActionRead, patientID, true, "")
	return history, nil
}

func (l *Ledger) authorizeRead(patientID, requesterID string) error {
	if _, ok := l.st.User(patientID); !ok {
		return fmt.Errorf("%w: unknown patient %s", ErrAccessDenied, patientID)
	}
	role, ok := l.st.Role(requesterID)
	if !ok {
		return fmt.Errorf("%w: unknown requester %s", ErrAccessDenied, requesterID)
	}
	switch {
	case requesterID == patientID:
		return nil
	case role == tx.RoleAdmin:
		return nil
	case role == tx.RoleDoctor && l.st.ConsentGranted(patientID, requesterID):
		return nil
	}
	return fmt.Errorf("%w: requester %s", ErrAccessDenied, requesterID)
}

// ValidateChain replays the full chain through the validator.
func (l *Ledger) ValidateChain() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, err := validation.ValidateChain(l.blocks, l.eng)
	return err
}

// Blocks returns a copy of the ordered block sequence for external
// serialization. Re-serializing and re-validating a previously valid
// chain yields the identical sequence of hashes.
func (l *Ledger) Blocks() []block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]block.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// Tip returns the most recently appended block.
func (l *Ledger) Tip() block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1]
}

// Height returns the number of blocks, genesis included.
func (l *Ledger) Height() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// RecordCount returns the number of medical record transactions
// committed to the chain.
func (l *Ledger) RecordCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, b := range l.blocks {
		for _, t := range b.Transactions {
			if t.Kind == tx.KindMedicalRecord {
				n++
			}
		}
	}
	return n
}

// AccessLog returns a copy of the access log entries.
func (l *Ledger) AccessLog() []audit.Entry {
	return l.accessLog.Entries()
}

// VerifyAccessLog checks the access log hash chain.
func (l *Ledger) VerifyAccessLog() error {
	return l.accessLog.VerifyChain()
}

// Registered reports whether a user id exists in the world state.
func (l *Ledger) Registered(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.IsRegistered(id)
}

// ConsentGranted reports the current consent status for a
// (patient, doctor) pair.
func (l *Ledger) ConsentGranted(patientID, doctorID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.st.ConsentGranted(patientID, doctorID)
}
