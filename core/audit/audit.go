package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the access log.
const (
	ActionWrite      = "WRITE"
	ActionRead       = "READ"
	ActionBlockAdded = "BLOCK_ADDED"
)

// ErrChainBroken is returned by VerifyChain when an entry's hash link
// does not match its recomputed value.
var ErrChainBroken = errors.New("access log hash chain broken")

// Entry is one append-only access-log record. Entries are linked by
// hash so retroactive edits to the log are detectable.
type Entry struct {
	EntryID   string    `json:"entryId"`
	ActorID   string    `json:"actorId"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	PrevHash  string    `json:"prevHash"`
	EntryHash string    `json:"entryHash"`
}

// Log is an in-memory hash-chained access log.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLog returns an empty access log.
func NewLog() *Log {
	return &Log{}
}

// Append records one access event and links it to the previous entry.
func (l *Log) Append(actorID, action, target string, success bool, reason string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	if n := len(l.entries); n > 0 {
		prev = l.entries[n-1].EntryHash
	}
	e := Entry{
		EntryID:   uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Target:    target,
		Timestamp: time.Now().UTC(),
		Success:   success,
		Reason:    reason,
		PrevHash:  prev,
	}
	e.EntryHash = entryHash(e)
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the log in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// VerifyChain recomputes every entry hash and link, returning
// ErrChainBroken at the first entry that disagrees.
func (l *Log) VerifyChain() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := ""
	for i, e := range l.entries {
		if e.PrevHash != prev {
			return fmt.Errorf("%w: entry %d link mismatch", ErrChainBroken, i)
		}
		if entryHash(e) != e.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, i)
		}
		prev = e.EntryHash
	}
	return nil
}

// Restore replaces the log with persisted entries after verifying the
// hash chain end to end.
func (l *Log) Restore(entries []Entry) error {
	fresh := make([]Entry, len(entries))
	copy(fresh, entries)

	prev := ""
	for i, e := range fresh {
		if e.PrevHash != prev {
			return fmt.Errorf("%w: entry %d link mismatch", ErrChainBroken, i)
		}
		if entryHash(e) != e.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrChainBroken, i)
		}
		prev = e.EntryHash
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = fresh
	return nil
}

// entryHash digests every field except EntryHash itself.
func entryHash(e Entry) string {
	h := sha256.New()
	h.Write([]byte(e.EntryID))
	h.Write([]byte(e.ActorID))
	h.Write([]byte(e.Action))
	h.Write([]byte(e.Target))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(strconv.FormatBool(e.Success)))
	h.Write([]byte(e.Reason))
	h.Write([]byte(e.PrevHash))
	return hex.EncodeToString(h.Sum(nil))
}
