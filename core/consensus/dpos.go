package consensus

import (
	"errors"
	"fmt"
	"sync"

	"carechain/core/tx"
)

var (
	// ErrRoleIneligible is returned when a patient is offered as a
	// delegate; only doctors and admins may produce blocks.
	ErrRoleIneligible = errors.New("role is not eligible for delegation")

	// ErrNoDelegatesConfigured is returned when a producer is needed
	// but the active roster is empty.
	ErrNoDelegatesConfigured = errors.New("no active delegates configured")

	// ErrDelegateExists is returned on duplicate registration.
	ErrDelegateExists = errors.New("delegate already registered")

	// ErrUnknownDelegate is returned when activating or deactivating
	// an id that was never registered.
	ErrUnknownDelegate = errors.New("delegate not registered")
)

// Delegate is one roster entry: a doctor or admin eligible to produce
// blocks. Inactive delegates keep their rotation slot but are skipped
// when computing whose turn it is.
type Delegate struct {
	UserID string  `json:"userId"`
	Role   tx.Role `json:"role"`
	Active bool    `json:"active"`
}

// Engine owns the delegate roster and the round-robin schedule.
// Producer assignment is a pure function of block height over the
// active roster, not of wall-clock time or leader election: delegates
// are assumed cooperative, and no Byzantine fault tolerance is
// provided or claimed.
type Engine struct {
	mu     sync.RWMutex
	roster []Delegate // insertion order == schedule order, stable once set
	byID   map[string]int
}

// NewEngine returns an engine with an empty roster.
func NewEngine() *Engine {
	return &Engine{byID: make(map[string]int)}
}

// Register adds a delegate to the end of the rotation. Later
// registrations never reshuffle the existing order, so production
// fairness is preserved as the roster grows.
func (e *Engine) Register(userID string, role tx.Role) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrUnknownDelegate)
	}
	if role != tx.RoleDoctor && role != tx.RoleAdmin {
		return fmt.Errorf("%w: %s has role %q", ErrRoleIneligible, userID, role)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byID[userID]; ok {
		return fmt.Errorf("%w: %s", ErrDelegateExists, userID)
	}
	e.byID[userID] = len(e.roster)
	e.roster = append(e.roster, Delegate{UserID: userID, Role: role, Active: true})
	return nil
}

// Deactivate marks a delegate inactive without altering the relative
// order of the remaining active delegates.
func (e *Engine) Deactivate(userID string) error {
	return e.setActive(userID, false)
}

// Reactivate restores a previously deactivated delegate to its
// original rotation slot.
func (e *Engine) Reactivate(userID string) error {
	return e.setActive(userID, true)
}

func (e *Engine) setActive(userID string, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.byID[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDelegate, userID)
	}
	e.roster[i].Active = active
	return nil
}

// ExpectedProducer returns the delegate authorized to produce the
// block at the given height: activeRoster[height mod len(activeRoster)].
func (e *Engine) ExpectedProducer(blockIndex uint64) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active := e.activeLocked()
	if len(active) == 0 {
		return "", ErrNoDelegatesConfigured
	}
	return active[blockIndex%uint64(len(active))], nil
}

// IsActiveDelegate reports whether the id is a currently active
// roster member.
func (e *Engine) IsActiveDelegate(userID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.byID[userID]
	return ok && e.roster[i].Active
}

// Delegates returns a snapshot of the roster in schedule order.
func (e *Engine) Delegates() []Delegate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Delegate, len(e.roster))
	copy(out, e.roster)
	return out
}

// ActiveCount returns the number of active delegates.
func (e *Engine) ActiveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.activeLocked())
}

// Restore replaces the roster from a persisted snapshot, applying the
// same eligibility rules as Register. A snapshot containing a patient
// entry is rejected outright rather than silently filtered.
func (e *Engine) Restore(roster []Delegate) error {
	fresh := make([]Delegate, 0, len(roster))
	byID := make(map[string]int, len(roster))
	for _, d := range roster {
		if d.Role != tx.RoleDoctor && d.Role != tx.RoleAdmin {
			return fmt.Errorf("%w: %s has role %q", ErrRoleIneligible, d.UserID, d.Role)
		}
		if _, ok := byID[d.UserID]; ok {
			return fmt.Errorf("%w: %s", ErrDelegateExists, d.UserID)
		}
		byID[d.UserID] = len(fresh)
		fresh = append(fresh, d)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.roster = fresh
	e.byID = byID
	return nil
}

func (e *Engine) activeLocked() []string {
	active := make([]string, 0, len(e.roster))
	for _, d := range e.roster {
		if d.Active {
			active = append(active, d.UserID)
		}
	}
	return active
}
