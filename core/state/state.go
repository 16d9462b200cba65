package state

import (
	"errors"
	"fmt"

	"carechain/core/tx"
)

var (
	// ErrDuplicateUser is returned when a registration reuses an id.
	ErrDuplicateUser = errors.New("user id already registered")

	// ErrUnknownUser is returned when a transaction references an id
	// that has never been registered.
	ErrUnknownUser = errors.New("user not registered")
)

// User is one registered identity.
type User struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Role             tx.Role `json:"role"`
	DelegateEligible bool    `json:"delegateEligible"`
}

// State is the world state the validator consults: the user registry
// and the consent map. It is rebuilt from the chain by replaying
// committed transactions in order.
type State struct {
	users    map[string]User
	consents map[string]map[string]bool // patient id -> doctor id -> granted
}

// New returns an empty world state.
func New() *State {
	return &State{
		users:    make(map[string]User),
		consents: make(map[string]map[string]bool),
	}
}

// Clone deep-copies the state. Block validation advances a clone
// across the block's transactions so a rejected block leaves the
// committed state untouched.
func (s *State) Clone() *State {
	c := New()
	for id, u := range s.users {
		c.users[id] = u
	}
	for pid, docs := range s.consents {
		m := make(map[string]bool, len(docs))
		for did, granted := range docs {
			m[did] = granted
		}
		c.consents[pid] = m
	}
	return c
}

// Apply folds one transaction into the state. Callers validate before
// applying; Apply still rejects transitions that would corrupt the
// registry.
func (s *State) Apply(t tx.Transaction) error {
	switch t.Kind {
	case tx.KindUserRegistration:
		p := t.Registration
		if p == nil {
			return fmt.Errorf("%w: registration transaction has no payload", tx.ErrMalformedPayload)
		}
		if _, ok := s.users[p.UserID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, p.UserID)
		}
		s.users[p.UserID] = User{
			ID:               p.UserID,
			Name:             p.Name,
			Role:             p.Role,
			DelegateEligible: p.DelegateEligible,
		}
	case tx.KindConsentGrant:
		p := t.Consent
		if p == nil {
			return fmt.Errorf("%w: consent transaction has no payload", tx.ErrMalformedPayload)
		}
		if _, ok := s.users[p.PatientID]; !ok {
			return fmt.Errorf("%w: patient %s", ErrUnknownUser, p.PatientID)
		}
		docs := s.consents[p.PatientID]
		if docs == nil {
			docs = make(map[string]bool)
			s.consents[p.PatientID] = docs
		}
		docs[p.DoctorID] = p.Granted
	case tx.KindMedicalRecord:
		if t.Record == nil {
			return fmt.Errorf("%w: medical record transaction has no payload", tx.ErrMalformedPayload)
		}
		// Records carry no state transition; consent and registry
		// checks happen at validation time.
	default:
		return fmt.Errorf("unknown transaction kind %q", t.Kind)
	}
	return nil
}

// User looks up a registered user.
func (s *State) User(id string) (User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// Role returns the role of a registered user.
func (s *State) Role(id string) (tx.Role, bool) {
	u, ok := s.users[id]
	return u.Role, ok
}

// IsRegistered reports whether the id belongs to a registered user.
func (s *State) IsRegistered(id string) bool {
	_, ok := s.users[id]
	return ok
}

// ConsentGranted reports whether the patient currently grants the
// doctor access. Revocation flips this to false for all future
// validation and query checks; already-appended blocks are unaffected.
func (s *State) ConsentGranted(patientID, doctorID string) bool {
	return s.consents[patientID][doctorID]
}

// UserCount returns the number of registered users.
func (s *State) UserCount() int {
	return len(s.users)
}
