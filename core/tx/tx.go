package tx

import (
	"errors"
	"fmt"
	"time"

	"carechain/core/hashing"
)

// ErrMalformedPayload is returned when a payload fails shape or
// semantic validation at construction time.
var ErrMalformedPayload = errors.New("malformed transaction payload")

// Role is a registered user role.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RolePatient, RoleAdmin:
		return true
	}
	return false
}

// Kind discriminates the transaction payload union.
type Kind string

const (
	KindUserRegistration Kind = "user_registration"
	KindConsentGrant     Kind = "consent_grant"
	KindMedicalRecord    Kind = "medical_record"
)

// RegistrationPayload registers a user. DelegateEligible marks a
// doctor or admin as a candidate block producer; it is never valid
// for patients.
type RegistrationPayload struct {
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	Role             Role   `json:"role"`
	DelegateEligible bool   `json:"delegateEligible"`
}

// ConsentPayload grants or revokes a doctor's access to a patient's
// records. ActorID is the submitting user; only the named patient may
// change their own consent.
type ConsentPayload struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	ActorID   string `json:"actorId"`
	Granted   bool   `json:"granted"`
}

// MedicalRecordPayload is one medical event authored by a doctor for
// a patient.
type MedicalRecordPayload struct {
	PatientID  string    `json:"patientId"`
	DoctorID   string    `json:"doctorId"`
	HospitalID string    `json:"hospitalId"`
	RecordID   string    `json:"recordId"`
	RecordType string    `json:"recordType"`
	Details    string    `json:"details"`
	Timestamp  time.Time `json:"timestamp"`
}

// Transaction is a write-once tagged union: exactly one payload
// pointer is set, selected by Kind. Hash is derived at construction
// and never set directly.
type Transaction struct {
	Kind         Kind                  `json:"kind"`
	Registration *RegistrationPayload  `json:"registration,omitempty"`
	Consent      *ConsentPayload       `json:"consent,omitempty"`
	Record       *MedicalRecordPayload `json:"record,omitempty"`
	Hash         string                `json:"hash"`
}

// txEnvelope is the canonical serialization hashed for Transaction.Hash.
// Field order is fixed by this declaration, not by construction order,
// so the same logical transaction always hashes identically.
type txEnvelope struct {
	Kind         Kind                  `json:"kind"`
	Registration *RegistrationPayload  `json:"registration,omitempty"`
	Consent      *ConsentPayload       `json:"consent,omitempty"`
	Record       *MedicalRecordPayload `json:"record,omitempty"`
}

// ComputeHash recomputes the digest from the transaction's kind and
// payload. Callers verifying stored transactions compare this against
// the stored Hash.
func (t Transaction) ComputeHash() (string, error) {
	env := txEnvelope{
		Kind:         t.Kind,
		Registration: t.Registration,
		Consent:      t.Consent,
		Record:       t.Record,
	}
	return hashing.HashRecord(env)
}

// NewRegistration builds a user-registration transaction.
func NewRegistration(p RegistrationPayload) (Transaction, error) {
	if err := validatePayload(registrationSchema, p); err != nil {
		return Transaction{}, err
	}
	if !p.Role.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown role %q", ErrMalformedPayload, p.Role)
	}
	return seal(Transaction{Kind: KindUserRegistration, Registration: &p})
}

// NewConsentGrant builds a consent grant or revocation transaction.
func NewConsentGrant(p ConsentPayload) (Transaction, error) {
	if err := validatePayload(consentSchema, p); err != nil {
		return Transaction{}, err
	}
	return seal(Transaction{Kind: KindConsentGrant, Consent: &p})
}

// NewMedicalRecord builds a medical-record transaction. A zero
// timestamp is filled with the current UTC time.
func NewMedicalRecord(p MedicalRecordPayload) (Transaction, error) {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	p.Timestamp = p.Timestamp.UTC()
	if err := validatePayload(medicalRecordSchema, p); err != nil {
		return Transaction{}, err
	}
	return seal(Transaction{Kind: KindMedicalRecord, Record: &p})
}

func seal(t Transaction) (Transaction, error) {
	h, err := t.ComputeHash()
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	t.Hash = h
	return t, nil
}
