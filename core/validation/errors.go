package validation

import (
	"errors"
	"fmt"
)

var (
	// ErrSequenceGap: the candidate's index is not tip index + 1.
	ErrSequenceGap = errors.New("block index does not follow chain tip")

	// ErrForkDetected: the candidate's parent hash is not the tip hash.
	ErrForkDetected = errors.New("previous hash does not match chain tip")

	// ErrTimestampRegression: the candidate is older than the tip.
	ErrTimestampRegression = errors.New("block timestamp precedes chain tip")

	// ErrUnauthorizedProducer: not this delegate's turn in the rotation.
	ErrUnauthorizedProducer = errors.New("producer is not scheduled for this height")

	// ErrConsentMissing: a medical record lacks a granted consent for
	// its (patient, author) pair at validation time.
	ErrConsentMissing = errors.New("patient consent not granted for author")

	// ErrUnauthorizedConsentActor: a consent change submitted by
	// someone other than the named patient.
	ErrUnauthorizedConsentActor = errors.New("consent may only be changed by the named patient")
)

// ChainError names the first offending block of a full-chain
// validation, so the caller can decide whether to refuse startup or
// quarantine the tail.
type ChainError struct {
	Index uint64
	Err   error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain invalid at block %d: %v", e.Index, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}
