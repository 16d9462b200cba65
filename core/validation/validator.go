package validation

import (
	"fmt"

	"carechain/core/block"
	"carechain/core/consensus"
	"carechain/core/state"
	"carechain/core/tx"
)

// ValidateTransaction checks one transaction against the world state.
// Errors are distinct sentinel values so callers can tell policy
// rejections apart from tampering.
func ValidateTransaction(t tx.Transaction, st *state.State) error {
	switch t.Kind {
	case tx.KindUserRegistration:
		p := t.Registration
		if p == nil {
			return fmt.Errorf("%w: registration transaction has no payload", tx.ErrMalformedPayload)
		}
		if st.IsRegistered(p.UserID) {
			return fmt.Errorf("%w: %s", state.ErrDuplicateUser, p.UserID)
		}
		if p.DelegateEligible && p.Role != tx.RoleDoctor && p.Role != tx.RoleAdmin {
			return fmt.Errorf("%w: %s cannot be delegate-eligible as %q", consensus.ErrRoleIneligible, p.UserID, p.Role)
		}
	case tx.KindConsentGrant:
		p := t.Consent
		if p == nil {
			return fmt.Errorf("%w: consent transaction has no payload", tx.ErrMalformedPayload)
		}
		if p.ActorID != p.PatientID {
			return fmt.Errorf("%w: actor %s, patient %s", ErrUnauthorizedConsentActor, p.ActorID, p.PatientID)
		}
		if role, ok := st.Role(p.PatientID); !ok || role != tx.RolePatient {
			return fmt.Errorf("%w: patient %s", state.ErrUnknownUser, p.PatientID)
		}
		if role, ok := st.Role(p.DoctorID); !ok || role != tx.RoleDoctor {
			return fmt.Errorf("%w: doctor %s", state.ErrUnknownUser, p.DoctorID)
		}
	case tx.KindMedicalRecord:
		p := t.Record
		if p == nil {
			return fmt.Errorf("%w: medical record transaction has no payload", tx.ErrMalformedPayload)
		}
		if role, ok := st.Role(p.PatientID); !ok || role != tx.RolePatient {
			return fmt.Errorf("%w: patient %s", state.ErrUnknownUser, p.PatientID)
		}
		if role, ok := st.Role(p.DoctorID); !ok || role != tx.RoleDoctor {
			return fmt.Errorf("%w: doctor %s", state.ErrUnknownUser, p.DoctorID)
		}
		if !st.ConsentGranted(p.PatientID, p.DoctorID) {
			return fmt.Errorf("%w: patient %s, doctor %s", ErrConsentMissing, p.PatientID, p.DoctorID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", tx.ErrMalformedPayload, t.Kind)
	}
	return nil
}

// ValidateBlock checks a candidate block against the chain tip, the
// producer schedule, and the world state. Checks run in a fixed order
// and short-circuit at the first failure. The committed state is never
// mutated: transaction checks advance a clone, so a consent granted
// earlier in the block authorizes a record later in the same block.
func ValidateBlock(b block.Block, tip block.Block, eng *consensus.Engine, st *state.State) error {
	if b.Index != tip.Index+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, tip.Index+1, b.Index)
	}
	if b.PrevHash != tip.Hash {
		return fmt.Errorf("%w: block %d", ErrForkDetected, b.Index)
	}
	if b.Timestamp.Before(tip.Timestamp) {
		return fmt.Errorf("%w: block %d", ErrTimestampRegression, b.Index)
	}

	expected, err := eng.ExpectedProducer(b.Index)
	if err != nil {
		return err
	}
	if b.ProducerID != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrUnauthorizedProducer, expected, b.ProducerID)
	}

	if err := b.VerifyInternal(); err != nil {
		return err
	}

	speculative := st.Clone()
	for _, t := range b.Transactions {
		if err := ValidateTransaction(t, speculative); err != nil {
			return err
		}
		if err := speculative.Apply(t); err != nil {
			return err
		}
	}
	return nil
}

// ValidateChain replays the whole chain from genesis, rebuilding the
// world state as it goes. It returns a *ChainError naming the first
// offending block. Used after deserializing persisted state to detect
// tampering or corruption end to end.
func ValidateChain(blocks []block.Block, eng *consensus.Engine) (*state.State, error) {
	if len(blocks) == 0 {
		return nil, &ChainError{Index: 0, Err: fmt.Errorf("chain has no genesis block")}
	}

	genesis := blocks[0]
	if genesis.Index != 0 {
		return nil, &ChainError{Index: genesis.Index, Err: fmt.Errorf("first block has index %d", genesis.Index)}
	}
	if genesis.PrevHash != block.GenesisPrevHash {
		return nil, &ChainError{Index: 0, Err: block.ErrEmptyGenesisViolation}
	}
	if err := genesis.VerifyInternal(); err != nil {
		return nil, &ChainError{Index: 0, Err: err}
	}

	st := state.New()
	for _, t := range genesis.Transactions {
		if err := st.Apply(t); err != nil {
			return nil, &ChainError{Index: 0, Err: err}
		}
	}

	for i := 1; i < len(blocks); i++ {
		b := blocks[i]
		if err := ValidateBlock(b, blocks[i-1], eng, st); err != nil {
			return nil, &ChainError{Index: b.Index, Err: err}
		}
		for _, t := range b.Transactions {
			if err := st.Apply(t); err != nil {
				return nil, &ChainError{Index: b.Index, Err: err}
			}
		}
	}
	return st, nil
}
