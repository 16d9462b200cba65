package ledger

import (
	"errors"
	"testing"
	"time"

	"carechain/core/audit"
	"carechain/core/block"
	"carechain/core/consensus"
	"carechain/core/tx"
	"carechain/core/validation"
)

func registration(t *testing.T, userID string, role tx.Role, eligible bool) tx.Transaction {
	t.Helper()
	tr, err := tx.NewRegistration(tx.RegistrationPayload{
		UserID: userID, Name: "Test User", Role: role, DelegateEligible: eligible,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func consentGrant(t *testing.T, patientID, doctorID string, granted bool) tx.Transaction {
	t.Helper()
	tr, err := tx.NewConsentGrant(tx.ConsentPayload{
		PatientID: patientID, DoctorID: doctorID, ActorID: patientID, Granted: granted,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func medicalRecord(t *testing.T, patientID, doctorID, recordID string) tx.Transaction {
	t.Helper()
	tr, err := tx.NewMedicalRecord(tx.MedicalRecordPayload{
		PatientID:  patientID,
		DoctorID:   doctorID,
		HospitalID: "hosp_001",
		RecordID:   recordID,
		RecordType: "Consultation",
		Details:    "Follow-up visit",
		Timestamp:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

// twoDelegateEngine registers adm_root then dr_house, so dr_house is
// scheduled for height 1 and adm_root for height 2.
func twoDelegateEngine(t *testing.T) *consensus.Engine {
	t.Helper()
	eng := consensus.NewEngine()
	if err := eng.Register("adm_root", tx.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := eng.Register("dr_house", tx.RoleDoctor); err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestNewCreatesGenesis(t *testing.T) {
	l, err := New(twoDelegateEngine(t))
	if err != nil {
		t.Fatal(err)
	}
	if l.Height() != 1 {
		t.Fatalf("height = %d, want 1", l.Height())
	}
	tip := l.Tip()
	if tip.Index != 0 || tip.PrevHash != block.GenesisPrevHash {
		t.Errorf("genesis shape wrong: index %d, prev %s", tip.Index, tip.PrevHash)
	}
	if len(l.AccessLog()) != 1 {
		t.Errorf("access log entries = %d, want 1 genesis entry", len(l.AccessLog()))
	}
}

func TestAppendLifecycle(t *testing.T) {
	eng := twoDelegateEngine(t)
	l, err := New(eng)
	if err != nil {
		t.Fatal(err)
	}

	b1, err := l.Append([]tx.Transaction{
		registration(t, "pat_alice", tx.RolePatient, false),
		registration(t, "dr_house", tx.RoleDoctor, true),
		registration(t, "dr_wilson", tx.RoleDoctor, true),
		consentGrant(t, "pat_alice", "dr_house", true),
	}, "dr_house")
	if err != nil {
		t.Fatalf("block 1: %v", err)
	}
	if b1.Index != 1 {
		t.Errorf("index = %d", b1.Index)
	}
	if !l.Registered("pat_alice") || !l.ConsentGranted("pat_alice", "dr_house") {
		t.Error("block 1 state not committed")
	}

	b2, err := l.Append([]tx.Transaction{
		medicalRecord(t, "pat_alice", "dr_house", "rec_001"),
	}, "adm_root")
	if err != nil {
		t.Fatalf("block 2: %v", err)
	}
	if b2.PrevHash != b1.Hash {
		t.Error("block 2 not linked to block 1")
	}
	if l.Height() != 3 {
		t.Errorf("height = %d, want 3", l.Height())
	}
	if err := l.ValidateChain(); err != nil {
		t.Errorf("chain invalid after appends: %v", err)
	}
}

func TestAppendRejectsWrongProducer(t *testing.T) {
	eng := twoDelegateEngine(t)
	l, err := New(eng)
	if err != nil {
		t.Fatal(err)
	}

	before := l.Height()
	logBefore := len(l.AccessLog())
	_, err = l.Append([]tx.Transaction{
		registration(t, "pat_alice", tx.RolePatient, false),
	}, "adm_root") // height 1 belongs to dr_house
	if !errors.Is(err, validation.ErrUnauthorizedProducer) {
		t.Fatalf("expected ErrUnauthorizedProducer, got %v", err)
	}
	if l.Height() != before {
		t.Error("rejected block changed the chain")
	}
	if len(l.AccessLog()) != logBefore+1 {
		t.Error("rejected production attempt not logged")
	}
}

func TestAppendRejectsUnconsentedRecord(t *testing.T) {
	eng := twoDelegateEngine(t)
	l, err := New(eng)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]tx.Transaction{
		registration(t, "pat_alice", tx.RolePatient, false),
		registration(t, "dr_house", tx.RoleDoctor, true),
	}, "dr_house"); err != nil {
		t.Fatal(err)
	}

	before := l.Height()
	_, err = l.Append([]tx.Transaction{
		medicalRecord(t, "pat_alice", "dr_house", "rec_001"),
	}, "adm_root")
	if !errors.Is(err, validation.ErrConsentMissing) {
		t.Fatalf("expected ErrConsentMissing, got %v", err)
	}
	if l.Height() != before {
		t.Error("rejected block changed the chain")
	}
}

func TestRevocationBlocksFutureWrites(t *testing.T) {
	eng := twoDelegateEngine(t)
	l, err := New(eng)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]tx.Transaction{
		registration(t, "pat_alice", tx.RolePatient, false),
		registration(t, "dr_house", tx.RoleDoctor, true),
		consentGrant(t, "pat_alice", "dr_house", true),
	}, "dr_house"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]tx.Transaction{
		medicalRecord(t, "pat_alice", "dr_house", "rec_001"),
	}, "adm_root"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]tx.Transaction{
		consentGrant(t, "pat_alice", "dr_house", false),
	}, "dr_house"); err != nil {
		t.Fatal(err)
	}

	_, err = l.Append([]tx.Transaction{
		medicalRecord(t, "pat_alice", "dr_house", "rec_002"),
	}, "adm_root")
	if !errors.Is(err, validation.ErrConsentMissing) {
		t.Fatalf("post-revocation write: expected ErrConsentMissing, got %v", err)
	}

	// The record appended while consent was active stays on the chain.
	history, err := l.QueryHistory("pat_alice", "pat_alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].RecordID != "rec_001" {
		t.Errorf("history = %+v, want the single pre-revocation record", history)
	}
	if err := l.ValidateChain(); err != nil {
		t.Errorf("chain invalid after revocation: %v", err)
	}
}

func seededLedger(t *testing.T) (*Ledger, *consensus.Engine) {
	t.Helper()
	eng := twoDelegateEngine(t)
	l, err := New(eng)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]tx.Transaction{
		registration(t, "pat_alice", tx.RolePatient, false),
		registration(t, "dr_house", tx.RoleDoctor, true),
		registration(t, "dr_wilson", tx.RoleDoctor, true),
		registration(t, "adm_root", tx.RoleAdmin, true),
		consentGrant(t, "pat_alice", "dr_house", true),
	}, "dr_house"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append([]tx.Transaction{
		medicalRecord(t, "pat_alice", "dr_house", "rec_001"),
	}, "adm_root"); err != nil {
		t.Fatal(err)
	}
	return l, eng
}

func TestQueryHistoryAuthorization(t *testing.T) {
	l, _ := seededLedger(t)

	cases := []struct {
		name      string
		requester string
		allowed   bool
	}{
		{"patient reads own history", "pat_alice", true},
		{"admin reads any history", "adm_root", true},
		{"consented doctor reads", "dr_house", true},
		{"unconsented doctor denied", "dr_wilson", false},
		{"unknown requester denied", "stranger1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history, err := l.QueryHistory("pat_alice", tc.requester)
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected access, got %v", err)
				}
				if len(history) != 1 {
					t.Errorf("history length = %d, want 1", len(history))
				}
				return
			}
			if !errors.Is(err, ErrAccessDenied) {
				t.Errorf("expected ErrAccessDenied, got %v", err)
			}
		})
	}
}

func TestQueryHistoryUnknownPatient(t *testing.T) {
	l, _ := seededLedger(t)
	if _, err := l.QueryHistory("pat_ghost", "adm_root"); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}

func TestQueryHistoryAlwaysLogged(t *testing.T) {
	l, _ := seededLedger(t)

	before := len(l.AccessLog())
	if _, err := l.QueryHistory("pat_alice", "pat_alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.QueryHistory("pat_alice", "dr_wilson"); !errors.Is(err, ErrAccessDenied) {
		t.Fatal(err)
	}

	entries := l.AccessLog()
	if len(entries) != before+2 {
		t.Fatalf("log grew by %d, want 2", len(entries)-before)
	}
	granted := entries[len(entries)-2]
	denied := entries[len(entries)-1]
	if granted.Action != audit.ActionRead || !granted.Success {
		t.Errorf("granted read logged as %+v", granted)
	}
	if denied.Action != audit.ActionRead || denied.Success {
		t.Errorf("denied read logged as %+v", denied)
	}
	if err := l.VerifyAccessLog(); err != nil {
		t.Errorf("access log chain broken: %v", err)
	}
}

func TestWriteEntriesLogged(t *testing.T) {
	l, _ := seededLedger(t)

	var writes int
	for _, e := range l.AccessLog() {
		if e.Action == audit.ActionWrite && e.ActorID == "dr_house" && e.Target == "pat_alice" {
			writes++
		}
	}
	if writes != 1 {
		t.Errorf("WRITE entries = %d, want 1", writes)
	}
}

func TestRehydrateRoundTrip(t *testing.T) {
	l, eng := seededLedger(t)

	restored, err := Rehydrate(l.Blocks(), eng)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if restored.Height() != l.Height() {
		t.Errorf("height = %d, want %d", restored.Height(), l.Height())
	}
	if restored.Tip().Hash != l.Tip().Hash {
		t.Error("tip hash changed across rehydration")
	}
	if !restored.ConsentGranted("pat_alice", "dr_house") {
		t.Error("world state not rebuilt from the chain")
	}
}

func TestRehydrateRejectsMissingPayload(t *testing.T) {
	eng := twoDelegateEngine(t)

	// A crafted block whose transaction has a kind but no payload still
	// carries internally consistent hashes, so it survives
	// VerifyInternal; rehydration must reject it as malformed rather
	// than crash.
	g, err := block.Assemble(0, block.GenesisPrevHash, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), block.GenesisProducer, nil)
	if err != nil {
		t.Fatal(err)
	}
	crafted, err := block.Assemble(1, g.Hash, g.Timestamp.Add(time.Minute), "dr_house",
		[]tx.Transaction{{Kind: tx.KindUserRegistration}})
	if err != nil {
		t.Fatal(err)
	}
	if err := crafted.VerifyInternal(); err != nil {
		t.Fatalf("crafted block should be internally consistent: %v", err)
	}

	_, err = Rehydrate([]block.Block{g, crafted}, eng)
	var chainErr *validation.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *ChainError, got %v", err)
	}
	if chainErr.Index != 1 {
		t.Errorf("offending index = %d, want 1", chainErr.Index)
	}
	if !errors.Is(err, tx.ErrMalformedPayload) {
		t.Errorf("expected wrapped ErrMalformedPayload, got %v", err)
	}
}

func TestRehydrateRejectsMissingGenesisPayload(t *testing.T) {
	eng := twoDelegateEngine(t)

	g, err := block.Assemble(0, block.GenesisPrevHash, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), block.GenesisProducer,
		[]tx.Transaction{{Kind: tx.KindMedicalRecord}})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Rehydrate([]block.Block{g}, eng)
	var chainErr *validation.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *ChainError, got %v", err)
	}
	if chainErr.Index != 0 {
		t.Errorf("offending index = %d, want 0", chainErr.Index)
	}
	if !errors.Is(err, tx.ErrMalformedPayload) {
		t.Errorf("expected wrapped ErrMalformedPayload, got %v", err)
	}
}

func TestRehydrateRejectsTamperedChain(t *testing.T) {
	l, eng := seededLedger(t)

	blocks := l.Blocks()
	blocks[2].Transactions[0].Record.Details = "forged"

	_, err := Rehydrate(blocks, eng)
	var chainErr *validation.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *ChainError, got %v", err)
	}
	if chainErr.Index != 2 {
		t.Errorf("offending index = %d, want 2", chainErr.Index)
	}
}
