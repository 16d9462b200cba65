package consensus

import (
	"errors"
	"testing"

	"carechain/core/tx"
)

func engineWith(t *testing.T, ids ...string) *Engine {
	t.Helper()
	e := NewEngine()
	for _, id := range ids {
		if err := e.Register(id, tx.RoleDoctor); err != nil {
			t.Fatalf("registering %s: %v", id, err)
		}
	}
	return e
}

func TestExpectedProducerRoundRobin(t *testing.T) {
	e := engineWith(t, "dr_a", "dr_b", "dr_c")
	want := []string{"dr_a", "dr_b", "dr_c", "dr_a", "dr_b", "dr_c"}
	for h := uint64(0); h < 6; h++ {
		got, err := e.ExpectedProducer(h)
		if err != nil {
			t.Fatalf("height %d: %v", h, err)
		}
		if got != want[h] {
			t.Errorf("height %d: producer = %s, want %s", h, got, want[h])
		}
	}
}

func TestExpectedProducerNoDelegates(t *testing.T) {
	e := NewEngine()
	if _, err := e.ExpectedProducer(1); !errors.Is(err, ErrNoDelegatesConfigured) {
		t.Errorf("expected ErrNoDelegatesConfigured, got %v", err)
	}
}

func TestRegisterRejectsPatients(t *testing.T) {
	e := NewEngine()
	if err := e.Register("pat_alice", tx.RolePatient); !errors.Is(err, ErrRoleIneligible) {
		t.Errorf("expected ErrRoleIneligible, got %v", err)
	}
	if e.ActiveCount() != 0 {
		t.Error("rejected registration must not join the roster")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	e := engineWith(t, "dr_a")
	if err := e.Register("dr_a", tx.RoleAdmin); !errors.Is(err, ErrDelegateExists) {
		t.Errorf("expected ErrDelegateExists, got %v", err)
	}
}

func TestDeactivateSkipsInRotation(t *testing.T) {
	e := engineWith(t, "dr_a", "dr_b", "dr_c")
	if err := e.Deactivate("dr_b"); err != nil {
		t.Fatal(err)
	}

	// Active roster is now [dr_a, dr_c]; relative order preserved.
	want := []string{"dr_a", "dr_c", "dr_a", "dr_c"}
	for h := uint64(0); h < 4; h++ {
		got, err := e.ExpectedProducer(h)
		if err != nil {
			t.Fatal(err)
		}
		if got != want[h] {
			t.Errorf("height %d: producer = %s, want %s", h, got, want[h])
		}
	}
	if e.IsActiveDelegate("dr_b") {
		t.Error("deactivated delegate reported active")
	}
}

func TestReactivateRestoresSlot(t *testing.T) {
	e := engineWith(t, "dr_a", "dr_b", "dr_c")
	if err := e.Deactivate("dr_b"); err != nil {
		t.Fatal(err)
	}
	if err := e.Reactivate("dr_b"); err != nil {
		t.Fatal(err)
	}
	got, err := e.ExpectedProducer(1)
	if err != nil {
		t.Fatal(err)
	}
	if got != "dr_b" {
		t.Errorf("reactivated delegate lost its slot: producer(1) = %s", got)
	}
}

func TestDeactivateUnknown(t *testing.T) {
	e := NewEngine()
	if err := e.Deactivate("ghost"); !errors.Is(err, ErrUnknownDelegate) {
		t.Errorf("expected ErrUnknownDelegate, got %v", err)
	}
}

func TestLaterRegistrationPreservesOrder(t *testing.T) {
	e := engineWith(t, "dr_a", "dr_b")
	if err := e.Register("adm_c", tx.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	roster := e.Delegates()
	ids := []string{"dr_a", "dr_b", "adm_c"}
	for i, want := range ids {
		if roster[i].UserID != want {
			t.Errorf("roster[%d] = %s, want %s", i, roster[i].UserID, want)
		}
	}
}

func TestRestore(t *testing.T) {
	snapshot := []Delegate{
		{UserID: "dr_a", Role: tx.RoleDoctor, Active: true},
		{UserID: "adm_b", Role: tx.RoleAdmin, Active: false},
	}
	e := NewEngine()
	if err := e.Restore(snapshot); err != nil {
		t.Fatal(err)
	}
	if e.ActiveCount() != 1 {
		t.Errorf("active count = %d, want 1", e.ActiveCount())
	}
	got, err := e.ExpectedProducer(5)
	if err != nil {
		t.Fatal(err)
	}
	if got != "dr_a" {
		t.Errorf("producer = %s, want dr_a", got)
	}
}

func TestRestoreRejectsPatientSnapshot(t *testing.T) {
	e := NewEngine()
	err := e.Restore([]Delegate{{UserID: "pat_x", Role: tx.RolePatient, Active: true}})
	if !errors.Is(err, ErrRoleIneligible) {
		t.Errorf("expected ErrRoleIneligible, got %v", err)
	}
}
