package flow

import (
	"errors"
	"testing"
)

func TestTransition_SubmitNameAdvancesOnce(t *testing.T) {
	names := []string{"Alice", "  Bob  ", "\tChen\n", "María José"}
	for _, raw := range names {
		next, changed, err := Transition(Initial(), SubmitName{Name: raw})
		if err != nil {
			t.Fatalf("%q: unexpected error %v", raw, err)
		}
		if !changed || next.Stage != StageEnvelope {
			t.Fatalf("%q: expected envelope stage, got %+v changed=%v", raw, next, changed)
		}
		want := map[string]string{"Alice": "Alice", "  Bob  ": "Bob", "\tChen\n": "Chen", "María José": "María José"}[raw]
		if next.RecipientName != want {
			t.Fatalf("expected recipient %q, got %q", want, next.RecipientName)
		}

		again, changed, err := Transition(next, SubmitName{Name: "Mallory"})
		if err != nil || changed {
			t.Fatalf("second name submit should be a no-op, got changed=%v err=%v", changed, err)
		}
		if again != next {
			t.Fatalf("recipient name must stay frozen, got %+v", again)
		}
	}
}

func TestTransition_EmptyNameRejected(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		next, changed, err := Transition(Initial(), SubmitName{Name: raw})
		if !errors.Is(err, ErrEmptyName) {
			t.Fatalf("%q: expected ErrEmptyName, got %v", raw, err)
		}
		if changed || next != Initial() {
			t.Fatalf("%q: state must be unchanged, got %+v", raw, next)
		}
	}
}

func TestTransition_OpenIsIdempotent(t *testing.T) {
	envelope := State{Stage: StageEnvelope, RecipientName: "Alice"}

	letter, changed, err := Transition(envelope, OpenEnvelope{})
	if err != nil || !changed {
		t.Fatalf("expected open to advance, changed=%v err=%v", changed, err)
	}
	if letter.Stage != StageLetter || letter.RecipientName != "Alice" {
		t.Fatalf("unexpected letter state %+v", letter)
	}

	again, changed, err := Transition(letter, OpenEnvelope{})
	if err != nil || changed || again != letter {
		t.Fatalf("open in letter must be a no-op, got %+v changed=%v err=%v", again, changed, err)
	}
}

func TestTransition_NoSkipping(t *testing.T) {
	next, changed, err := Transition(Initial(), OpenEnvelope{})
	if err != nil || changed || next.Stage != StageName {
		t.Fatalf("open from name must be a no-op, got %+v changed=%v err=%v", next, changed, err)
	}

	next, changed, _ = Transition(Initial(), nil)
	if changed || next != Initial() {
		t.Fatalf("nil event must be a no-op")
	}
}

func TestState_CanLeaveMessage(t *testing.T) {
	cases := map[Stage]bool{
		StageName:     false,
		StageEnvelope: false,
		StageLetter:   true,
	}
	for stage, want := range cases {
		if got := (State{Stage: stage}).CanLeaveMessage(); got != want {
			t.Fatalf("stage %s: expected %v, got %v", stage, want, got)
		}
	}
}

func TestStage_Valid(t *testing.T) {
	if !StageLetter.Valid() || Stage("opened").Valid() {
		t.Fatalf("unexpected stage validity")
	}
}
