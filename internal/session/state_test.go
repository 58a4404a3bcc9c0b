package session

import "testing"

func TestStateTransitions(t *testing.T) {
	var s State
	if s.IsRunning() || s.IsStopRequested() || s.Label() != LabelStart {
		t.Fatal("zero State should be idle")
	}
	if s.requestStop() {
		t.Fatal("requestStop on idle state succeeded")
	}
	if s.IsStopRequested() {
		t.Fatal("stop requested while not running")
	}

	if !s.markRunning() {
		t.Fatal("markRunning on idle state failed")
	}
	if s.markRunning() {
		t.Fatal("markRunning twice succeeded")
	}
	if s.Label() != LabelStop {
		t.Fatalf("Label = %q", s.Label())
	}

	if !s.requestStop() || s.requestStop() {
		t.Fatal("requestStop must succeed exactly once")
	}
	if s.Label() != LabelStopping {
		t.Fatalf("Label = %q", s.Label())
	}

	s.clear()
	if s.IsRunning() || s.IsStopRequested() {
		t.Fatal("clear must reset both flags")
	}
}

func TestStateStartReservation(t *testing.T) {
	var s State
	if !s.tryStart() {
		t.Fatal("tryStart on idle state failed")
	}
	if s.tryStart() {
		t.Fatal("second tryStart succeeded while starting")
	}
	if s.IsRunning() {
		t.Fatal("reservation must not report running")
	}
	s.abortStart()
	if !s.tryStart() {
		t.Fatal("tryStart after abortStart failed")
	}
	if !s.markRunning() {
		t.Fatal("markRunning after reservation failed")
	}
	if s.tryStart() {
		t.Fatal("tryStart succeeded while running")
	}
	s.clear()
	if !s.tryStart() {
		t.Fatal("tryStart after clear failed")
	}
}
