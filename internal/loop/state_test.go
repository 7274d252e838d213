package loop

import (
	"testing"
	"time"
)

func TestNewState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewState("octocat/hello-world", 42, 10, time.Hour, now)

	if s.Status != StatusRunning {
		t.Errorf("expected running, got %s", s.Status)
	}
	if s.Terminal() {
		t.Error("new state must not be terminal")
	}
	if !s.Deadline.Equal(now.Add(time.Hour)) {
		t.Errorf("expected deadline %s, got %s", now.Add(time.Hour), s.Deadline)
	}
	if s.Iterations != 0 || len(s.History) != 0 {
		t.Errorf("expected empty history, got %d/%d", s.Iterations, len(s.History))
	}
}

func TestState_AppendMonotonic(t *testing.T) {
	now := time.Now()
	s := NewState("octocat/hello-world", 42, 10, time.Hour, now)

	for n := 1; n <= 3; n++ {
		if err := s.Append(Record{Number: n, StartedAt: now}); err != nil {
			t.Fatalf("append %d: %v", n, err)
		}
	}
	if s.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", s.Iterations)
	}
	if len(s.History) != s.Iterations {
		t.Errorf("history length %d != iterations %d", len(s.History), s.Iterations)
	}
	for i, rec := range s.History {
		if rec.Number != i+1 {
			t.Errorf("record %d: expected number %d, got %d", i, i+1, rec.Number)
		}
	}

	// Out-of-order append is refused.
	if err := s.Append(Record{Number: 7}); err == nil {
		t.Error("expected error for out-of-order record")
	}
}

func TestState_FinishOnce(t *testing.T) {
	now := time.Now()
	s := NewState("octocat/hello-world", 42, 10, time.Hour, now)

	if err := s.Finish(StatusRunning, now); err == nil {
		t.Error("expected error finishing with running status")
	}

	if err := s.Finish(StatusSucceeded, now.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Terminal() {
		t.Error("expected terminal state")
	}
	if s.Elapsed(now.Add(time.Hour)) != time.Minute {
		t.Errorf("expected elapsed 1m, got %s", s.Elapsed(now.Add(time.Hour)))
	}

	// Terminal states are frozen.
	if err := s.Finish(StatusFailed, now); err == nil {
		t.Error("expected error finishing twice")
	}
	if err := s.Append(Record{Number: 1}); err == nil {
		t.Error("expected error appending to terminal state")
	}
}

func TestStatus_Terminal(t *testing.T) {
	if StatusRunning.Terminal() {
		t.Error("running must not be terminal")
	}
	for _, st := range []Status{StatusSucceeded, StatusFailed, StatusTimedOut, StatusCapReached} {
		if !st.Terminal() {
			t.Errorf("%s must be terminal", st)
		}
	}
}
