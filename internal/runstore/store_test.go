package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mendloop/mendloop/internal/loop"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	state := loop.NewState("octocat/hello-world", 42, 10, time.Hour, now)
	if err := state.Append(loop.Record{Number: 1, StartedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PR != 42 || got.Repo != "octocat/hello-world" {
		t.Errorf("unexpected identity: %+v", got)
	}
	if got.Iterations != 1 || len(got.History) != 1 {
		t.Errorf("history not round-tripped: %+v", got)
	}
	if got.Status != loop.StatusRunning {
		t.Errorf("expected running, got %s", got.Status)
	}
}

func TestSaveReplacesPrevious(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	state := loop.NewState("octocat/hello-world", 42, 10, time.Hour, now)
	if err := s.Save(state); err != nil {
		t.Fatal(err)
	}
	if err := state.Finish(loop.StatusSucceeded, now); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(state); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(42)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != loop.StatusSucceeded {
		t.Errorf("expected succeeded after resave, got %s", got.Status)
	}
}

func TestGetMissing(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(99)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestSaveRejectsBadState(t *testing.T) {
	s := testStore(t)
	if err := s.Save(nil); err == nil {
		t.Error("expected error for nil state")
	}
	if err := s.Save(&loop.State{PR: 0}); err == nil {
		t.Error("expected error for PR 0")
	}
}

func TestListAndDelete(t *testing.T) {
	s := testStore(t)
	now := time.Now()

	for _, pr := range []int{7, 42, 3} {
		if err := s.Save(loop.NewState("octocat/hello-world", pr, 10, time.Hour, now)); err != nil {
			t.Fatal(err)
		}
	}
	// Stray non-numeric directory is ignored.
	if err := os.MkdirAll(filepath.Join(s.BaseDir(), "junk"), 0o755); err != nil {
		t.Fatal(err)
	}

	prs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(prs) != 3 || prs[0] != 3 || prs[1] != 7 || prs[2] != 42 {
		t.Errorf("unexpected list: %v", prs)
	}

	if err := s.Delete(7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(7); err != nil {
		t.Fatalf("deleting a missing run must not error: %v", err)
	}

	prs, err = s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(prs) != 2 {
		t.Errorf("expected 2 runs after delete, got %v", prs)
	}
}

func TestNoPartialFilesLeftBehind(t *testing.T) {
	s := testStore(t)
	if err := s.Save(loop.NewState("octocat/hello-world", 42, 10, time.Hour, time.Now())); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Join(s.BaseDir(), "42"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "run.json" {
			t.Errorf("unexpected file in run dir: %s", e.Name())
		}
	}
}
