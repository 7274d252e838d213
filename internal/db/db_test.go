package db

import (
	"path/filepath"
	"testing"

	"github.com/mendloop/mendloop/internal/checks"
	"github.com/mendloop/mendloop/internal/remedy"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := testDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestRunEvents(t *testing.T) {
	d := testDB(t)

	if err := d.LogRunEvent(42, "run_started", 0, ""); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := d.LogRunEvent(42, "iteration_completed", 1, "failures=2"); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := d.LogRunEvent(42, "run_finished", 3, "succeeded"); err != nil {
		t.Fatalf("log: %v", err)
	}
	// Other PRs do not leak into the history.
	if err := d.LogRunEvent(7, "run_started", 0, ""); err != nil {
		t.Fatalf("log: %v", err)
	}

	events, err := d.GetRunHistory(42)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event != "run_started" || events[2].Event != "run_finished" {
		t.Errorf("unexpected event order: %+v", events)
	}
	if events[1].Detail != "failures=2" {
		t.Errorf("expected detail, got %q", events[1].Detail)
	}
}

func TestLogRunEvent_RejectsUnknownEvent(t *testing.T) {
	d := testDB(t)
	if err := d.LogRunEvent(42, "bogus_event", 0, ""); err == nil {
		t.Error("expected CHECK constraint error for unknown event")
	}
}

func TestRemediations(t *testing.T) {
	d := testDB(t)

	results := []remedy.Result{
		{Check: "eslint", Category: checks.Lint, Strategy: "fix-lint", Outcome: remedy.OutcomeApplied, DurationMs: 1200},
		{Check: "test-suite", Category: checks.Test, Strategy: "fix-test", Outcome: remedy.OutcomeErrored, Detail: "exit status 1"},
		{Check: "codeql", Category: checks.Security, Outcome: remedy.OutcomeSkipped},
	}
	for i, r := range results {
		if err := d.LogRemediation(42, i+1, r); err != nil {
			t.Fatalf("log remediation %d: %v", i, err)
		}
	}

	runs, err := d.GetRemediations(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(runs))
	}
	if runs[0].Category != "lint" || runs[0].Outcome != "applied" || runs[0].DurationMs != 1200 {
		t.Errorf("unexpected first row: %+v", runs[0])
	}
	if runs[1].Detail != "exit status 1" {
		t.Errorf("expected detail on errored row, got %q", runs[1].Detail)
	}

	counts, err := d.CategoryOutcomeCounts(42)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["lint"]["applied"] != 1 || counts["security"]["skipped"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)
	if err := d.LogRunEvent(42, "run_started", 0, ""); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	events, err := d.GetRunHistory(42)
	if err != nil {
		t.Fatalf("history after reset: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected empty history after reset, got %d", len(events))
	}
}
