// Package loop drives a pull request through repeated poll → classify →
// remediate passes until its checks pass, the iteration cap is hit, or the
// deadline expires.
package loop

import (
	"fmt"
	"time"

	"github.com/mendloop/mendloop/internal/checks"
	"github.com/mendloop/mendloop/internal/remedy"
)

// Status is the lifecycle state of a remediation run. Every status other
// than Running is terminal.
type Status string

const (
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed_out"
	StatusCapReached Status = "cap_reached"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s != StatusRunning && s != ""
}

// Record is the immutable snapshot of one completed pass.
type Record struct {
	Number       int                        `json:"number"`
	StartedAt    time.Time                  `json:"started_at"`
	DurationMs   int                        `json:"duration_ms"`
	PollError    string                     `json:"poll_error,omitempty"`
	Failures     []checks.ClassifiedFailure `json:"failures,omitempty"`
	Remediations []remedy.Result            `json:"remediations,omitempty"`
	ChecksAfter  checks.CheckSnapshot       `json:"checks_after"`
}

// State owns the full lifecycle of one remediation run. It is mutated only
// by the Controller; once Status leaves Running the state is read-only.
type State struct {
	PR            int       `json:"pr"`
	Repo          string    `json:"repo"`
	MaxIterations int       `json:"max_iterations"`
	StartedAt     time.Time `json:"started_at"`
	Deadline      time.Time `json:"deadline"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
	Iterations    int       `json:"iterations"`
	Status        Status    `json:"status"`
	History       []Record  `json:"history"`
}

// NewState creates a Running state for one run. timeout sets the deadline
// relative to now.
func NewState(repo string, pr, maxIterations int, timeout time.Duration, now time.Time) *State {
	return &State{
		PR:            pr,
		Repo:          repo,
		MaxIterations: maxIterations,
		StartedAt:     now,
		Deadline:      now.Add(timeout),
		Status:        StatusRunning,
		History:       []Record{},
	}
}

// Terminal reports whether the run has finished.
func (s *State) Terminal() bool {
	return s.Status.Terminal()
}

// Append records a completed pass. History is append-only and strictly
// ordered: the record number must be the next iteration.
func (s *State) Append(rec Record) error {
	if s.Terminal() {
		return fmt.Errorf("run for PR %d is already %s", s.PR, s.Status)
	}
	if rec.Number != s.Iterations+1 {
		return fmt.Errorf("record number %d out of order (expected %d)", rec.Number, s.Iterations+1)
	}
	s.Iterations++
	s.History = append(s.History, rec)
	return nil
}

// Finish moves the run to a terminal status. Finishing twice, or finishing
// with Running, is a programmer error.
func (s *State) Finish(status Status, now time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("cannot finish run with non-terminal status %q", status)
	}
	if s.Terminal() {
		return fmt.Errorf("run for PR %d is already %s", s.PR, s.Status)
	}
	s.Status = status
	s.FinishedAt = now
	return nil
}

// Elapsed is the wall-clock duration of the run so far, or total once
// finished.
func (s *State) Elapsed(now time.Time) time.Duration {
	if s.Terminal() && !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// LastRecord returns the most recent pass record, or nil before the first
// pass completes.
func (s *State) LastRecord() *Record {
	if len(s.History) == 0 {
		return nil
	}
	return &s.History[len(s.History)-1]
}
