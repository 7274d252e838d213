// Package report summarizes a finished remediation run.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mendloop/mendloop/internal/checks"
	"github.com/mendloop/mendloop/internal/loop"
	"github.com/mendloop/mendloop/internal/remedy"
)

// ErrRunning is returned when a report is requested for a run that has not
// reached a terminal status.
var ErrRunning = errors.New("run is still in progress")

// CategoryStats counts remediation outcomes for one failure category.
type CategoryStats struct {
	Category     string `json:"category"`
	Applied      int    `json:"applied"`
	Skipped      int    `json:"skipped"`
	AttemptLimit int    `json:"attempt_limit_exceeded"`
	Errored      int    `json:"errored"`
}

// Unresolved is a failure still present in the final pass.
type Unresolved struct {
	Check    string `json:"check"`
	Category string `json:"category"`
	Detail   string `json:"detail,omitempty"`
}

// Report is the final summary of one remediation run.
type Report struct {
	PR         int             `json:"pr"`
	Repo       string          `json:"repo"`
	Status     loop.Status     `json:"status"`
	Reason     string          `json:"reason"`
	Iterations int             `json:"iterations"`
	ElapsedMs  int64           `json:"elapsed_ms"`
	Categories []CategoryStats `json:"categories,omitempty"`
	Unresolved []Unresolved    `json:"unresolved,omitempty"`
	History    []loop.Record   `json:"history"`
}

// Generate builds a report from a terminal run state. Reporting a running
// state returns ErrRunning.
func Generate(state *loop.State) (*Report, error) {
	if state == nil {
		return nil, fmt.Errorf("nil run state")
	}
	if !state.Terminal() {
		return nil, ErrRunning
	}

	r := &Report{
		PR:         state.PR,
		Repo:       state.Repo,
		Status:     state.Status,
		Reason:     reason(state),
		Iterations: state.Iterations,
		ElapsedMs:  state.Elapsed(time.Now()).Milliseconds(),
		Categories: categoryStats(state),
		History:    state.History,
	}

	if state.Status != loop.StatusSucceeded {
		if last := state.LastRecord(); last != nil {
			for _, f := range last.Failures {
				r.Unresolved = append(r.Unresolved, Unresolved{
					Check:    f.Name,
					Category: f.Category.String(),
					Detail:   f.Detail,
				})
			}
		}
	}
	return r, nil
}

// reason phrases the terminal status for a human reader.
func reason(state *loop.State) string {
	switch state.Status {
	case loop.StatusSucceeded:
		return "all checks passed"
	case loop.StatusCapReached:
		return fmt.Sprintf("iteration cap (%d) reached with checks still failing", state.MaxIterations)
	case loop.StatusTimedOut:
		return "deadline exceeded before checks passed"
	case loop.StatusFailed:
		return "run could not be started"
	default:
		return string(state.Status)
	}
}

// categoryStats folds every remediation result in the history into
// per-category outcome counts, ordered by category priority.
func categoryStats(state *loop.State) []CategoryStats {
	byCategory := make(map[checks.Category]*CategoryStats)
	for _, rec := range state.History {
		for _, res := range rec.Remediations {
			stats, ok := byCategory[res.Category]
			if !ok {
				stats = &CategoryStats{Category: res.Category.String()}
				byCategory[res.Category] = stats
			}
			switch res.Outcome {
			case remedy.OutcomeApplied:
				stats.Applied++
			case remedy.OutcomeSkipped:
				stats.Skipped++
			case remedy.OutcomeAttemptLimit:
				stats.AttemptLimit++
			case remedy.OutcomeErrored:
				stats.Errored++
			}
		}
	}

	var out []CategoryStats
	for _, cat := range checks.Categories() {
		if stats, ok := byCategory[cat]; ok {
			out = append(out, *stats)
		}
	}
	return out
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
