package loop

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mendloop/mendloop/internal/backoff"
	"github.com/mendloop/mendloop/internal/checks"
	"github.com/mendloop/mendloop/internal/remedy"
)

// Poller fetches the current check status for a pull request. A poll is a
// single point-in-time read; retries are the controller's job.
type Poller interface {
	Poll(ctx context.Context, pr int) (*checks.CheckSnapshot, error)
}

// Dispatcher applies remediation strategies to classified failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, failures []checks.ClassifiedFailure, counters *remedy.Counters) []remedy.Result
}

// Saver persists the run state after each pass so a terminal run can be
// reported after the process exits.
type Saver interface {
	Save(state *State) error
}

// EventLogger records run events and remediation results for history.
type EventLogger interface {
	LogRunEvent(pr int, event string, iteration int, detail string) error
	LogRemediation(pr, iteration int, r remedy.Result) error
}

// Controller is the state machine tying poller, classifier, dispatcher,
// and backoff together. Passes are strictly sequential; within a pass the
// dispatcher may fan out per category.
type Controller struct {
	poller     Poller
	classifier *checks.Classifier
	dispatcher Dispatcher
	counters   *remedy.Counters
	backoff    backoff.Config

	saver    Saver       // optional
	events   EventLogger // optional
	progress io.Writer   // optional

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a Controller.
func NewController(poller Poller, classifier *checks.Classifier, dispatcher Dispatcher, counters *remedy.Counters, bo backoff.Config) *Controller {
	return &Controller{
		poller:     poller,
		classifier: classifier,
		dispatcher: dispatcher,
		counters:   counters,
		backoff:    bo,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// SetSaver sets the state persistence sink.
func (c *Controller) SetSaver(s Saver) {
	c.saver = s
}

// SetEvents sets the event log sink.
func (c *Controller) SetEvents(e EventLogger) {
	c.events = e
}

// SetProgress sets the writer for live progress output (e.g. os.Stderr).
func (c *Controller) SetProgress(w io.Writer) {
	c.progress = w
}

// SetClock overrides time sources (for testing).
func (c *Controller) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	c.now = now
	c.sleep = sleep
}

// logf prints a progress line if a progress writer is configured.
func (c *Controller) logf(format string, args ...interface{}) {
	if c.progress != nil {
		fmt.Fprintf(c.progress, "  → "+format+"\n", args...)
	}
}

// event logs a run event, best-effort.
func (c *Controller) event(state *State, event string, iteration int, detail string) {
	if c.events != nil {
		_ = c.events.LogRunEvent(state.PR, event, iteration, detail)
	}
}

// save persists the state, best-effort. Persistence failures never abort a
// run; the in-memory state remains authoritative.
func (c *Controller) save(state *State) {
	if c.saver != nil {
		_ = c.saver.Save(state)
	}
}

// Run drives the state machine to a terminal status. It returns an error
// only for setup problems (nil/terminal state, invalid target); cap and
// timeout exhaustion are normal terminations reported via state.Status.
func (c *Controller) Run(ctx context.Context, state *State) error {
	if state == nil {
		return fmt.Errorf("nil run state")
	}
	if state.Terminal() {
		return fmt.Errorf("run for PR %d is already %s", state.PR, state.Status)
	}
	if state.PR <= 0 {
		_ = state.Finish(StatusFailed, c.now())
		c.save(state)
		return fmt.Errorf("invalid PR number %d: must be positive", state.PR)
	}

	c.logf("PR #%d: starting remediation run (max %d iterations, deadline %s)",
		state.PR, state.MaxIterations, state.Deadline.Format(time.RFC3339))
	c.event(state, "run_started", 0, "")

	for {
		// Pass boundary: cancellation, deadline, then cap.
		now := c.now()
		if ctx.Err() != nil || now.After(state.Deadline) {
			return c.finish(state, StatusTimedOut)
		}
		if state.Iterations >= state.MaxIterations {
			return c.finish(state, StatusCapReached)
		}

		rec := Record{Number: state.Iterations + 1, StartedAt: now}
		c.logf("PR #%d: iteration %d/%d: polling checks", state.PR, rec.Number, state.MaxIterations)

		snap, err := c.poller.Poll(ctx, state.PR)
		if err != nil {
			// Transient poll failures consume an iteration and are retried
			// through the normal loop.
			c.logf("PR #%d: poll failed: %v", state.PR, err)
			rec.PollError = err.Error()
			rec.DurationMs = c.sinceMs(rec.StartedAt)
			if err := state.Append(rec); err != nil {
				return err
			}
			c.save(state)
			c.event(state, "poll_failed", rec.Number, rec.PollError)
			c.pause(ctx, state, rec.Number)
			continue
		}

		if snap.AllPassed {
			rec.ChecksAfter = *snap
			rec.DurationMs = c.sinceMs(rec.StartedAt)
			if err := state.Append(rec); err != nil {
				return err
			}
			c.logf("PR #%d: all %d checks passed", state.PR, len(snap.Passed))
			return c.finish(state, StatusSucceeded)
		}

		failures := c.classifier.Classify(snap.Failed)
		c.logf("PR #%d: %d failing, %d pending; dispatching remediations", state.PR, len(failures), len(snap.Pending))

		results := c.dispatcher.Dispatch(ctx, failures, c.counters)
		for _, r := range results {
			c.logf("PR #%d: %s [%s] → %s", state.PR, r.Check, r.Category, r.Outcome)
			if c.events != nil {
				_ = c.events.LogRemediation(state.PR, rec.Number, r)
			}
		}

		rec.Failures = failures
		rec.Remediations = results
		rec.ChecksAfter = *snap
		rec.DurationMs = c.sinceMs(rec.StartedAt)
		if err := state.Append(rec); err != nil {
			return err
		}
		c.save(state)
		c.event(state, "iteration_completed", rec.Number, fmt.Sprintf("failures=%d", len(failures)))

		c.pause(ctx, state, rec.Number)
	}
}

// finish moves the run to a terminal status and persists it.
func (c *Controller) finish(state *State, status Status) error {
	if err := state.Finish(status, c.now()); err != nil {
		return err
	}
	c.save(state)
	c.event(state, "run_finished", state.Iterations, string(status))
	c.logf("PR #%d: run finished: %s after %d iteration(s)", state.PR, status, state.Iterations)
	return nil
}

// pause applies the inter-pass backoff delay. No delay after the final
// pass; cancellation during the delay is picked up at the next boundary.
func (c *Controller) pause(ctx context.Context, state *State, iteration int) {
	if state.Iterations >= state.MaxIterations {
		return
	}
	d := c.backoff.NextDelay(iteration)
	if d <= 0 {
		return
	}
	c.logf("PR #%d: backing off %s before next iteration", state.PR, d)
	_ = c.sleep(ctx, d)
}

func (c *Controller) sinceMs(start time.Time) int {
	return int(c.now().Sub(start).Milliseconds())
}

// sleepContext sleeps for d or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
