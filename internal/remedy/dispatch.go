package remedy

import (
	"context"
	"sync"
	"time"

	"github.com/mendloop/mendloop/internal/checks"
)

// Outcome describes what the dispatcher did for one classified failure.
type Outcome string

const (
	// OutcomeApplied means the strategy ran and reported success.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means no strategy is configured for the category.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeAttemptLimit means the category's attempt counter was already
	// at its cap; no strategy was invoked and the counter is untouched.
	OutcomeAttemptLimit Outcome = "attempt_limit_exceeded"
	// OutcomeErrored means the strategy ran and failed.
	OutcomeErrored Outcome = "errored"
)

// Result records one dispatch decision for one failure.
type Result struct {
	Check      string          `json:"check"`
	Category   checks.Category `json:"category"`
	Strategy   string          `json:"strategy,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	Detail     string          `json:"detail,omitempty"`
	DurationMs int             `json:"duration_ms,omitempty"`
}

// Counters tracks remediation attempts against per-category caps for one
// run. By default all failures of a category share one counter; per-failure
// mode gives each distinct check name its own counter. Counters are owned
// by a single run and safe for the dispatcher's category goroutines.
type Counters struct {
	mu         sync.Mutex
	limits     map[checks.Category]int
	byCategory map[checks.Category]int
	byFailure  map[string]int
	perFailure bool
}

// NewCounters creates Counters with the given per-category limits. A
// category missing from limits is uncapped.
func NewCounters(limits map[checks.Category]int, perFailure bool) *Counters {
	return &Counters{
		limits:     limits,
		byCategory: make(map[checks.Category]int),
		byFailure:  make(map[string]int),
		perFailure: perFailure,
	}
}

// Exhausted reports whether the counter for this failure is at its cap.
func (c *Counters) Exhausted(f checks.ClassifiedFailure) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	limit, capped := c.limits[f.Category]
	if !capped {
		return false
	}
	return c.count(f) >= limit
}

// Increment advances the counter for this failure by one attempt.
func (c *Counters) Increment(f checks.ClassifiedFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.perFailure {
		c.byFailure[f.Name]++
		return
	}
	c.byCategory[f.Category]++
}

// Count returns the attempts recorded for this failure's counter.
func (c *Counters) Count(f checks.ClassifiedFailure) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count(f)
}

func (c *Counters) count(f checks.ClassifiedFailure) int {
	if c.perFailure {
		return c.byFailure[f.Name]
	}
	return c.byCategory[f.Category]
}

// Dispatcher routes classified failures to their category strategies.
type Dispatcher struct {
	strategies map[checks.Category]Strategy
	parallel   bool
}

// NewDispatcher creates a Dispatcher over a category→strategy table,
// resolved once at configuration time.
func NewDispatcher(strategies map[checks.Category]Strategy, parallel bool) *Dispatcher {
	return &Dispatcher{strategies: strategies, parallel: parallel}
}

// Dispatch applies strategies to the failures, which must already be in
// priority order. Results come back in the same order as the input.
//
// In sequential mode failures are handled strictly one at a time. In
// parallel mode each category gets its own goroutine; failures within a
// category stay serialized so the shared attempt counter never races.
func (d *Dispatcher) Dispatch(ctx context.Context, failures []checks.ClassifiedFailure, counters *Counters) []Result {
	results := make([]Result, len(failures))

	if !d.parallel {
		for i, f := range failures {
			results[i] = d.dispatchOne(ctx, f, counters)
		}
		return results
	}

	// Group indexes by category, preserving per-category order.
	groups := make(map[checks.Category][]int)
	for i, f := range failures {
		groups[f.Category] = append(groups[f.Category], i)
	}

	var wg sync.WaitGroup
	for _, idxs := range groups {
		wg.Add(1)
		go func(idxs []int) {
			defer wg.Done()
			for _, i := range idxs {
				results[i] = d.dispatchOne(ctx, failures[i], counters)
			}
		}(idxs)
	}
	wg.Wait()

	return results
}

// dispatchOne handles a single failure: skip if no strategy, refuse if the
// attempt counter is exhausted, otherwise count the attempt and invoke.
func (d *Dispatcher) dispatchOne(ctx context.Context, f checks.ClassifiedFailure, counters *Counters) Result {
	res := Result{Check: f.Name, Category: f.Category}

	strategy, ok := d.strategies[f.Category]
	if !ok {
		res.Outcome = OutcomeSkipped
		res.Detail = "no strategy configured for category"
		return res
	}
	res.Strategy = strategy.Name()

	if counters.Exhausted(f) {
		res.Outcome = OutcomeAttemptLimit
		return res
	}
	counters.Increment(f)

	start := time.Now()
	err := strategy.Apply(ctx, f)
	res.DurationMs = int(time.Since(start).Milliseconds())

	if err != nil {
		res.Outcome = OutcomeErrored
		res.Detail = err.Error()
		return res
	}
	res.Outcome = OutcomeApplied
	return res
}
