// Package analytics computes aggregate statistics over the remediation
// event log.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// RunOutcome counts finished runs per terminal status.
type RunOutcome struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Pct    float64 `json:"pct"`
}

// QueryRunOutcomes returns how finished runs ended, most common first.
// run_finished events carry the terminal status in their detail column.
func QueryRunOutcomes(database DB, since string) ([]RunOutcome, error) {
	query := `
		SELECT detail, COUNT(*)
		FROM run_events
		WHERE event = 'run_finished'`
	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY detail`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []RunOutcome
	total := 0
	for rows.Next() {
		var o RunOutcome
		if err := rows.Scan(&o.Status, &o.Count); err != nil {
			return nil, fmt.Errorf("scan run outcome: %w", err)
		}
		total += o.Count
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range outcomes {
		outcomes[i].Pct = pct(outcomes[i].Count, total)
	}
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Count > outcomes[j].Count
	})
	return outcomes, nil
}

// CategoryEffectiveness summarizes remediation outcomes for one category.
type CategoryEffectiveness struct {
	Category     string  `json:"category"`
	Total        int     `json:"total"`
	Applied      int     `json:"applied"`
	Errored      int     `json:"errored"`
	Skipped      int     `json:"skipped"`
	AttemptLimit int     `json:"attempt_limit_exceeded"`
	AppliedPct   float64 `json:"applied_pct"`
}

// QueryCategoryEffectiveness returns per-category remediation outcome
// rates across all runs, highest volume first.
func QueryCategoryEffectiveness(database DB, since string) ([]CategoryEffectiveness, error) {
	query := `
		SELECT category,
			COUNT(*),
			SUM(CASE WHEN outcome = 'applied' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'errored' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'skipped' THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'attempt_limit_exceeded' THEN 1 ELSE 0 END)
		FROM remediation_runs`
	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY category ORDER BY COUNT(*) DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category effectiveness: %w", err)
	}
	defer rows.Close()

	var results []CategoryEffectiveness
	for rows.Next() {
		var c CategoryEffectiveness
		if err := rows.Scan(&c.Category, &c.Total, &c.Applied, &c.Errored, &c.Skipped, &c.AttemptLimit); err != nil {
			return nil, fmt.Errorf("scan category effectiveness: %w", err)
		}
		c.AppliedPct = pct(c.Applied, c.Total)
		results = append(results, c)
	}
	return results, rows.Err()
}

// StrategyDuration holds duration stats for one remediation strategy.
type StrategyDuration struct {
	Strategy string  `json:"strategy"`
	Count    int     `json:"count"`
	Avg      float64 `json:"avg_seconds"`
	P50      float64 `json:"p50_seconds"`
	P95      float64 `json:"p95_seconds"`
}

// QueryStrategyDurations returns average and percentile wall-clock
// durations per strategy, over remediations that actually ran.
func QueryStrategyDurations(database DB, since string) ([]StrategyDuration, error) {
	query := `
		SELECT strategy, duration_ms
		FROM remediation_runs
		WHERE strategy != '' AND outcome IN ('applied', 'errored')`
	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query strategy durations: %w", err)
	}
	defer rows.Close()

	byStrategy := make(map[string][]float64)
	for rows.Next() {
		var strategy string
		var durationMs sql.NullInt64
		if err := rows.Scan(&strategy, &durationMs); err != nil {
			return nil, fmt.Errorf("scan strategy duration: %w", err)
		}
		byStrategy[strategy] = append(byStrategy[strategy], float64(durationMs.Int64)/1000)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StrategyDuration
	for strategy, durations := range byStrategy {
		sort.Float64s(durations)
		results = append(results, StrategyDuration{
			Strategy: strategy,
			Count:    len(durations),
			Avg:      avg(durations),
			P50:      percentile(durations, 50),
			P95:      percentile(durations, 95),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})
	return results, nil
}

// IterationStats summarizes how many passes finished runs needed.
type IterationStats struct {
	Runs int     `json:"runs"`
	Avg  float64 `json:"avg_iterations"`
	P50  float64 `json:"p50_iterations"`
	P95  float64 `json:"p95_iterations"`
}

// QueryIterationStats returns iteration-count stats across finished runs.
func QueryIterationStats(database DB, since string) (*IterationStats, error) {
	query := `
		SELECT iteration
		FROM run_events
		WHERE event = 'run_finished'`
	args := []interface{}{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query iteration stats: %w", err)
	}
	defer rows.Close()

	var iterations []float64
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan iteration count: %w", err)
		}
		iterations = append(iterations, float64(n))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Float64s(iterations)
	return &IterationStats{
		Runs: len(iterations),
		Avg:  avg(iterations),
		P50:  percentile(iterations, 50),
		P95:  percentile(iterations, 95),
	}, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
