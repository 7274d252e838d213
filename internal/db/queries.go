package db

import (
	"database/sql"
	"fmt"

	"github.com/mendloop/mendloop/internal/remedy"
)

// RunEvent represents a row in the run_events table.
type RunEvent struct {
	ID        int
	PR        int
	Event     string
	Iteration int
	Detail    string
	Timestamp string
}

// RemediationRun represents a row in the remediation_runs table.
type RemediationRun struct {
	ID         int
	PR         int
	Iteration  int
	CheckName  string
	Category   string
	Strategy   string
	Outcome    string
	DurationMs int
	Detail     string
	Timestamp  string
}

// LogRunEvent inserts a run lifecycle event.
func (d *DB) LogRunEvent(pr int, event string, iteration int, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO run_events (pr, event, iteration, detail) VALUES (?, ?, ?, ?)`,
		pr, event, iteration, detail,
	)
	if err != nil {
		return fmt.Errorf("log run event: %w", err)
	}
	return nil
}

// LogRemediation inserts one remediation result.
func (d *DB) LogRemediation(pr, iteration int, r remedy.Result) error {
	_, err := d.conn.Exec(
		`INSERT INTO remediation_runs (pr, iteration, check_name, category, strategy, outcome, duration_ms, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pr, iteration, r.Check, r.Category.String(), r.Strategy, string(r.Outcome), r.DurationMs, r.Detail,
	)
	if err != nil {
		return fmt.Errorf("log remediation: %w", err)
	}
	return nil
}

// GetRunHistory returns all run events for a PR, oldest first.
func (d *DB) GetRunHistory(pr int) ([]RunEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, pr, event, iteration, detail, timestamp
		 FROM run_events WHERE pr = ? ORDER BY id ASC`,
		pr,
	)
	if err != nil {
		return nil, fmt.Errorf("get run history: %w", err)
	}
	defer rows.Close()

	var events []RunEvent
	for rows.Next() {
		var e RunEvent
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.PR, &e.Event, &e.Iteration, &detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		if detail.Valid {
			e.Detail = detail.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetRemediations returns all remediation results for a PR, oldest first.
func (d *DB) GetRemediations(pr int) ([]RemediationRun, error) {
	rows, err := d.conn.Query(
		`SELECT id, pr, iteration, check_name, category, strategy, outcome, duration_ms, detail, timestamp
		 FROM remediation_runs WHERE pr = ? ORDER BY id ASC`,
		pr,
	)
	if err != nil {
		return nil, fmt.Errorf("get remediations: %w", err)
	}
	defer rows.Close()

	var runs []RemediationRun
	for rows.Next() {
		var r RemediationRun
		var strategy, detail sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&r.ID, &r.PR, &r.Iteration, &r.CheckName, &r.Category, &strategy, &r.Outcome, &durationMs, &detail, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan remediation: %w", err)
		}
		if strategy.Valid {
			r.Strategy = strategy.String
		}
		if durationMs.Valid {
			r.DurationMs = int(durationMs.Int64)
		}
		if detail.Valid {
			r.Detail = detail.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CategoryOutcomeCounts returns outcome counts per category for a PR.
func (d *DB) CategoryOutcomeCounts(pr int) (map[string]map[string]int, error) {
	rows, err := d.conn.Query(
		`SELECT category, outcome, COUNT(*)
		 FROM remediation_runs WHERE pr = ? GROUP BY category, outcome`,
		pr,
	)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[string]int)
	for rows.Next() {
		var category, outcome string
		var n int
		if err := rows.Scan(&category, &outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		if counts[category] == nil {
			counts[category] = make(map[string]int)
		}
		counts[category][outcome] = n
	}
	return counts, rows.Err()
}
