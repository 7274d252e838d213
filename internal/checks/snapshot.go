package checks

// RawFailure is a single failing check as reported by the status source,
// before classification.
type RawFailure struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
}

// CheckSnapshot is a point-in-time read of all checks for a target.
// A snapshot is never retried or merged; each poll produces a fresh one.
type CheckSnapshot struct {
	AllPassed bool         `json:"all_passed"`
	Passed    []string     `json:"passed,omitempty"`
	Failed    []RawFailure `json:"failed,omitempty"`
	Pending   []string     `json:"pending,omitempty"`
}

// Settled reports whether every check has finished running.
func (s *CheckSnapshot) Settled() bool {
	return len(s.Pending) == 0
}
