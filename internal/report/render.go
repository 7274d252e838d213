package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mendloop/mendloop/internal/loop"
)

var (
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	dim     = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	passStyle   = lipgloss.NewStyle().Foreground(success).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(warning).Bold(true)

	separatorLine = dimStyle.Render(strings.Repeat("─", 56))
)

// statusStyle picks the color for a terminal status.
func statusStyle(status loop.Status) lipgloss.Style {
	switch status {
	case loop.StatusSucceeded:
		return passStyle
	case loop.StatusCapReached, loop.StatusTimedOut:
		return warnStyle
	default:
		return failStyle
	}
}

// Render formats the report for terminal output.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("PR #%d", r.PR)))
	b.WriteString(dimStyle.Render("  " + r.Repo))
	b.WriteString("\n")
	b.WriteString(separatorLine)
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s  %s\n",
		statusStyle(r.Status).Render(strings.ToUpper(string(r.Status))),
		r.Reason))
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d iteration(s) in %s\n",
		r.Iterations, (time.Duration(r.ElapsedMs) * time.Millisecond).Round(time.Second))))

	if len(r.Categories) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Remediations"))
		b.WriteString("\n")
		for _, c := range r.Categories {
			b.WriteString(fmt.Sprintf("  %-12s applied %d  skipped %d  limit %d  errored %d\n",
				c.Category, c.Applied, c.Skipped, c.AttemptLimit, c.Errored))
		}
	}

	if len(r.Unresolved) > 0 {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("Unresolved"))
		b.WriteString("\n")
		for _, u := range r.Unresolved {
			line := fmt.Sprintf("  ✗ %s [%s]", u.Check, u.Category)
			if u.Detail != "" {
				line += dimStyle.Render(" " + u.Detail)
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}
