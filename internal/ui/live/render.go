package live

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the batch header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "Batch " + state.BatchID
	if state.Status != "" {
		line += " | " + state.Status
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + now.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderProgress renders a completed/total bar.
func renderProgress(state State, noColor bool) string {
	const width = 30
	filled := 0
	if state.Total > 0 {
		filled = min(width, state.Completed*width/state.Total)
	}
	bar := "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "] " +
		fmtInt(state.Completed) + "/" + fmtInt(state.Total)
	return stylize(bar, noColor, lipgloss.Color("42"))
}

// renderSummary renders the status counts line.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	line := "Running: " + fmtInt(counts.Running) +
		" Done: " + fmtInt(counts.Done) +
		" Unevaluated: " + fmtInt(counts.Unevaluated) +
		" Failed: " + fmtInt(counts.Failed)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
