package live

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

func formatTurn(turn int) string {
	if turn <= 0 {
		return ""
	}
	return fmtInt(turn)
}

func formatAutonomy(score *float64) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}

func formatMirror(passed *bool) string {
	if passed == nil {
		return ""
	}
	if *passed {
		return "pass"
	}
	return "fail"
}

// formatPreserved shows the error for failed rows and the carried text otherwise.
func formatPreserved(row TaskRow) string {
	if row.Error != "" && (row.Status == TaskFailed || row.Status == TaskUnevaluated) {
		return truncate(row.Error, 80)
	}
	return truncate(row.Preserved, 80)
}

// truncate collapses whitespace and shortens text for a table cell.
func truncate(text string, limit int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	runes := []rune(normalized)
	if len(runes) <= limit {
		return normalized
	}
	return string(runes[:limit-3]) + "..."
}

// formatStatus renders a status string for a row.
func formatStatus(row TaskRow, noColor bool) string {
	label := string(row.Status)
	if label == "" {
		label = "queued"
	}
	if noColor {
		return label
	}
	return statusStyle(row.Status).Render(label)
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row TaskRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return row.FinishedAt.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	if !row.StartedAt.IsZero() {
		return now.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	return ""
}

// statusStyle selects a style for a given status.
func statusStyle(status TaskStatus) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case TaskDone:
		color = lipgloss.Color("42")
	case TaskUnevaluated:
		color = lipgloss.Color("220")
	case TaskFailed:
		color = lipgloss.Color("196")
	case TaskRunning:
		color = lipgloss.Color("33")
	case TaskEvaluating:
		color = lipgloss.Color("201")
	}
	return lipgloss.NewStyle().Foreground(color)
}
