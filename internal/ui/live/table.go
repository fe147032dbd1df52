package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

func defaultColumns() []table.Column {
	return columnsForWidth(120)
}

// columnsForWidth gives the preserved-text column whatever width is left.
func columnsForWidth(width int) []table.Column {
	fixed := []table.Column{
		{Title: "Model", Width: 28},
		{Title: "Run", Width: 4},
		{Title: "Status", Width: 12},
		{Title: "Turn", Width: 5},
		{Title: "Autonomy", Width: 9},
		{Title: "Mirror", Width: 7},
		{Title: "Elapsed", Width: 9},
	}
	used := 0
	for _, column := range fixed {
		used += column.Width + 2
	}
	preserved := max(width-used, 12)
	return append(fixed, table.Column{Title: "Preserved", Width: preserved})
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			row.Model,
			fmtInt(row.Repetition + 1),
			formatStatus(row, noColor),
			formatTurn(row.Turn),
			formatAutonomy(row.Autonomy),
			formatMirror(row.Mirror),
			formatRowDuration(row, now),
			formatPreserved(row),
		})
	}
	return rows
}
