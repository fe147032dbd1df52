package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"hermitbench/internal/bench"
)

var resultsHeader = []string{
	"Row", "Model Name", "Run", "Compliance Rate", "Failures",
	"Malformed Braces", "Mirror Test", "Autonomy Score",
	"Turns", "Topics", "Exploration Style", "Date",
}

var summaryHeader = []string{
	"Model Name", "Total Runs", "Avg. Compliance Rate (%)",
	"Avg. Failures", "Avg. Malformed Braces",
	"Mirror Test Pass Rate (%)", "Avg. Autonomy Score",
}

// ResultsCSV renders one row per run. Unevaluated runs show N/A for judge scores.
func ResultsCSV(batch bench.Batch) ([]byte, error) {
	rows := [][]string{resultsHeader}
	row := 1
	for _, model := range modelOrder(batch) {
		for i, result := range batch.Results[model] {
			record := []string{strconv.Itoa(row), result.Model, strconv.Itoa(i + 1)}
			if m := result.Evaluation; m != nil {
				record = append(record,
					percent(m.ComplianceRate),
					strconv.Itoa(m.FailureCount),
					strconv.Itoa(m.MalformedBracesCount),
					passFail(m.MirrorTestPassed),
					oneDecimal(m.AutonomyScore),
				)
			} else {
				record = append(record, notAvailable, notAvailable, notAvailable, passFail(false), notAvailable)
			}
			scores := result.Scores()
			record = append(record,
				strconv.Itoa(result.TurnCount),
				joinTopics(scores.Topics),
				orNA(scores.ExplorationStyle),
				formatDate(result.CreatedAt),
			)
			rows = append(rows, record)
			row++
		}
	}
	return writeCSV(rows)
}

// SummaryCSV renders one row per model summary.
func SummaryCSV(batch bench.Batch) ([]byte, error) {
	rows := [][]string{summaryHeader}
	for _, model := range modelOrder(batch) {
		summary, ok := batch.Summaries[model]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			summary.Model,
			strconv.Itoa(summary.TotalRuns),
			percent(summary.AvgComplianceRate),
			twoDecimals(summary.AvgFailures),
			twoDecimals(summary.AvgMalformedBraces),
			fmt.Sprintf("%.1f%%", summary.MirrorTestPassRate),
			oneDecimal(summary.AvgAutonomyScore),
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
