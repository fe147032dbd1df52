package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"hermitbench/internal/bench"
)

const (
	notAvailable = "N/A"
	dateLayout   = "2006-01-02 15:04:05"
)

// percent renders a 0..1 ratio as "50.0%".
func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func oneDecimal(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}

func twoDecimals(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func passFail(passed bool) string {
	if passed {
		return "Pass"
	}
	return "Fail"
}

func orNA(value string) string {
	if value == "" {
		return notAvailable
	}
	return value
}

func joinTopics(topics []string) string {
	if len(topics) == 0 {
		return notAvailable
	}
	return strings.Join(topics, ", ")
}

func formatDate(at time.Time) string {
	if at.IsZero() {
		return notAvailable
	}
	return at.UTC().Format(dateLayout)
}

// modelOrder lists the configured models first, then any other models with
// results or summaries in name order.
func modelOrder(batch bench.Batch) []string {
	seen := map[string]bool{}
	var order []string
	for _, model := range batch.Config.Models {
		if !seen[model] {
			seen[model] = true
			order = append(order, model)
		}
	}
	var extra []string
	add := func(model string) {
		if !seen[model] {
			seen[model] = true
			extra = append(extra, model)
		}
	}
	for model := range batch.Results {
		add(model)
	}
	for model := range batch.Summaries {
		add(model)
	}
	sort.Strings(extra)
	return append(order, extra...)
}
