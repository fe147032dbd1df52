package bench

import (
	"errors"
	"fmt"
)

// ErrContract marks a caller violating an operation precondition.
var ErrContract = errors.New("contract violation")

// ModelSummary aggregates the runs of one model.
type ModelSummary struct {
	Model              string  `json:"model_name"`
	TotalRuns          int     `json:"total_runs"`
	AvgComplianceRate  float64 `json:"avg_compliance_rate"`
	AvgFailures        float64 `json:"avg_failures"`
	AvgMalformedBraces float64 `json:"avg_malformed_braces"`
	MirrorTestPassRate float64 `json:"mirror_test_pass_rate"`
	AvgAutonomyScore   float64 `json:"avg_autonomy_score"`
	ThematicSynthesis  string  `json:"thematic_synthesis,omitempty"`
}

// Summarize computes the statistical part of a model summary.
// Missing judge metrics count as zero. The mirror pass rate is a percentage.
func Summarize(results []RunResult) (ModelSummary, error) {
	if len(results) == 0 {
		return ModelSummary{}, fmt.Errorf("summarize: no results: %w", ErrContract)
	}
	var compliance, failures, malformed, autonomy float64
	passed := 0
	for _, result := range results {
		scores := result.Scores()
		compliance += scores.ComplianceRate
		failures += float64(scores.FailureCount)
		malformed += float64(scores.MalformedBracesCount)
		autonomy += scores.AutonomyScore
		if scores.MirrorTestPassed {
			passed++
		}
	}
	n := float64(len(results))
	return ModelSummary{
		Model:              results[0].Model,
		TotalRuns:          len(results),
		AvgComplianceRate:  compliance / n,
		AvgFailures:        failures / n,
		AvgMalformedBraces: malformed / n,
		MirrorTestPassRate: float64(passed) / n * 100,
		AvgAutonomyScore:   autonomy / n,
	}, nil
}
