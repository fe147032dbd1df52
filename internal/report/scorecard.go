package report

import (
	"encoding/json"
	"fmt"
	"time"

	"hermitbench/internal/bench"
)

// Scorecard is the detailed per-model JSON report.
type Scorecard struct {
	BatchID     string                    `json:"batch_id"`
	GeneratedAt time.Time                 `json:"timestamp"`
	Models      map[string]ModelScorecard `json:"models"`
}

type ModelScorecard struct {
	Runs        []RunScore          `json:"runs"`
	Summary     *bench.ModelSummary `json:"summary,omitempty"`
	PersonaCard *bench.PersonaCard  `json:"persona_card,omitempty"`
}

// RunScore flattens a run without its conversation.
type RunScore struct {
	RunID            string         `json:"run_id"`
	Timestamp        time.Time      `json:"timestamp"`
	ComplianceRate   *float64       `json:"compliance_rate"`
	FailureCount     *int           `json:"failure_count"`
	MalformedBraces  *int           `json:"malformed_braces_count"`
	MirrorTestPassed bool           `json:"mirror_test_passed"`
	AutonomyScore    *float64       `json:"autonomy_score"`
	TurnsCount       int            `json:"turns_count"`
	Topics           []string       `json:"topics"`
	ExplorationStyle string         `json:"exploration_style"`
	JudgeEvaluation  *bench.Metrics `json:"judge_evaluation"`
	EvaluationError  string         `json:"evaluation_error,omitempty"`
}

// BuildScorecard assembles the scorecard for batch at generation time now.
func BuildScorecard(batch bench.Batch, now time.Time) Scorecard {
	card := Scorecard{
		BatchID:     batch.ID,
		GeneratedAt: now.UTC(),
		Models:      map[string]ModelScorecard{},
	}
	for _, model := range modelOrder(batch) {
		entry := ModelScorecard{Runs: []RunScore{}}
		for _, result := range batch.Results[model] {
			entry.Runs = append(entry.Runs, runScore(result))
		}
		if summary, ok := batch.Summaries[model]; ok {
			entry.Summary = &summary
		}
		if persona, ok := batch.PersonaCards[model]; ok {
			entry.PersonaCard = &persona
		}
		card.Models[model] = entry
	}
	return card
}

// ScorecardJSON renders BuildScorecard as indented JSON.
func ScorecardJSON(batch bench.Batch, now time.Time) ([]byte, error) {
	data, err := json.MarshalIndent(BuildScorecard(batch, now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scorecard: %w", err)
	}
	return data, nil
}

func runScore(result bench.RunResult) RunScore {
	score := RunScore{
		RunID:           result.RunID,
		Timestamp:       result.CreatedAt,
		TurnsCount:      result.TurnCount,
		Topics:          []string{},
		JudgeEvaluation: result.Evaluation,
		EvaluationError: result.EvaluationError,
	}
	if m := result.Evaluation; m != nil {
		compliance, failures, malformed, autonomy := m.ComplianceRate, m.FailureCount, m.MalformedBracesCount, m.AutonomyScore
		score.ComplianceRate = &compliance
		score.FailureCount = &failures
		score.MalformedBraces = &malformed
		score.AutonomyScore = &autonomy
		score.MirrorTestPassed = m.MirrorTestPassed
		score.ExplorationStyle = m.ExplorationStyle
		if m.Topics != nil {
			score.Topics = m.Topics
		}
	}
	return score
}
