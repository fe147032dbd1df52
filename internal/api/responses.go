package api

import (
	"time"

	"hermitbench/internal/bench"
	"hermitbench/internal/provider"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type modelsResponse struct {
	Models []provider.ModelInfo `json:"models"`
}

// runResponse flattens the judge metrics next to the run.
type runResponse struct {
	RunID                string             `json:"run_id"`
	Model                string             `json:"model_name"`
	Timestamp            time.Time          `json:"timestamp"`
	Conversation         bench.Conversation `json:"conversation"`
	ComplianceRate       *float64           `json:"compliance_rate"`
	FailureCount         *int               `json:"failure_count"`
	MalformedBracesCount *int               `json:"malformed_braces_count"`
	MirrorTestPassed     *bool              `json:"mirror_test_passed"`
	AutonomyScore        *float64           `json:"autonomy_score"`
	TurnsCount           int                `json:"turns_count"`
	Topics               []string           `json:"topics"`
	ExplorationStyle     *string            `json:"exploration_style"`
	JudgeEvaluation      *bench.Metrics     `json:"judge_evaluation"`
	SchemaWarnings       []string           `json:"schema_warnings,omitempty"`
	EvaluationError      string             `json:"evaluation_error,omitempty"`
}

func newRunResponse(result bench.RunResult) runResponse {
	resp := runResponse{
		RunID:           result.RunID,
		Model:           result.Model,
		Timestamp:       result.CreatedAt,
		Conversation:    result.Conversation,
		TurnsCount:      result.TurnCount,
		Topics:          []string{},
		JudgeEvaluation: result.Evaluation,
		SchemaWarnings:  result.SchemaWarnings,
		EvaluationError: result.EvaluationError,
	}
	if m := result.Evaluation; m != nil {
		compliance, failures, malformed := m.ComplianceRate, m.FailureCount, m.MalformedBracesCount
		mirror, autonomy, style := m.MirrorTestPassed, m.AutonomyScore, m.ExplorationStyle
		resp.ComplianceRate = &compliance
		resp.FailureCount = &failures
		resp.MalformedBracesCount = &malformed
		resp.MirrorTestPassed = &mirror
		resp.AutonomyScore = &autonomy
		resp.ExplorationStyle = &style
		if m.Topics != nil {
			resp.Topics = m.Topics
		}
	}
	return resp
}

type batchStatusResponse struct {
	BatchID        string            `json:"batch_id"`
	Status         bench.BatchStatus `json:"status"`
	TotalTasks     int               `json:"total_tasks"`
	CompletedTasks int               `json:"completed_tasks"`
	Error          *string           `json:"error"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

func newBatchStatus(batch bench.Batch) batchStatusResponse {
	resp := batchStatusResponse{
		BatchID:        batch.ID,
		Status:         batch.Status,
		TotalTasks:     batch.TotalTasks,
		CompletedTasks: batch.CompletedTasks,
		CreatedAt:      batch.CreatedAt,
		CompletedAt:    batch.CompletedAt,
	}
	if batch.Error != "" {
		message := batch.Error
		resp.Error = &message
	}
	return resp
}

type resultsResponse struct {
	Results map[string][]runResponse `json:"results"`
}
