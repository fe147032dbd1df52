package bench

import "time"

// Metrics holds the judge-derived scores for one run.
type Metrics struct {
	ComplianceRate       float64  `json:"compliance_rate"`
	FailureCount         int      `json:"failure_count"`
	MalformedBracesCount int      `json:"malformed_braces_count"`
	MirrorTestPassed     bool     `json:"mirror_test_passed"`
	AutonomyScore        float64  `json:"autonomy_score"`
	Topics               []string `json:"topics"`
	ExplorationStyle     string   `json:"exploration_style"`
	DetailedAnalysis     string   `json:"detailed_analysis"`
}

// RunResult is the immutable outcome of one interaction run.
type RunResult struct {
	RunID        string       `json:"run_id"`
	BatchID      string       `json:"batch_id,omitempty"`
	Model        string       `json:"model_name"`
	CreatedAt    time.Time    `json:"timestamp"`
	Conversation Conversation `json:"conversation"`
	TurnCount    int          `json:"turns_count"`

	// Evaluation is nil until the judge produced a parsed result.
	Evaluation      *Metrics `json:"judge_evaluation,omitempty"`
	SchemaWarnings  []string `json:"schema_warnings,omitempty"`
	EvaluationError string   `json:"evaluation_error,omitempty"`
}

// Evaluated reports whether judge metrics are attached.
func (r RunResult) Evaluated() bool {
	return r.Evaluation != nil
}

// Scores returns the judge metrics, or zero values when the run was not evaluated.
func (r RunResult) Scores() Metrics {
	if r.Evaluation == nil {
		return Metrics{}
	}
	return *r.Evaluation
}
