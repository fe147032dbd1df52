package bench

import "time"

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchError     BatchStatus = "error"
)

// BatchConfig snapshots the parameters a batch was started with.
type BatchConfig struct {
	Models       []string `json:"models"`
	RunsPerModel int      `json:"num_runs_per_model"`
	Temperature  float64  `json:"temperature"`
	TopP         float64  `json:"top_p"`
	MaxTurns     int      `json:"max_turns"`
	TaskDelayMs  int      `json:"task_delay_ms"`
	PersonaCards bool     `json:"persona_cards,omitempty"`
}

// TotalTasks returns the number of runs the batch schedules.
func (c BatchConfig) TotalTasks() int {
	if c.RunsPerModel <= 0 {
		return 0
	}
	return len(c.Models) * c.RunsPerModel
}

// Batch is one batch execution with its accumulated outputs.
type Batch struct {
	ID             string                  `json:"batch_id"`
	Status         BatchStatus             `json:"status"`
	TotalTasks     int                     `json:"total_tasks"`
	CompletedTasks int                     `json:"completed_tasks"`
	Config         BatchConfig             `json:"config"`
	Results        map[string][]RunResult  `json:"results,omitempty"`
	Summaries      map[string]ModelSummary `json:"summaries,omitempty"`
	PersonaCards   map[string]PersonaCard  `json:"persona_cards,omitempty"`
	Error          string                  `json:"error,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
}

// NewBatch returns a running batch for the given configuration.
func NewBatch(id string, cfg BatchConfig, now time.Time) Batch {
	results := make(map[string][]RunResult, len(cfg.Models))
	for _, model := range cfg.Models {
		results[model] = []RunResult{}
	}
	return Batch{
		ID:           id,
		Status:       BatchRunning,
		TotalTasks:   cfg.TotalTasks(),
		Config:       cfg,
		Results:      results,
		Summaries:    map[string]ModelSummary{},
		PersonaCards: map[string]PersonaCard{},
		CreatedAt:    now.UTC(),
	}
}

// Done reports whether the batch reached a terminal status.
func (b Batch) Done() bool {
	return b.Status == BatchCompleted || b.Status == BatchError
}

// RunCount returns the number of recorded runs across all models.
func (b Batch) RunCount() int {
	total := 0
	for _, results := range b.Results {
		total += len(results)
	}
	return total
}
