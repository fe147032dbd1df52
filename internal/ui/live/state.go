package live

import "time"

// TaskStatus is the display status of one model repetition.
type TaskStatus string

const (
	TaskRunning     TaskStatus = "running"
	TaskEvaluating  TaskStatus = "evaluating"
	TaskDone        TaskStatus = "done"
	TaskUnevaluated TaskStatus = "unevaluated"
	TaskFailed      TaskStatus = "failed"
)

// TaskRow tracks one model repetition.
type TaskRow struct {
	Model      string
	Repetition int
	RunID      string
	Status     TaskStatus
	Turn       int
	Preserved  string
	Autonomy   *float64
	Mirror     *bool
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StatusCounts aggregates task status totals.
type StatusCounts struct {
	Running     int
	Done        int
	Unevaluated int
	Failed      int
}

// State holds the live UI state for a batch.
type State struct {
	BatchID   string
	Total     int
	Completed int
	Finished  bool
	Status    string
	StartedAt time.Time
	LastEvent string
	Rows      []TaskRow
	Counts    StatusCounts
}
