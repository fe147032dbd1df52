package live

import (
	"time"

	"hermitbench/internal/bench"
	"hermitbench/internal/engine"
)

// EventKind identifies the type of UI event.
type EventKind int

const (
	EventBatchStart EventKind = iota
	EventTaskStart
	EventTurn
	EventTaskEnd
	EventProgress
	EventBatchEnd
)

// Event is a UI update emitted by the batch runner or the engine.
type Event struct {
	Kind       EventKind
	BatchID    string
	Total      int
	Completed  int
	Model      string
	Repetition int
	Turn       engine.TurnEvent
	Result     *bench.RunResult
	Err        error
	Batch      *bench.Batch
	EmittedAt  time.Time
}
