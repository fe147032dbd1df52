package runner

import "hermitbench/internal/bench"

// Observer receives batch lifecycle events for UI or logging.
type Observer interface {
	// OnBatchStart signals the start of a batch.
	OnBatchStart(batchID string, total int)
	// OnTaskStart signals that a run is about to start.
	OnTaskStart(model string, repetition int)
	// OnTaskEnd signals a run finished; err is set when the task was skipped.
	OnTaskEnd(model string, repetition int, result *bench.RunResult, err error)
	// OnBatchEnd signals batch completion.
	OnBatchEnd(batch bench.Batch)
}

type noopObserver struct{}

func (noopObserver) OnBatchStart(string, int) {}
func (noopObserver) OnTaskStart(string, int) {}
func (noopObserver) OnTaskEnd(string, int, *bench.RunResult, error) {}
func (noopObserver) OnBatchEnd(bench.Batch) {}
