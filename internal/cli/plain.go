package cli

import (
	"fmt"
	"io"
	"sync"

	"hermitbench/internal/bench"
	"hermitbench/internal/engine"
	"hermitbench/internal/ui/live"
)

// plainObserver prints batch and turn events as text lines.
type plainObserver struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func (p *plainObserver) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *plainObserver) OnBatchStart(batchID string, total int) {
	p.printf("Batch %s started: %d tasks", batchID, total)
}

func (p *plainObserver) OnTaskStart(model string, repetition int) {
	p.printf("[%s #%d] started", model, repetition+1)
}

func (p *plainObserver) OnTurn(event engine.TurnEvent) {
	if !p.verbose {
		return
	}
	switch event.State {
	case engine.StateTurn:
		p.printf("[%s] turn %d preserved %q", event.Model, event.Turn, event.Preserved)
	case engine.StateTerminatedError:
		p.printf("[%s] turn %d ended the run: %v", event.Model, event.Turn, event.Err)
	case engine.StateEvaluating:
		p.printf("[%s] evaluating", event.Model)
	}
}

func (p *plainObserver) OnTaskEnd(model string, repetition int, result *bench.RunResult, err error) {
	switch {
	case err != nil:
		p.printf("[%s #%d] failed: %v", model, repetition+1, err)
	case result == nil:
		p.printf("[%s #%d] failed", model, repetition+1)
	case result.Evaluation == nil:
		p.printf("[%s #%d] %d turns, not evaluated: %s", model, repetition+1, result.TurnCount, result.EvaluationError)
	default:
		p.printf("[%s #%d] %d turns, autonomy %.1f, mirror test %s", model, repetition+1, result.TurnCount,
			result.Evaluation.AutonomyScore, passFail(result.Evaluation.MirrorTestPassed))
	}
}

func (p *plainObserver) OnProgress(completed, total int) {
	p.printf("Progress: %d/%d", completed, total)
}

func (p *plainObserver) OnBatchEnd(batch bench.Batch) {
	if batch.Error != "" {
		p.printf("Batch %s %s: %s", batch.ID, batch.Status, batch.Error)
		return
	}
	p.printf("Batch %s %s", batch.ID, batch.Status)
}

// batchObserver is what a batch command reports to.
type batchObserver interface {
	OnBatchStart(batchID string, total int)
	OnTaskStart(model string, repetition int)
	OnTaskEnd(model string, repetition int, result *bench.RunResult, err error)
	OnBatchEnd(batch bench.Batch)
	OnProgress(completed, total int)
	OnTurn(event engine.TurnEvent)
}

var (
	_ batchObserver = (*plainObserver)(nil)
	_ batchObserver = (*live.Controller)(nil)
)
