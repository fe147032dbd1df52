package engine

import "hermitbench/internal/bench"

// State is a step of the interaction state machine.
type State int

const (
	StateInit State = iota
	StateTurn
	StateEvaluating
	StateTerminatedError
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateTurn:
		return "turn"
	case StateEvaluating:
		return "evaluating"
	case StateTerminatedError:
		return "terminated_error"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// TurnEvent describes a state transition of one run.
type TurnEvent struct {
	RunID     string
	Model     string
	Turn      int
	State     State
	Preserved string
	Err       error
	// Result is set on the StateDone event.
	Result *bench.RunResult
}

// TurnObserver receives state transitions. Implementations must not block.
type TurnObserver interface {
	OnTurn(event TurnEvent)
}

// ObserverFunc adapts a function to TurnObserver.
type ObserverFunc func(event TurnEvent)

func (f ObserverFunc) OnTurn(event TurnEvent) {
	f(event)
}

type noopObserver struct{}

func (noopObserver) OnTurn(TurnEvent) {}
