package live

import (
	"strconv"

	"hermitbench/internal/engine"
)

// Reduce applies an event to the UI state.
func Reduce(state State, event Event) State {
	switch event.Kind {
	case EventBatchStart:
		state.BatchID = event.BatchID
		state.Total = event.Total
		state.Status = "running"
		if state.StartedAt.IsZero() {
			state.StartedAt = event.EmittedAt
		}
		state.LastEvent = "Batch " + event.BatchID + " started with " + fmtInt(event.Total) + " tasks"
	case EventTaskStart:
		index := ensureRow(&state, event.Model, event.Repetition)
		row := &state.Rows[index]
		row.Status = TaskRunning
		row.StartedAt = event.EmittedAt
		state.LastEvent = taskLabel(event.Model, event.Repetition) + " started"
	case EventTurn:
		applyTurnEvent(&state, event.Turn)
	case EventTaskEnd:
		applyTaskEnd(&state, event)
	case EventProgress:
		if event.Completed > state.Completed {
			state.Completed = event.Completed
		}
		if event.Total > 0 {
			state.Total = event.Total
		}
	case EventBatchEnd:
		state.Finished = true
		if event.Batch != nil {
			state.Status = string(event.Batch.Status)
			state.Completed = event.Batch.CompletedTasks
		}
		state.LastEvent = "Batch " + state.BatchID + " " + state.Status
	}
	recount(&state)
	return state
}

// ensureRow returns the row index for a task, appending one when missing.
func ensureRow(state *State, model string, repetition int) int {
	for i := range state.Rows {
		if state.Rows[i].Model == model && state.Rows[i].Repetition == repetition {
			return i
		}
	}
	state.Rows = append(state.Rows, TaskRow{Model: model, Repetition: repetition})
	return len(state.Rows) - 1
}

// activeRow finds the newest unfinished row for a model.
func activeRow(state *State, model string) int {
	for i := len(state.Rows) - 1; i >= 0; i-- {
		row := state.Rows[i]
		if row.Model == model && (row.Status == TaskRunning || row.Status == TaskEvaluating) {
			return i
		}
	}
	return -1
}

func applyTurnEvent(state *State, turn engine.TurnEvent) {
	index := activeRow(state, turn.Model)
	if index < 0 {
		return
	}
	row := &state.Rows[index]
	if turn.RunID != "" {
		row.RunID = turn.RunID
	}
	switch turn.State {
	case engine.StateTurn:
		row.Turn = turn.Turn
		row.Preserved = turn.Preserved
		state.LastEvent = taskLabel(row.Model, row.Repetition) + " turn " + fmtInt(turn.Turn)
	case engine.StateTerminatedError:
		if turn.Err != nil {
			row.Error = turn.Err.Error()
		}
		state.LastEvent = taskLabel(row.Model, row.Repetition) + " stopped early"
	case engine.StateEvaluating:
		row.Status = TaskEvaluating
		state.LastEvent = taskLabel(row.Model, row.Repetition) + " evaluating"
	}
}

func applyTaskEnd(state *State, event Event) {
	index := ensureRow(state, event.Model, event.Repetition)
	row := &state.Rows[index]
	row.FinishedAt = event.EmittedAt
	label := taskLabel(event.Model, event.Repetition)
	if event.Err != nil {
		row.Status = TaskFailed
		row.Error = event.Err.Error()
		state.LastEvent = label + " failed: " + row.Error
		return
	}
	result := event.Result
	if result == nil {
		row.Status = TaskFailed
		state.LastEvent = label + " failed"
		return
	}
	row.RunID = result.RunID
	row.Turn = result.TurnCount
	if result.Evaluation == nil {
		row.Status = TaskUnevaluated
		row.Error = result.EvaluationError
		state.LastEvent = label + " finished without evaluation"
		return
	}
	row.Status = TaskDone
	autonomy := result.Evaluation.AutonomyScore
	mirror := result.Evaluation.MirrorTestPassed
	row.Autonomy = &autonomy
	row.Mirror = &mirror
	state.LastEvent = label + " done"
}

// recount recalculates the status totals.
func recount(state *State) {
	counts := StatusCounts{}
	for _, row := range state.Rows {
		switch row.Status {
		case TaskRunning, TaskEvaluating:
			counts.Running++
		case TaskDone:
			counts.Done++
		case TaskUnevaluated:
			counts.Unevaluated++
		case TaskFailed:
			counts.Failed++
		}
	}
	state.Counts = counts
}

func taskLabel(model string, repetition int) string {
	return model + " #" + strconv.Itoa(repetition+1)
}
