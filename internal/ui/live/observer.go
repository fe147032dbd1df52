package live

import (
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hermitbench/internal/bench"
	"hermitbench/internal/engine"
)

// Controller runs the live UI. It implements runner.Observer,
// runner.ProgressReporter and engine.TurnObserver.
type Controller struct {
	events    chan Event
	program   *tea.Program
	done      chan struct{}
	mu        sync.Mutex
	closed    bool
	now       func() time.Time
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		events:  events,
		program: program,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go func() {
		_, _ = program.Run()
		close(controller.done)
	}()
	return controller
}

// Close signals the UI to stop.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

// Wait blocks until the UI has exited.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

func (c *Controller) OnBatchStart(batchID string, total int) {
	c.send(Event{Kind: EventBatchStart, BatchID: batchID, Total: total})
}

func (c *Controller) OnTaskStart(model string, repetition int) {
	c.send(Event{Kind: EventTaskStart, Model: model, Repetition: repetition})
}

func (c *Controller) OnTurn(event engine.TurnEvent) {
	c.send(Event{Kind: EventTurn, Model: event.Model, Turn: event})
}

func (c *Controller) OnTaskEnd(model string, repetition int, result *bench.RunResult, err error) {
	c.send(Event{Kind: EventTaskEnd, Model: model, Repetition: repetition, Result: result, Err: err})
}

func (c *Controller) OnProgress(completed, total int) {
	c.send(Event{Kind: EventProgress, Completed: completed, Total: total})
}

// OnBatchEnd forwards the final batch and closes the UI.
func (c *Controller) OnBatchEnd(batch bench.Batch) {
	c.send(Event{Kind: EventBatchEnd, Batch: &batch})
	c.Close()
}

// send enqueues an event without blocking the caller.
// Sends after Close are dropped.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	event.EmittedAt = c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
	}
}
