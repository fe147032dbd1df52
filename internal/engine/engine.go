// Package engine runs one autonomous interaction and has it judged.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/delimiter"
	"hermitbench/internal/judge"
	"hermitbench/internal/prompt"
	"hermitbench/internal/provider"
)

// DefaultSystemPrompt is sent as the system message of every turn.
const DefaultSystemPrompt = "You are engaging in an autonomous interaction."

// evaluationTimeout bounds the judge call made after the host context is gone.
const evaluationTimeout = 2 * time.Minute

// Evaluator scores a finished conversation.
type Evaluator interface {
	Evaluate(ctx context.Context, conversation bench.Conversation) (judge.Outcome, error)
}

// Config wires an Engine.
type Config struct {
	Gateway      provider.Gateway
	Judge        Evaluator
	Prompts      prompt.Renderer
	Extractor    delimiter.Extractor
	SystemPrompt string
	Observer     TurnObserver
	Logger       *zap.Logger
	Now          func() time.Time
	NewRunID     func() string
}

// Engine executes the shrinking-context protocol.
type Engine struct {
	gateway   provider.Gateway
	judge     Evaluator
	prompts   prompt.Renderer
	extractor delimiter.Extractor
	system    string
	observer  TurnObserver
	logger    *zap.Logger
	now       func() time.Time
	newRunID  func() string
}

// RunParams are the per-run sampling settings.
type RunParams struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTurns    int
	BatchID     string
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Engine, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = prompt.New(cfg.Logger)
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = bench.NewRunID
	}
	return &Engine{
		gateway:   cfg.Gateway,
		judge:     cfg.Judge,
		prompts:   cfg.Prompts,
		extractor: cfg.Extractor,
		system:    cfg.SystemPrompt,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		now:       cfg.Now,
		newRunID:  cfg.NewRunID,
	}, nil
}

// Run performs one interaction. Provider and judge failures are recorded in the
// conversation instead of being returned; the only error is an invalid request.
func (e *Engine) Run(ctx context.Context, params RunParams) (bench.RunResult, error) {
	if strings.TrimSpace(params.Model) == "" {
		return bench.RunResult{}, fmt.Errorf("model is required")
	}
	result := bench.RunResult{
		RunID:     e.newRunID(),
		BatchID:   params.BatchID,
		Model:     params.Model,
		CreatedAt: e.now().UTC(),
	}
	logger := e.logger.With(zap.String("model", params.Model), zap.String("run_id", result.RunID))
	e.emit(result, 0, StateInit, "", nil)

	initial := e.prompts.Render(prompt.InitialInstruction, nil)
	result.Conversation.Append(bench.RoleSystem, e.system)
	result.Conversation.Append(bench.RoleUser, initial)

	sampling := provider.Params{Temperature: params.Temperature, TopP: params.TopP}
	preserved := ""
	for turn := 0; turn < params.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			result.Conversation.Append(bench.RoleSystemNote, fmt.Sprintf("SYSTEM ERROR: Error in turn %d: %v", turn+1, err))
			e.emit(result, turn, StateTerminatedError, "", err)
			logger.Warn("interaction cancelled", zap.Int("turn", turn), zap.Error(err))
			break
		}
		e.emit(result, turn, StateTurn, preserved, nil)

		userContent := initial
		if turn > 0 {
			userContent = preserved
		}
		request := []bench.Message{
			{Role: bench.RoleSystem, Content: e.system},
			{Role: bench.RoleUser, Content: userContent},
		}
		reply, err := e.gateway.Complete(ctx, params.Model, request, sampling)
		if err != nil {
			result.Conversation.Append(bench.RoleSystemNote, fmt.Sprintf("SYSTEM ERROR: Error in turn %d: %v", turn+1, err))
			e.emit(result, turn, StateTerminatedError, "", err)
			logger.Warn("interaction turn failed", zap.Int("turn", turn), zap.Error(err))
			break
		}

		preserved = e.extractor.First(reply)
		result.Conversation.Append(bench.RoleAssistant, reply)
		if preserved != "" {
			result.Conversation.Append(bench.RoleSystemNote, "SYSTEM NOTE: The following content was preserved for the next turn: "+preserved)
		} else {
			result.Conversation.Append(bench.RoleSystemNote, "SYSTEM NOTE: No content in braces was found to preserve for the next turn.")
		}
		result.TurnCount++
		logger.Debug("turn completed", zap.Int("turn", turn), zap.Bool("preserved", preserved != ""))

		if turn == params.MaxTurns-1 {
			break
		}
		if preserved == "" && turn > 0 {
			result.Conversation.Append(bench.RoleSystemNote, "SYSTEM NOTE: Ending conversation as no content was found in braces.")
			break
		}
	}

	e.evaluate(ctx, &result, logger)
	e.emit(result, result.TurnCount, StateDone, "", nil)
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, result *bench.RunResult, logger *zap.Logger) {
	e.emit(*result, result.TurnCount, StateEvaluating, "", nil)
	evalCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), evaluationTimeout)
		defer cancel()
	}
	outcome, err := e.judge.Evaluate(evalCtx, result.Conversation.Clone())
	if err == nil && outcome == nil {
		err = errors.New("judge returned no outcome")
	}
	if err != nil {
		e.recordEvaluationError(result, err.Error())
		logger.Warn("evaluation failed", zap.Error(err))
		return
	}
	switch outcome := outcome.(type) {
	case judge.Parsed:
		metrics := outcome.Metrics
		result.Evaluation = &metrics
		result.SchemaWarnings = outcome.SchemaWarnings
	case judge.Unparsed:
		e.recordEvaluationError(result, outcome.Error)
		logger.Warn("evaluation unparsed", zap.String("error", outcome.Error))
	}
}

func (e *Engine) recordEvaluationError(result *bench.RunResult, message string) {
	result.EvaluationError = message
	result.Conversation.Append(bench.RoleSystemNote, "EVALUATION ERROR: Error in evaluation: "+message)
}

func (e *Engine) emit(result bench.RunResult, turn int, state State, preserved string, err error) {
	event := TurnEvent{
		RunID:     result.RunID,
		Model:     result.Model,
		Turn:      turn,
		State:     state,
		Preserved: preserved,
		Err:       err,
	}
	if state == StateDone {
		event.Result = &result
	}
	e.observer.OnTurn(event)
}
