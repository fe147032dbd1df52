// Package runner schedules interaction runs across models and aggregates their results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/engine"
	"hermitbench/internal/store"
)

// Interactor runs a single interaction.
type Interactor interface {
	Run(ctx context.Context, params engine.RunParams) (bench.RunResult, error)
}

// Judge produces the model-level judge outputs.
type Judge interface {
	SynthesizeThemes(ctx context.Context, results []bench.RunResult) (string, error)
	BuildPersonaCard(ctx context.Context, results []bench.RunResult) (bench.PersonaCard, error)
}

// Config wires an Orchestrator.
type Config struct {
	Interactor Interactor
	Judge      Judge
	Repository store.BatchRepository
	Observer   Observer
	Logger     *zap.Logger
	Sleep      func(ctx context.Context, d time.Duration) error
	Now        func() time.Time
	NewBatchID func() (string, error)
}

// Orchestrator runs batches sequentially and isolates per-task failures.
type Orchestrator struct {
	interactor Interactor
	judge      Judge
	repo       store.BatchRepository
	observer   Observer
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	newBatchID func() (string, error)

	wg sync.WaitGroup
}

// BatchRequest describes the tasks of one batch.
type BatchRequest struct {
	BatchID      string
	Models       []string
	RunsPerModel int
	Temperature  float64
	TopP         float64
	MaxTurns     int
	TaskDelay    time.Duration
	PersonaCards bool
}

// Validate reports requests no batch can be built from.
func (r BatchRequest) Validate() error {
	if len(r.Models) == 0 {
		return fmt.Errorf("at least one model is required: %w", bench.ErrContract)
	}
	for _, model := range r.Models {
		if model == "" {
			return fmt.Errorf("model names must not be empty: %w", bench.ErrContract)
		}
	}
	if r.RunsPerModel < 1 {
		return fmt.Errorf("runs per model must be at least 1: %w", bench.ErrContract)
	}
	if r.MaxTurns < 0 || r.TaskDelay < 0 {
		return fmt.Errorf("max turns and task delay must not be negative: %w", bench.ErrContract)
	}
	return nil
}

// Config snapshots the request for storage.
func (r BatchRequest) Config() bench.BatchConfig {
	return bench.BatchConfig{
		Models:       append([]string(nil), r.Models...),
		RunsPerModel: r.RunsPerModel,
		Temperature:  r.Temperature,
		TopP:         r.TopP,
		MaxTurns:     r.MaxTurns,
		TaskDelayMs:  int(r.TaskDelay / time.Millisecond),
		PersonaCards: r.PersonaCards,
	}
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Interactor == nil {
		return nil, fmt.Errorf("interactor is required")
	}
	if cfg.Judge == nil {
		return nil, fmt.Errorf("judge is required")
	}
	if cfg.Observer == nil {
		cfg.Observer = noopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewBatchID == nil {
		cfg.NewBatchID = bench.NewBatchID
	}
	return &Orchestrator{
		interactor: cfg.Interactor,
		judge:      cfg.Judge,
		repo:       cfg.Repository,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
		sleep:      cfg.Sleep,
		now:        cfg.Now,
		newBatchID: cfg.NewBatchID,
	}, nil
}

// RunBatch executes every model × repetition task in order. Failed tasks are
// logged and left out of the result; every model keeps a (possibly empty) entry.
func (o *Orchestrator) RunBatch(ctx context.Context, req BatchRequest, progress ProgressReporter) map[string][]bench.RunResult {
	return o.runBatch(ctx, req, progress, nil)
}

func (o *Orchestrator) runBatch(ctx context.Context, req BatchRequest, progress ProgressReporter, onResult func(bench.RunResult)) map[string][]bench.RunResult {
	results := make(map[string][]bench.RunResult, len(req.Models))
	for _, model := range req.Models {
		results[model] = []bench.RunResult{}
	}
	runs := req.RunsPerModel
	if runs < 0 {
		runs = 0
	}
	total := len(req.Models) * runs
	completed := 0
	task := 0
	for _, model := range req.Models {
		for repetition := 0; repetition < runs; repetition++ {
			task++
			if err := ctx.Err(); err != nil {
				o.logger.Warn("batch cancelled, not scheduling further tasks",
					zap.String("batch_id", req.BatchID), zap.Int("remaining", total-task+1), zap.Error(err))
				return results
			}
			o.observer.OnTaskStart(model, repetition)
			result, err := o.runTask(ctx, req, model)
			if err != nil {
				o.logger.Error("batch task failed",
					zap.String("model", model), zap.Int("run", repetition+1), zap.Error(err))
				o.observer.OnTaskEnd(model, repetition, nil, err)
				continue
			}
			results[model] = append(results[model], result)
			completed++
			o.observer.OnTaskEnd(model, repetition, &result, nil)
			if onResult != nil {
				onResult(result)
			}
			if progress != nil {
				progress.OnProgress(completed, total)
			}
			if req.TaskDelay > 0 && task < total {
				if err := o.sleep(ctx, req.TaskDelay); err != nil {
					o.logger.Warn("inter-task delay interrupted", zap.Error(err))
				}
			}
		}
	}
	return results
}

// runTask converts panics escaping the interactor into task errors.
func (o *Orchestrator) runTask(ctx context.Context, req BatchRequest, model string) (result bench.RunResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("task panicked: %v", recovered)
		}
	}()
	return o.interactor.Run(ctx, engine.RunParams{
		Model:       model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTurns:    req.MaxTurns,
		BatchID:     req.BatchID,
	})
}

// Summarize computes a model summary. Thematic synthesis is requested only for
// more than one run; a synthesis failure is recorded in its text.
func (o *Orchestrator) Summarize(ctx context.Context, results []bench.RunResult) (bench.ModelSummary, error) {
	summary, err := bench.Summarize(results)
	if err != nil {
		return bench.ModelSummary{}, err
	}
	if summary.TotalRuns > 1 {
		synthesis, err := o.judge.SynthesizeThemes(ctx, results)
		if err != nil {
			o.logger.Error("thematic synthesis failed", zap.String("model", summary.Model), zap.Error(err))
			synthesis = "Error generating thematic synthesis: " + err.Error()
		}
		summary.ThematicSynthesis = synthesis
	}
	return summary, nil
}

// SummarizeAll summarizes every model that has at least one run.
func (o *Orchestrator) SummarizeAll(ctx context.Context, resultsByModel map[string][]bench.RunResult) map[string]bench.ModelSummary {
	summaries := make(map[string]bench.ModelSummary, len(resultsByModel))
	for _, model := range sortedModels(resultsByModel) {
		results := resultsByModel[model]
		if len(results) == 0 {
			continue
		}
		summary, err := o.Summarize(ctx, results)
		if err != nil {
			o.logger.Error("summarize model", zap.String("model", model), zap.Error(err))
			continue
		}
		summaries[model] = summary
	}
	return summaries
}

// BuildPersonaCards profiles every model with runs. A failing model gets an error card.
func (o *Orchestrator) BuildPersonaCards(ctx context.Context, resultsByModel map[string][]bench.RunResult) map[string]bench.PersonaCard {
	cards := make(map[string]bench.PersonaCard, len(resultsByModel))
	for _, model := range sortedModels(resultsByModel) {
		results := resultsByModel[model]
		if len(results) == 0 {
			continue
		}
		card, err := o.buildPersonaCard(ctx, results)
		if err != nil {
			o.logger.Error("persona card failed", zap.String("model", model), zap.Error(err))
			card = bench.PersonaCard{Model: model, Error: err.Error()}
		}
		if card.Model == "" {
			card.Model = model
		}
		cards[model] = card
	}
	return cards
}

func (o *Orchestrator) buildPersonaCard(ctx context.Context, results []bench.RunResult) (card bench.PersonaCard, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("persona card panicked: %v", recovered)
		}
	}()
	return o.judge.BuildPersonaCard(ctx, results)
}

func sortedModels(resultsByModel map[string][]bench.RunResult) []string {
	models := make([]string, 0, len(resultsByModel))
	for model := range resultsByModel {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var errNoRepository = errors.New("batch repository is not configured")
