package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
)

const persistTimeout = 10 * time.Second

// Start registers a batch and executes it in the background. The batch lives
// as long as ctx; callers pass a server-scoped context, not a request context.
func (o *Orchestrator) Start(ctx context.Context, req BatchRequest) (string, error) {
	if o.repo == nil {
		return "", errNoRepository
	}
	batch, err := o.register(ctx, req)
	if err != nil {
		return "", err
	}
	req.BatchID = batch.ID
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(ctx, req, nil)
	}()
	return batch.ID, nil
}

// Execute registers and runs a batch synchronously, returning its final state.
func (o *Orchestrator) Execute(ctx context.Context, req BatchRequest, progress ProgressReporter) (bench.Batch, error) {
	if o.repo == nil {
		return bench.Batch{}, errNoRepository
	}
	batch, err := o.register(ctx, req)
	if err != nil {
		return bench.Batch{}, err
	}
	req.BatchID = batch.ID
	return o.execute(ctx, req, progress), nil
}

// Wait blocks until every batch started with Start has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) register(ctx context.Context, req BatchRequest) (bench.Batch, error) {
	if err := req.Validate(); err != nil {
		return bench.Batch{}, err
	}
	id := req.BatchID
	if id == "" {
		generated, err := o.newBatchID()
		if err != nil {
			return bench.Batch{}, fmt.Errorf("generate batch id: %w", err)
		}
		id = generated
	}
	batch := bench.NewBatch(id, req.Config(), o.now())
	if err := o.repo.Create(ctx, batch); err != nil {
		return bench.Batch{}, fmt.Errorf("create batch: %w", err)
	}
	return batch, nil
}

// execute drives one registered batch to a terminal status.
func (o *Orchestrator) execute(ctx context.Context, req BatchRequest, progress ProgressReporter) (final bench.Batch) {
	logger := o.logger.With(zap.String("batch_id", req.BatchID))
	total := len(req.Models) * req.RunsPerModel
	logger.Info("batch started", zap.Strings("models", req.Models), zap.Int("total_tasks", total))
	o.observer.OnBatchStart(req.BatchID, total)

	defer func() {
		if recovered := recover(); recovered != nil {
			o.fail(ctx, req.BatchID, fmt.Errorf("batch panicked: %v", recovered), logger)
		}
		final = o.snapshot(ctx, req.BatchID, logger)
		o.observer.OnBatchEnd(final)
	}()

	persistErr := func(err error) {
		if err != nil {
			logger.Warn("persist run result", zap.Error(err))
		}
	}
	reporter := MultiProgress(RepositoryProgress(ctx, o.repo, req.BatchID, logger), progress)
	results := o.runBatch(ctx, req, reporter, func(result bench.RunResult) {
		persistCtx, cancel := o.persistContext(ctx)
		defer cancel()
		persistErr(o.repo.AppendResult(persistCtx, req.BatchID, result))
	})
	if err := ctx.Err(); err != nil {
		o.fail(ctx, req.BatchID, err, logger)
		return final
	}

	summaries := o.SummarizeAll(ctx, results)
	persistCtx, cancel := o.persistContext(ctx)
	defer cancel()
	if err := o.repo.SetSummaries(persistCtx, req.BatchID, summaries); err != nil {
		o.fail(ctx, req.BatchID, fmt.Errorf("store summaries: %w", err), logger)
		return final
	}
	if req.PersonaCards {
		cards := o.BuildPersonaCards(ctx, results)
		if err := o.repo.SetPersonaCards(persistCtx, req.BatchID, cards); err != nil {
			o.fail(ctx, req.BatchID, fmt.Errorf("store persona cards: %w", err), logger)
			return final
		}
	}
	if err := o.repo.Complete(persistCtx, req.BatchID, o.now().UTC()); err != nil {
		logger.Error("complete batch", zap.Error(err))
		return final
	}
	logger.Info("batch completed", zap.Int("summaries", len(summaries)))
	return final
}

func (o *Orchestrator) fail(ctx context.Context, id string, cause error, logger *zap.Logger) {
	logger.Error("batch failed", zap.Error(cause))
	persistCtx, cancel := o.persistContext(ctx)
	defer cancel()
	if err := o.repo.Fail(persistCtx, id, cause.Error(), o.now().UTC()); err != nil {
		logger.Error("record batch failure", zap.Error(err))
	}
}

func (o *Orchestrator) snapshot(ctx context.Context, id string, logger *zap.Logger) bench.Batch {
	persistCtx, cancel := o.persistContext(ctx)
	defer cancel()
	batch, err := o.repo.Get(persistCtx, id)
	if err != nil {
		logger.Warn("load final batch", zap.Error(err))
		return bench.Batch{ID: id}
	}
	return batch
}

// persistContext outlives cancellation of ctx so terminal states are still written.
func (o *Orchestrator) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}
