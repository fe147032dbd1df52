package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hermitbench/internal/store"
)

// ProgressReporter is told how many tasks have finished after every successful task.
type ProgressReporter interface {
	OnProgress(completed, total int)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(completed, total int)

func (f ProgressFunc) OnProgress(completed, total int) {
	f(completed, total)
}

// Progress is a single progress update.
type Progress struct {
	Completed int
	Total     int
}

// ChannelProgress forwards updates to a channel without blocking; updates are dropped when it is full.
type ChannelProgress chan<- Progress

func (c ChannelProgress) OnProgress(completed, total int) {
	select {
	case c <- Progress{Completed: completed, Total: total}:
	default:
	}
}

// MultiProgress fans updates out to every non-nil reporter.
func MultiProgress(reporters ...ProgressReporter) ProgressReporter {
	kept := make(multiProgress, 0, len(reporters))
	for _, reporter := range reporters {
		if reporter != nil {
			kept = append(kept, reporter)
		}
	}
	return kept
}

type multiProgress []ProgressReporter

func (m multiProgress) OnProgress(completed, total int) {
	for _, reporter := range m {
		reporter.OnProgress(completed, total)
	}
}

// repositoryProgress persists completed counts for one batch.
type repositoryProgress struct {
	ctx    context.Context
	repo   store.BatchRepository
	id     string
	logger *zap.Logger
}

// RepositoryProgress records progress of batch id in repo.
func RepositoryProgress(ctx context.Context, repo store.BatchRepository, id string, logger *zap.Logger) ProgressReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &repositoryProgress{ctx: ctx, repo: repo, id: id, logger: logger}
}

func (r *repositoryProgress) OnProgress(completed, total int) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), 10*time.Second)
	defer cancel()
	if err := r.repo.UpdateProgress(ctx, r.id, completed); err != nil {
		r.logger.Warn("persist batch progress", zap.String("batch_id", r.id), zap.Int("completed", completed), zap.Int("total", total), zap.Error(err))
	}
}
