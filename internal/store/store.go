// Package store defines where batches and their results are kept.
package store

import (
	"context"
	"errors"
	"time"

	"hermitbench/internal/bench"
)

// ErrNotFound is returned when a batch id is unknown.
var ErrNotFound = errors.New("batch not found")

// BatchRepository persists batch progress and outputs. Implementations are safe for concurrent use.
type BatchRepository interface {
	Create(ctx context.Context, batch bench.Batch) error
	Get(ctx context.Context, id string) (bench.Batch, error)
	// List returns batches newest first.
	List(ctx context.Context) ([]bench.Batch, error)
	UpdateProgress(ctx context.Context, id string, completed int) error
	AppendResult(ctx context.Context, id string, result bench.RunResult) error
	SetSummaries(ctx context.Context, id string, summaries map[string]bench.ModelSummary) error
	SetPersonaCards(ctx context.Context, id string, cards map[string]bench.PersonaCard) error
	Complete(ctx context.Context, id string, at time.Time) error
	Fail(ctx context.Context, id string, message string, at time.Time) error
	Close() error
}
