// Package memory keeps batches in process memory, optionally mirrored to a JSON file.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hermitbench/internal/bench"
	"hermitbench/internal/store"
)

// Repository stores batches keyed by id.
type Repository struct {
	mu      sync.RWMutex
	batches map[string]bench.Batch
	path    string
}

var _ store.BatchRepository = (*Repository)(nil)

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{batches: map[string]bench.Batch{}}
}

// Open creates a repository persisted to path, loading any existing state.
func Open(path string) (*Repository, error) {
	r := New()
	if path == "" {
		return r, nil
	}
	if err := r.Load(path); err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	r.path = path
	return r, nil
}

func (r *Repository) Create(_ context.Context, batch bench.Batch) error {
	if batch.ID == "" {
		return fmt.Errorf("batch id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.batches[batch.ID]; exists {
		return fmt.Errorf("batch %s already exists", batch.ID)
	}
	r.batches[batch.ID] = cloneBatch(batch)
	if err := r.persistLocked(); err != nil {
		delete(r.batches, batch.ID)
		return err
	}
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (bench.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	batch, ok := r.batches[id]
	if !ok {
		return bench.Batch{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return cloneBatch(batch), nil
}

func (r *Repository) List(_ context.Context) ([]bench.Batch, error) {
	r.mu.RLock()
	snapshot := make([]bench.Batch, 0, len(r.batches))
	for _, batch := range r.batches {
		snapshot = append(snapshot, cloneBatch(batch))
	}
	r.mu.RUnlock()
	sortNewestFirst(snapshot)
	return snapshot, nil
}

func (r *Repository) UpdateProgress(_ context.Context, id string, completed int) error {
	return r.update(id, func(batch *bench.Batch) {
		if completed > batch.CompletedTasks {
			batch.CompletedTasks = completed
		}
	})
}

func (r *Repository) AppendResult(_ context.Context, id string, result bench.RunResult) error {
	return r.update(id, func(batch *bench.Batch) {
		if batch.Results == nil {
			batch.Results = map[string][]bench.RunResult{}
		}
		batch.Results[result.Model] = append(batch.Results[result.Model], result)
	})
}

func (r *Repository) SetSummaries(_ context.Context, id string, summaries map[string]bench.ModelSummary) error {
	return r.update(id, func(batch *bench.Batch) {
		batch.Summaries = make(map[string]bench.ModelSummary, len(summaries))
		for model, summary := range summaries {
			batch.Summaries[model] = summary
		}
	})
}

func (r *Repository) SetPersonaCards(_ context.Context, id string, cards map[string]bench.PersonaCard) error {
	return r.update(id, func(batch *bench.Batch) {
		batch.PersonaCards = make(map[string]bench.PersonaCard, len(cards))
		for model, card := range cards {
			batch.PersonaCards[model] = card
		}
	})
}

func (r *Repository) Complete(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(batch *bench.Batch) {
		batch.Status = bench.BatchCompleted
		batch.CompletedAt = &at
	})
}

func (r *Repository) Fail(_ context.Context, id string, message string, at time.Time) error {
	return r.update(id, func(batch *bench.Batch) {
		batch.Status = bench.BatchError
		batch.Error = message
		batch.CompletedAt = &at
	})
}

// Close flushes state to disk when a path is configured.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked()
}

// update applies mutate to a copy and keeps it only once the file write succeeds.
func (r *Repository) update(id string, mutate func(batch *bench.Batch)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.batches[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	next := cloneBatch(current)
	mutate(&next)
	r.batches[id] = next
	if err := r.persistLocked(); err != nil {
		r.batches[id] = current
		return err
	}
	return nil
}

func (r *Repository) persistLocked() error {
	if r.path == "" {
		return nil
	}
	return saveFile(r.path, r.sortedLocked())
}

func (r *Repository) sortedLocked() []bench.Batch {
	snapshot := make([]bench.Batch, 0, len(r.batches))
	for _, batch := range r.batches {
		snapshot = append(snapshot, batch)
	}
	sortNewestFirst(snapshot)
	return snapshot
}

func sortNewestFirst(batches []bench.Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].CreatedAt.After(batches[j].CreatedAt)
		}
		return batches[i].ID > batches[j].ID
	})
}

func cloneBatch(batch bench.Batch) bench.Batch {
	out := batch
	out.Config.Models = append([]string(nil), batch.Config.Models...)
	if batch.Results != nil {
		out.Results = make(map[string][]bench.RunResult, len(batch.Results))
		for model, results := range batch.Results {
			out.Results[model] = append([]bench.RunResult{}, results...)
		}
	}
	if batch.Summaries != nil {
		out.Summaries = make(map[string]bench.ModelSummary, len(batch.Summaries))
		for model, summary := range batch.Summaries {
			out.Summaries[model] = summary
		}
	}
	if batch.PersonaCards != nil {
		out.PersonaCards = make(map[string]bench.PersonaCard, len(batch.PersonaCards))
		for model, card := range batch.PersonaCards {
			out.PersonaCards[model] = card
		}
	}
	if batch.CompletedAt != nil {
		at := *batch.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
