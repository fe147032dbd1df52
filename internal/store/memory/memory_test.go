package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hermitbench/internal/bench"
	"hermitbench/internal/store"
)

func sampleBatch(id string, created time.Time) bench.Batch {
	return bench.NewBatch(id, bench.BatchConfig{Models: []string{"a", "b"}, RunsPerModel: 2, MaxTurns: 3}, created)
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, sampleBatch("b1", created)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, sampleBatch("b1", created)); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := repo.AppendResult(ctx, "b1", bench.RunResult{RunID: "r1", Model: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.UpdateProgress(ctx, "b1", 1); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := repo.UpdateProgress(ctx, "b1", 0); err != nil {
		t.Fatalf("progress: %v", err)
	}
	summaries := map[string]bench.ModelSummary{"a": {Model: "a", TotalRuns: 1}}
	if err := repo.SetSummaries(ctx, "b1", summaries); err != nil {
		t.Fatalf("summaries: %v", err)
	}
	done := created.Add(time.Minute)
	if err := repo.Complete(ctx, "b1", done); err != nil {
		t.Fatalf("complete: %v", err)
	}

	batch, err := repo.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if batch.Status != bench.BatchCompleted || batch.CompletedTasks != 1 || !batch.CompletedAt.Equal(done) {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if len(batch.Results["a"]) != 1 || len(batch.Results["b"]) != 0 {
		t.Fatalf("unexpected results: %+v", batch.Results)
	}
	if diff := cmp.Diff(summaries, batch.Summaries); diff != "" {
		t.Fatalf("summaries mismatch (-want +got):\n%s", diff)
	}

	batch.Results["a"][0].Model = "mutated"
	again, _ := repo.Get(ctx, "b1")
	if again.Results["a"][0].Model != "a" {
		t.Fatalf("Get must return a copy")
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo := New()
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Fail(context.Background(), "missing", "x", time.Now()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		if err := repo.Create(ctx, sampleBatch(id, base.Add(offsets[i]))); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	batches, _ := repo.List(ctx)
	var ids []string
	for _, batch := range batches {
		ids = append(ids, batch.ID)
	}
	if diff := cmp.Diff([]string{"new", "mid", "old"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRepositoryPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "batches.json")
	repo, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	created := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := repo.Create(ctx, sampleBatch("b1", created)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Fail(ctx, "b1", "boom", created); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected tmp file to be removed, got %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	batch, err := reopened.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if batch.Status != bench.BatchError || batch.Error != "boom" || !batch.CreatedAt.Equal(created) {
		t.Fatalf("unexpected reloaded batch: %+v", batch)
	}
}

func TestRepositoryKeepsStateWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	repo, err := Open(filepath.Join(dir, "batches.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	created := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := repo.Create(ctx, sampleBatch("b1", created)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A file where the directory should be makes every save fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0o644); err != nil {
		t.Fatalf("block dir: %v", err)
	}
	if err := repo.AppendResult(ctx, "b1", bench.RunResult{RunID: "r1", Model: "a"}); err == nil {
		t.Fatalf("expected append to fail")
	}
	if err := repo.Complete(ctx, "b1", created); err == nil {
		t.Fatalf("expected complete to fail")
	}
	if err := repo.Create(ctx, sampleBatch("b2", created)); err == nil {
		t.Fatalf("expected create to fail")
	}
	batch, err := repo.Get(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(batch.Results["a"]) != 0 || batch.Status != bench.BatchRunning || batch.CompletedAt != nil {
		t.Fatalf("failed writes leaked into memory: %+v", batch)
	}
	if _, err := repo.Get(ctx, "b2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected b2 to be rolled back, got %v", err)
	}

	if err := os.Remove(dir); err != nil {
		t.Fatalf("unblock dir: %v", err)
	}
	if err := repo.AppendResult(ctx, "b1", bench.RunResult{RunID: "r2", Model: "a"}); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
	batch, _ = repo.Get(ctx, "b1")
	if diff := cmp.Diff([]string{"r2"}, runIDs(batch.Results["a"])); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func runIDs(results []bench.RunResult) []string {
	ids := make([]string, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.RunID)
	}
	return ids
}

func TestRepositoryConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := New()
	if err := repo.Create(ctx, sampleBatch("b1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.AppendResult(ctx, "b1", bench.RunResult{Model: "a"})
			_ = repo.UpdateProgress(ctx, "b1", i)
			_, _ = repo.List(ctx)
		}(i)
	}
	wg.Wait()
	batch, _ := repo.Get(ctx, "b1")
	if len(batch.Results["a"]) != 50 || batch.CompletedTasks != 49 {
		t.Fatalf("unexpected batch after concurrent writes: results=%d completed=%d", len(batch.Results["a"]), batch.CompletedTasks)
	}
}
