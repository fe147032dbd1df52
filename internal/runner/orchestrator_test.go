package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"hermitbench/internal/bench"
	"hermitbench/internal/testutil"
	"hermitbench/internal/engine"
	"hermitbench/internal/store/memory"
)

type fakeInteractor struct {
	mu      sync.Mutex
	fail    map[string]bool
	panicOn map[string]bool
	calls   []string
}

func (f *fakeInteractor) Run(_ context.Context, params engine.RunParams) (bench.RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params.Model)
	call := len(f.calls)
	key := fmt.Sprintf("%s#%d", params.Model, f.count(params.Model))
	f.mu.Unlock()
	if f.panicOn[key] {
		panic("engine exploded")
	}
	if f.fail[key] {
		return bench.RunResult{}, errors.New("task failed")
	}
	return bench.RunResult{
		RunID:      fmt.Sprintf("run-%d", call),
		BatchID:    params.BatchID,
		Model:      params.Model,
		TurnCount:  params.MaxTurns,
		Evaluation: &bench.Metrics{AutonomyScore: float64(call), MirrorTestPassed: call%2 == 1},
	}, nil
}

func (f *fakeInteractor) count(model string) int {
	n := 0
	for _, called := range f.calls {
		if called == model {
			n++
		}
	}
	return n
}

type fakeJudge struct {
	synthesisErr error
	personaErr   map[string]error
	synthCalls   int
}

func (j *fakeJudge) SynthesizeThemes(_ context.Context, results []bench.RunResult) (string, error) {
	j.synthCalls++
	if j.synthesisErr != nil {
		return "", j.synthesisErr
	}
	return fmt.Sprintf("themes of %d runs", len(results)), nil
}

func (j *fakeJudge) BuildPersonaCard(_ context.Context, results []bench.RunResult) (bench.PersonaCard, error) {
	if err := j.personaErr[results[0].Model]; err != nil {
		return bench.PersonaCard{}, err
	}
	return bench.PersonaCard{Model: results[0].Model, PersonalityDescription: "curious"}, nil
}

func newClock() *testutil.FakeClock {
	return testutil.NewFakeClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
}

func newOrchestrator(t *testing.T, interactor Interactor, judge Judge, sleeper *testutil.FakeClock) *Orchestrator {
	t.Helper()
	cfg := Config{
		Interactor: interactor,
		Judge:      judge,
		Repository: memory.New(),
		Now:        func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewBatchID: func() (string, error) { return "batch_test", nil },
	}
	if sleeper != nil {
		cfg.Sleep = sleeper.Sleep
	}
	orchestrator, err := New(cfg)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orchestrator
}

func TestRunBatchOrderProgressAndDelay(t *testing.T) {
	interactor := &fakeInteractor{}
	sleeper := newClock()
	o := newOrchestrator(t, interactor, &fakeJudge{}, sleeper)

	var progress []Progress
	results := o.RunBatch(context.Background(), BatchRequest{
		Models:       []string{"a", "b"},
		RunsPerModel: 2,
		MaxTurns:     3,
		TaskDelay:    50 * time.Millisecond,
	}, ProgressFunc(func(completed, total int) {
		progress = append(progress, Progress{Completed: completed, Total: total})
	}))

	if diff := cmp.Diff([]string{"a", "a", "b", "b"}, interactor.calls); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
	if len(results["a"]) != 2 || len(results["b"]) != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results["a"][0].RunID != "run-1" || results["a"][1].RunID != "run-2" {
		t.Fatalf("results must keep repetition order")
	}
	wantProgress := []Progress{{1, 4}, {2, 4}, {3, 4}, {4, 4}}
	if diff := cmp.Diff(wantProgress, progress); diff != "" {
		t.Fatalf("progress mismatch (-want +got):\n%s", diff)
	}
	if len(sleeper.Sleeps()) != 3 {
		t.Fatalf("expected 3 delays, got %d", len(sleeper.Sleeps()))
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	interactor := &fakeInteractor{
		fail:    map[string]bool{"a#2": true},
		panicOn: map[string]bool{"b#1": true},
	}
	sleeper := newClock()
	o := newOrchestrator(t, interactor, &fakeJudge{}, sleeper)

	var progress []Progress
	results := o.RunBatch(context.Background(), BatchRequest{
		Models:       []string{"a", "b"},
		RunsPerModel: 3,
		TaskDelay:    time.Millisecond,
	}, ProgressFunc(func(completed, total int) {
		progress = append(progress, Progress{Completed: completed, Total: total})
	}))

	if len(results["a"]) != 2 || len(results["b"]) != 2 {
		t.Fatalf("failed tasks must be skipped: a=%d b=%d", len(results["a"]), len(results["b"]))
	}
	if len(progress) != 4 || progress[3] != (Progress{Completed: 4, Total: 6}) {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if len(sleeper.Sleeps()) != 3 {
		t.Fatalf("expected delays after successful non-final tasks only, got %d", len(sleeper.Sleeps()))
	}
}

func TestRunBatchKeepsEmptyModels(t *testing.T) {
	interactor := &fakeInteractor{fail: map[string]bool{"a#1": true}}
	o := newOrchestrator(t, interactor, &fakeJudge{}, newClock())
	results := o.RunBatch(context.Background(), BatchRequest{Models: []string{"a"}, RunsPerModel: 1}, nil)
	got, ok := results["a"]
	if !ok || len(got) != 0 {
		t.Fatalf("expected empty entry for model a, got %+v", results)
	}
}

func TestRunBatchStopsSchedulingOnCancel(t *testing.T) {
	interactor := &fakeInteractor{}
	ctx, cancel := context.WithCancel(context.Background())
	o := newOrchestrator(t, interactor, &fakeJudge{}, nil)
	results := o.RunBatch(ctx, BatchRequest{Models: []string{"a"}, RunsPerModel: 5}, ProgressFunc(func(completed, total int) {
		if completed == 2 {
			cancel()
		}
	}))
	if len(results["a"]) != 2 || len(interactor.calls) != 2 {
		t.Fatalf("expected 2 runs before cancellation, got %d", len(results["a"]))
	}
}

func TestSummarize(t *testing.T) {
	judge := &fakeJudge{}
	o := newOrchestrator(t, &fakeInteractor{}, judge, nil)

	if _, err := o.Summarize(context.Background(), nil); !errors.Is(err, bench.ErrContract) {
		t.Fatalf("expected ErrContract, got %v", err)
	}

	single, err := o.Summarize(context.Background(), []bench.RunResult{{Model: "m"}})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if single.ThematicSynthesis != "" || judge.synthCalls != 0 {
		t.Fatalf("single run must not request synthesis")
	}

	results := []bench.RunResult{
		{Model: "m", Evaluation: &bench.Metrics{AutonomyScore: 8, MirrorTestPassed: true}},
		{Model: "m", Evaluation: &bench.Metrics{AutonomyScore: 6}},
	}
	summary, err := o.Summarize(context.Background(), results)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.AvgAutonomyScore != 7 || summary.MirrorTestPassRate != 50 || summary.ThematicSynthesis != "themes of 2 runs" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSummarizeRecordsSynthesisFailure(t *testing.T) {
	o := newOrchestrator(t, &fakeInteractor{}, &fakeJudge{synthesisErr: errors.New("judge offline")}, nil)
	summary, err := o.Summarize(context.Background(), []bench.RunResult{{Model: "m"}, {Model: "m"}})
	if err != nil {
		t.Fatalf("synthesis failure must not fail the summary: %v", err)
	}
	if summary.ThematicSynthesis != "Error generating thematic synthesis: judge offline" {
		t.Fatalf("unexpected synthesis %q", summary.ThematicSynthesis)
	}
}

func TestBuildPersonaCards(t *testing.T) {
	judge := &fakeJudge{personaErr: map[string]error{"b": errors.New("no persona")}}
	o := newOrchestrator(t, &fakeInteractor{}, judge, nil)
	cards := o.BuildPersonaCards(context.Background(), map[string][]bench.RunResult{
		"a": {{Model: "a"}},
		"b": {{Model: "b"}},
		"c": {},
	})
	if len(cards) != 2 {
		t.Fatalf("expected cards for a and b only, got %d", len(cards))
	}
	if cards["a"].PersonalityDescription != "curious" || cards["a"].Failed() {
		t.Fatalf("unexpected card a: %+v", cards["a"])
	}
	if !cards["b"].Failed() || cards["b"].Error != "no persona" || cards["b"].Model != "b" {
		t.Fatalf("unexpected card b: %+v", cards["b"])
	}
}

func TestBatchRequestValidate(t *testing.T) {
	cases := []BatchRequest{
		{},
		{Models: []string{""}, RunsPerModel: 1},
		{Models: []string{"a"}, RunsPerModel: 0},
		{Models: []string{"a"}, RunsPerModel: 1, MaxTurns: -1},
	}
	for _, req := range cases {
		if err := req.Validate(); !errors.Is(err, bench.ErrContract) {
			t.Fatalf("expected contract error for %+v, got %v", req, err)
		}
	}
	if err := (BatchRequest{Models: []string{"a"}, RunsPerModel: 1}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecuteRecordsBatch(t *testing.T) {
	interactor := &fakeInteractor{fail: map[string]bool{"b#1": true}}
	o := newOrchestrator(t, interactor, &fakeJudge{}, newClock())

	batch, err := o.Execute(context.Background(), BatchRequest{
		Models:       []string{"a", "b"},
		RunsPerModel: 2,
		PersonaCards: true,
	}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if batch.ID != "batch_test" || batch.Status != bench.BatchCompleted {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if batch.TotalTasks != 4 || batch.CompletedTasks != 3 {
		t.Fatalf("unexpected counts: total=%d completed=%d", batch.TotalTasks, batch.CompletedTasks)
	}
	if len(batch.Results["a"]) != 2 || len(batch.Results["b"]) != 1 {
		t.Fatalf("unexpected results: %+v", batch.Results)
	}
	if batch.Results["a"][0].BatchID != "batch_test" {
		t.Fatalf("results should be tagged with the batch id")
	}
	if _, ok := batch.Summaries["a"]; !ok || len(batch.Summaries) != 2 {
		t.Fatalf("unexpected summaries: %+v", batch.Summaries)
	}
	if batch.Summaries["b"].ThematicSynthesis != "" {
		t.Fatalf("single-run model must not be synthesized")
	}
	if len(batch.PersonaCards) != 2 {
		t.Fatalf("expected persona cards, got %+v", batch.PersonaCards)
	}
	if batch.CompletedAt == nil {
		t.Fatalf("expected completion time")
	}
}

func TestExecuteMarksCancelledBatchAsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := newOrchestrator(t, &fakeInteractor{}, &fakeJudge{}, nil)
	batch, err := o.Execute(ctx, BatchRequest{Models: []string{"a"}, RunsPerModel: 1}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if batch.Status != bench.BatchError || !strings.Contains(batch.Error, "canceled") {
		t.Fatalf("expected error status, got %+v", batch)
	}
}

func TestStartRunsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := memory.New()
	o, err := New(Config{
		Interactor: &fakeInteractor{},
		Judge:      &fakeJudge{},
		Repository: repo,
		Sleep:      newClock().Sleep,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := o.Start(context.Background(), BatchRequest{}); !errors.Is(err, bench.ErrContract) {
		t.Fatalf("expected validation error, got %v", err)
	}
	id, err := o.Start(context.Background(), BatchRequest{Models: []string{"a"}, RunsPerModel: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.HasPrefix(id, "batch_") {
		t.Fatalf("unexpected batch id %q", id)
	}
	o.Wait()
	batch, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if batch.Status != bench.BatchCompleted || batch.CompletedTasks != 2 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
}

func TestChannelAndMultiProgress(t *testing.T) {
	ch := make(chan Progress, 1)
	var calls int
	reporter := MultiProgress(ChannelProgress(ch), nil, ProgressFunc(func(int, int) { calls++ }))
	reporter.OnProgress(1, 2)
	reporter.OnProgress(2, 2)
	if got := <-ch; got != (Progress{Completed: 1, Total: 2}) {
		t.Fatalf("unexpected progress %+v", got)
	}
	if calls != 2 {
		t.Fatalf("expected func reporter to see every update, got %d", calls)
	}
}
