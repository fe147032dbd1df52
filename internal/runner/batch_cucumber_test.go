//go:build cucumber

package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"hermitbench/internal/bench"
	"hermitbench/internal/testutil"
)

// TestBatchScenarios runs the batch scheduling feature scenarios.
func TestBatchScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "batch-scheduling",
		ScenarioInitializer: InitializeBatchScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "features", "batch.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeBatchScenario wires steps for batch scheduling scenarios.
func InitializeBatchScenario(ctx *godog.ScenarioContext) {
	state := &batchScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^models "([^"]+)" with (\d+) runs each$`, state.givenModels)
	ctx.Step(`^a task delay of (\d+) milliseconds$`, state.givenTaskDelay)
	ctx.Step(`^run (\d+) of "([^"]+)" fails$`, state.givenFailingRun)
	ctx.Step(`^the batch runs$`, state.whenTheBatchRuns)
	ctx.Step(`^(\d+) results are collected$`, state.thenResultsCollected)
	ctx.Step(`^model "([^"]+)" has (\d+) results?$`, state.thenModelHasResults)
	ctx.Step(`^progress is reported (\d+) times ending at (\d+) of (\d+)$`, state.thenProgressReported)
	ctx.Step(`^the runner paused (\d+) times$`, state.thenRunnerPaused)
}

// batchScenarioState holds scenario state for batch scheduling tests.
type batchScenarioState struct {
	request    BatchRequest
	interactor *fakeInteractor
	sleeper    *testutil.FakeClock
	progress   []Progress
	results    map[string][]bench.RunResult
}

func (s *batchScenarioState) reset() {
	s.request = BatchRequest{}
	s.interactor = &fakeInteractor{fail: map[string]bool{}}
	s.sleeper = newClock()
	s.progress = nil
	s.results = nil
}

func (s *batchScenarioState) givenModels(models string, runs int) error {
	s.request.Models = strings.Split(models, ",")
	s.request.RunsPerModel = runs
	return nil
}

func (s *batchScenarioState) givenTaskDelay(ms int) error {
	s.request.TaskDelay = time.Duration(ms) * time.Millisecond
	return nil
}

func (s *batchScenarioState) givenFailingRun(run int, model string) error {
	s.interactor.fail[fmt.Sprintf("%s#%d", model, run)] = true
	return nil
}

func (s *batchScenarioState) whenTheBatchRuns() error {
	o, err := New(Config{
		Interactor: s.interactor,
		Judge:      &fakeJudge{},
		Sleep:      s.sleeper.Sleep,
	})
	if err != nil {
		return err
	}
	s.results = o.RunBatch(context.Background(), s.request, ProgressFunc(func(completed, total int) {
		s.progress = append(s.progress, Progress{Completed: completed, Total: total})
	}))
	return nil
}

func (s *batchScenarioState) thenResultsCollected(expected int) error {
	got := 0
	for _, results := range s.results {
		got += len(results)
	}
	if got != expected {
		return fmt.Errorf("expected %d results, got %d", expected, got)
	}
	return nil
}

func (s *batchScenarioState) thenModelHasResults(model string, expected int) error {
	results, ok := s.results[model]
	if !ok {
		return fmt.Errorf("model %q has no entry", model)
	}
	if len(results) != expected {
		return fmt.Errorf("expected %d results for %q, got %d", expected, model, len(results))
	}
	return nil
}

func (s *batchScenarioState) thenProgressReported(times, completed, total int) error {
	if len(s.progress) != times {
		return fmt.Errorf("expected %d progress updates, got %d", times, len(s.progress))
	}
	last := s.progress[len(s.progress)-1]
	if last.Completed != completed || last.Total != total {
		return fmt.Errorf("expected last progress %d/%d, got %d/%d", completed, total, last.Completed, last.Total)
	}
	return nil
}

func (s *batchScenarioState) thenRunnerPaused(expected int) error {
	if len(s.sleeper.Sleeps()) != expected {
		return fmt.Errorf("expected %d pauses, got %d", expected, len(s.sleeper.Sleeps()))
	}
	return nil
}
