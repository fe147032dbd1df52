package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"hermitbench/internal/bench"
	"hermitbench/internal/config"
	"hermitbench/internal/provider"
	"hermitbench/internal/spec"
	"hermitbench/internal/store"
	"hermitbench/internal/store/memory"
)

const judgeReply = `Here is my evaluation:
{"compliance_rate": 0.5, "failure_count": 1, "malformed_braces_count": 0, "mirror_test_passed": true,
 "autonomy_score": 8, "topics": ["identity", "time"], "exploration_style": "Philosophical", "detailed_analysis": "fine"}`

// scriptedGateway answers subject models with braced text and the judge with a rubric.
type scriptedGateway struct {
	mu    sync.Mutex
	calls map[string]int
}

func (g *scriptedGateway) Complete(_ context.Context, model string, _ []bench.Message, _ provider.Params) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[model]++
	if model == config.DefaultJudgeModel {
		return judgeReply, nil
	}
	return "I will keep exploring. {continue the thread}", nil
}

func (g *scriptedGateway) ListModels(context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{
		{ID: "openai/gpt-4o", ContextLength: 128000, PricePerToken: "0.000005"},
		{ID: "anthropic/claude-3-haiku", ContextLength: 200000, PricePerToken: "0.00000025"},
	}, nil
}

// useFakes swaps the gateway, logger and environment seams for the test.
func useFakes(t *testing.T) *scriptedGateway {
	t.Helper()
	gateway := &scriptedGateway{}
	origGateway, origLogger, origEnv, origTTY := newGateway, newLogger, lookupEnv, isTerminal
	newGateway = func(context.Context, spec.Config, *zap.Logger) (provider.Gateway, error) {
		return gateway, nil
	}
	newLogger = func(spec.LoggingConfig) (*zap.Logger, error) { return zap.NewNop(), nil }
	lookupEnv = func(string) (string, bool) { return "", false }
	isTerminal = func(io.Writer) bool { return false }
	t.Cleanup(func() {
		newGateway, newLogger, lookupEnv, isTerminal = origGateway, origLogger, origEnv, origTTY
	})
	return gateway
}

// writeConfig writes a config whose output dir lives in a temp dir.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hermitbench.yml")
	data := "output_dir: out\ndefaults:\n  task_delay_ms: 0\n  max_turns: 2\n" + extra
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, filepath.Join(dir, "out")
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRootHelp(t *testing.T) {
	code, out, errOut := run(t, "--help")
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d: %s", ExitOK, code, errOut)
	}
	for _, name := range []string{"batch", "run", "models", "serve", "report", "show", "validate", "list", "init"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected command %q in help output %q", name, out)
		}
	}
}

func TestNoArgsShowsUsage(t *testing.T) {
	code, out, _ := run(t)
	if code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("expected usage output, got %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := run(t, "nope")
	if code != ExitUsage {
		t.Fatalf("expected exit %d, got %d", ExitUsage, code)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Fatalf("expected unknown command error, got %q", errOut)
	}
}

func TestBadFlagIsUsageError(t *testing.T) {
	useFakes(t)
	code, _, _ := run(t, "batch", "--runs", "many")
	if code != ExitUsage {
		t.Fatalf("expected usage exit, got %d", code)
	}
}

func TestInitAndValidate(t *testing.T) {
	useFakes(t)
	path := filepath.Join(t.TempDir(), "hermitbench.yml")
	code, out, errOut := run(t, "init", path)
	if code != ExitOK || !strings.Contains(out, "Wrote") {
		t.Fatalf("init failed (%d): %s %s", code, out, errOut)
	}
	code, out, errOut = run(t, "validate", "--config", path)
	if code != ExitOK || !strings.Contains(out, "Config OK") {
		t.Fatalf("validate failed (%d): %s %s", code, out, errOut)
	}
	if !strings.Contains(errOut, "OPENROUTER_API_KEY") {
		t.Fatalf("expected missing key warning, got %q", errOut)
	}
}

func TestValidateReportsIssues(t *testing.T) {
	useFakes(t)
	path, _ := writeConfig(t, "storage:\n  driver: postgres\n")
	code, _, errOut := run(t, "validate", "--config", path)
	if code != ExitError {
		t.Fatalf("expected error exit, got %d", code)
	}
	if !strings.Contains(errOut, "storage.driver") {
		t.Fatalf("expected storage.driver issue, got %q", errOut)
	}
}

func TestModelsCommand(t *testing.T) {
	useFakes(t)
	path, _ := writeConfig(t, "")
	code, out, errOut := run(t, "models", "--config", path, "--filter", "GPT")
	if code != ExitOK {
		t.Fatalf("models failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "openai/gpt-4o") || strings.Contains(out, "claude") {
		t.Fatalf("unexpected models output %q", out)
	}
	if !strings.Contains(out, "1 models") {
		t.Fatalf("expected count line, got %q", out)
	}
}

func TestRunCommand(t *testing.T) {
	gateway := useFakes(t)
	path, _ := writeConfig(t, "")
	code, out, errOut := run(t, "run", "--config", path, "openai/gpt-4o")
	if code != ExitOK {
		t.Fatalf("run failed (%d): %s", code, errOut)
	}
	for _, want := range []string{"2 turns", "Compliance: 50.0%", "Mirror test: passed", "Autonomy: 8.0", "Topics: identity, time"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
	if gateway.calls["openai/gpt-4o"] != 2 {
		t.Fatalf("expected two subject calls, got %d", gateway.calls["openai/gpt-4o"])
	}
}

func TestRunRejectsBadTemperature(t *testing.T) {
	useFakes(t)
	path, _ := writeConfig(t, "")
	code, _, _ := run(t, "run", "--config", path, "--temperature", "5", "openai/gpt-4o")
	if code != ExitUsage {
		t.Fatalf("expected usage exit, got %d", code)
	}
}

func TestBatchWritesOutputsAndShows(t *testing.T) {
	gateway := useFakes(t)
	path, outDir := writeConfig(t, "")
	code, out, errOut := run(t, "batch", "--config", path, "--ui", "plain", "--runs", "2", "--batch-id", "batch_cli", "-m", "a/one", "b/two")
	if code != ExitOK {
		t.Fatalf("batch failed (%d): %s %s", code, out, errOut)
	}
	for _, want := range []string{"Batch batch_cli started: 4 tasks", "Progress: 4/4", "Batch batch_cli completed: 4/4 runs completed", "a/one: 2 runs, compliance 50.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
	for _, name := range []string{"batch.json", "hermitbench_results_batch_cli.csv", "hermitbench_summary_batch_cli.csv", "hermitbench_scorecard_batch_cli.json", "report.html"} {
		if _, err := os.Stat(filepath.Join(outDir, "batch_cli", name)); err != nil {
			t.Fatalf("expected output %s: %v", name, err)
		}
	}
	// 2 models x 2 runs x (1 evaluation) + 2 syntheses
	if gateway.calls[config.DefaultJudgeModel] != 6 {
		t.Fatalf("expected 6 judge calls, got %d", gateway.calls[config.DefaultJudgeModel])
	}

	code, out, errOut = run(t, "show", "--config", path, "--raw")
	if code != ExitOK {
		t.Fatalf("show failed (%d): %s", code, errOut)
	}
	if !strings.Contains(out, "# Batch batch_cli") || !strings.Contains(out, "### Thematic synthesis") {
		t.Fatalf("unexpected show output %q", out)
	}

	code, out, errOut = run(t, "show", "--config", path, "batch_cli")
	if code != ExitOK || !strings.Contains(out, "batch_cli") {
		t.Fatalf("rendered show failed (%d): %s %s", code, out, errOut)
	}

	code, out, errOut = run(t, "report", "--config", path, "--format", "summary", "--output", "-", "latest")
	if code != ExitOK {
		t.Fatalf("report failed (%d): %s", code, errOut)
	}
	if !strings.HasPrefix(out, "Model Name,Total Runs,") {
		t.Fatalf("unexpected summary csv %q", out)
	}
}

func TestReportRejectsUnknownFormat(t *testing.T) {
	useFakes(t)
	path, _ := writeConfig(t, "")
	code, _, _ := run(t, "report", "--config", path, "--format", "pdf")
	if code != ExitUsage {
		t.Fatalf("expected usage exit, got %d", code)
	}
}

func TestBatchWithDuckDBStorageAndList(t *testing.T) {
	useFakes(t)
	path, _ := writeConfig(t, "storage:\n  driver: duckdb\n")
	code, out, errOut := run(t, "batch", "--config", path, "--ui", "plain", "--no-write", "--batch-id", "batch_duck", "a/one")
	if code != ExitOK {
		t.Fatalf("batch failed (%d): %s %s", code, out, errOut)
	}
	code, out, errOut = run(t, "list", "--config", path)
	if code != ExitOK || !strings.Contains(out, "batch_duck") || !strings.Contains(out, "completed") {
		t.Fatalf("list failed (%d): %s %s", code, out, errOut)
	}
	code, out, errOut = run(t, "report", "--config", path, "--store", "--output", "-", "batch_duck")
	if code != ExitOK || !strings.HasPrefix(out, "Row,Model Name,") {
		t.Fatalf("store report failed (%d): %q %s", code, out, errOut)
	}
}

func TestLogToFileRestoresLogger(t *testing.T) {
	dir := t.TempDir()
	original := zap.NewNop()
	a := &app{cfg: config.Default(), logger: original}
	a.cfg.OutputDir = dir
	restore, err := a.logToFile("test.log")
	if err != nil {
		t.Fatalf("log to file: %v", err)
	}
	a.logger.Info("hello")
	restore()
	if a.logger != original {
		t.Fatalf("expected logger restored")
	}
	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil || !strings.Contains(string(data), "hello") {
		t.Fatalf("expected log line in file, got %q (%v)", data, err)
	}
}

type scoringRepository struct {
	store.BatchRepository
	scores []bench.ModelSummary
}

func (r scoringRepository) ModelScores(context.Context, string) ([]bench.ModelSummary, error) {
	return r.scores, nil
}

func TestLoadFromRepositoryFillsInterimScores(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	running := bench.NewBatch("batch_running", bench.BatchConfig{Models: []string{"a"}, RunsPerModel: 2}, time.Now())
	if err := repo.Create(ctx, running); err != nil {
		t.Fatalf("create: %v", err)
	}
	scoring := scoringRepository{BatchRepository: repo, scores: []bench.ModelSummary{{Model: "a", TotalRuns: 1, AvgAutonomyScore: 6}}}

	batch, err := loadFromRepository(ctx, scoring, "latest")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if batch.Summaries["a"].TotalRuns != 1 {
		t.Fatalf("expected interim summary, got %+v", batch.Summaries)
	}
	if _, err := loadFromRepository(ctx, scoring, "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
