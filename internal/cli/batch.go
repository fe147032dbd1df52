package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hermitbench/internal/bench"
	"hermitbench/internal/report"
	"hermitbench/internal/runner"
	"hermitbench/internal/ui/live"
)

// startLive is a test seam for the live UI.
var startLive = live.Start

type batchOptions struct {
	sampling     samplingFlags
	models       []string
	runs         int
	delayMs      int
	personaCards bool
	batchID      string
	uiMode       string
	verbose      bool
	noColor      bool
	noWrite      bool
}

func newBatchCommand(opts *rootOptions) *cobra.Command {
	bo := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch [model...]",
		Short: "Run every model several times, then summarize and write reports",
		Example: `  hermitbench batch openai/gpt-4o anthropic/claude-3-haiku --runs 3
  hermitbench batch -m openai/gpt-4o --persona-cards --ui plain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts, bo, args)
		},
	}
	bo.sampling.register(cmd)
	flags := cmd.Flags()
	flags.StringSliceVarP(&bo.models, "model", "m", nil, "Model to benchmark (repeatable)")
	flags.IntVar(&bo.runs, "runs", 0, "Runs per model (default from config)")
	flags.IntVar(&bo.delayMs, "delay-ms", 0, "Pause after each successful run in milliseconds (default from config)")
	flags.BoolVar(&bo.personaCards, "persona-cards", false, "Generate persona cards after the runs")
	flags.StringVar(&bo.batchID, "batch-id", "", "Use this batch id instead of a generated one")
	flags.StringVar(&bo.uiMode, "ui", "auto", "Progress display: auto|live|plain")
	flags.BoolVarP(&bo.verbose, "verbose", "v", false, "Print every turn (implies --ui plain)")
	flags.BoolVar(&bo.noColor, "no-color", false, "Disable colors in the live UI")
	flags.BoolVar(&bo.noWrite, "no-write", false, "Do not write CSV, JSON and HTML outputs")
	return cmd
}

func (bo *batchOptions) request(cmd *cobra.Command, a *app, args []string) (runner.BatchRequest, error) {
	models := make([]string, 0, len(bo.models)+len(args))
	for _, model := range append(append([]string(nil), bo.models...), args...) {
		if model = strings.TrimSpace(model); model != "" {
			models = append(models, model)
		}
	}
	if len(models) == 0 {
		return runner.BatchRequest{}, usagef("at least one model is required")
	}
	temperature, topP, maxTurns, err := bo.sampling.resolve(cmd, a)
	if err != nil {
		return runner.BatchRequest{}, err
	}
	runs, delayMs := *a.cfg.Defaults.RunsPerModel, *a.cfg.Defaults.TaskDelayMs
	if cmd.Flags().Changed("runs") {
		runs = bo.runs
	}
	if cmd.Flags().Changed("delay-ms") {
		delayMs = bo.delayMs
	}
	if runs < 1 {
		return runner.BatchRequest{}, usagef("--runs must be >= 1")
	}
	if delayMs < 0 {
		return runner.BatchRequest{}, usagef("--delay-ms must be >= 0")
	}
	return runner.BatchRequest{
		BatchID:      bo.batchID,
		Models:       models,
		RunsPerModel: runs,
		Temperature:  temperature,
		TopP:         topP,
		MaxTurns:     maxTurns,
		TaskDelay:    time.Duration(delayMs) * time.Millisecond,
		PersonaCards: bo.personaCards,
	}, nil
}

func runBatch(cmd *cobra.Command, opts *rootOptions, bo *batchOptions, args []string) error {
	a, err := opts.load()
	if err != nil {
		return err
	}
	defer a.close()
	req, err := bo.request(cmd, a, args)
	if err != nil {
		return err
	}
	decision, err := resolveUIMode(bo.uiMode, bo.verbose, opts.stdout)
	if err != nil {
		return usageError{err: err}
	}
	if decision.warning != "" {
		fmt.Fprintln(opts.stderr, decision.warning)
	}

	var observer batchObserver = &plainObserver{w: opts.stdout, verbose: bo.verbose}
	var controller *live.Controller
	if decision.useLive {
		restore, err := a.logToFile(decision.logFile)
		if err != nil {
			return err
		}
		defer restore()
		controller = startLive(opts.stdout, live.Options{NoColor: bo.noColor})
		observer = controller
	}

	ctx := cmd.Context()
	st, err := a.buildStack(ctx, observer)
	if err != nil {
		controller.Close()
		controller.Wait()
		return err
	}
	repo, err := a.openRepository(ctx)
	if err != nil {
		controller.Close()
		controller.Wait()
		return err
	}
	defer repo.Close()
	orchestrator, err := runner.New(runner.Config{
		Interactor: st.engine,
		Judge:      st.judge,
		Repository: repo,
		Observer:   observer,
		Logger:     a.logger,
	})
	if err != nil {
		controller.Close()
		controller.Wait()
		return err
	}

	var final bench.Batch
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer controller.Close()
		batch, err := orchestrator.Execute(groupCtx, req, observer)
		final = batch
		return err
	})
	if controller != nil {
		group.Go(func() error {
			controller.Wait()
			// Quitting the UI early stops scheduling further runs.
			cancel()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	printBatchSummary(opts, final)
	if bo.noWrite {
		return nil
	}
	paths, err := report.WriteBatchOutputs(ctx, final, a.cfg.OutputDir, time.Now())
	if err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}
	a.logger.Info("batch outputs written", zap.String("dir", paths.BatchDir()))
	fmt.Fprintf(opts.stdout, "Results: %s\n", paths.ResultsCSVPath())
	fmt.Fprintf(opts.stdout, "Summary: %s\n", paths.SummaryCSVPath())
	fmt.Fprintf(opts.stdout, "Scorecard: %s\n", paths.ScorecardPath())
	fmt.Fprintf(opts.stdout, "Report: %s\n", paths.ReportPath())
	if final.Status == bench.BatchError {
		return fmt.Errorf("batch %s ended with error: %s", final.ID, final.Error)
	}
	return nil
}

func printBatchSummary(opts *rootOptions, batch bench.Batch) {
	fmt.Fprintf(opts.stdout, "Batch %s %s: %d/%d runs completed\n", batch.ID, batch.Status, batch.CompletedTasks, batch.TotalTasks)
	for _, model := range batch.Config.Models {
		summary, ok := batch.Summaries[model]
		if !ok {
			fmt.Fprintf(opts.stdout, "  %s: no completed runs\n", model)
			continue
		}
		fmt.Fprintf(opts.stdout, "  %s: %d runs, compliance %.1f%%, autonomy %.2f, mirror test %.1f%%\n",
			model, summary.TotalRuns, summary.AvgComplianceRate*100, summary.AvgAutonomyScore, summary.MirrorTestPassRate)
	}
}
