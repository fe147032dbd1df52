package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"hermitbench/internal/bench"
	"hermitbench/internal/report"
	"hermitbench/internal/store"
)

func newReportCommand(opts *rootOptions) *cobra.Command {
	var format, output string
	var fromStore bool
	cmd := &cobra.Command{
		Use:   "report [batch-id|latest]",
		Short: "Render a batch as results CSV, summary CSV, JSON scorecard or HTML",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(format)
			if err != nil {
				return usageError{err: err}
			}
			ref := "latest"
			if len(args) == 1 {
				ref = args[0]
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.close()
			batch, dir, err := a.resolveBatch(cmd.Context(), ref, fromStore)
			if err != nil {
				return err
			}
			rendered, err := report.Generate(cmd.Context(), batch, kind, time.Now())
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := opts.stdout.Write(rendered.Content)
				return err
			}
			path := output
			if path == "" {
				path = filepath.Join(dir, rendered.Filename)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create report dir: %w", err)
			}
			if err := os.WriteFile(path, rendered.Content, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(opts.stdout, "Report written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv|summary|json|html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout (default: the batch output directory)")
	cmd.Flags().BoolVar(&fromStore, "store", false, "Read the batch from the configured storage instead of output_dir")
	return cmd
}

// resolveBatch loads a batch from output_dir, or from the repository when fromStore is set.
// It returns the directory reports for the batch belong in.
func (a *app) resolveBatch(ctx context.Context, ref string, fromStore bool) (bench.Batch, string, error) {
	if !fromStore {
		batch, paths, err := report.ResolveBatch(a.cfg.OutputDir, ref)
		if err != nil {
			return bench.Batch{}, "", err
		}
		return batch, paths.BatchDir(), nil
	}
	repo, err := a.openRepository(ctx)
	if err != nil {
		return bench.Batch{}, "", err
	}
	defer repo.Close()
	batch, err := loadFromRepository(ctx, repo, ref)
	if err != nil {
		return bench.Batch{}, "", err
	}
	paths, err := report.NewOutputPaths(a.cfg.OutputDir, batch.ID)
	if err != nil {
		return bench.Batch{}, "", err
	}
	return batch, paths.BatchDir(), nil
}

// scoreReader aggregates stored runs without waiting for the batch to finish.
type scoreReader interface {
	ModelScores(ctx context.Context, batchID string) ([]bench.ModelSummary, error)
}

func loadFromRepository(ctx context.Context, repo store.BatchRepository, ref string) (bench.Batch, error) {
	if ref != "latest" {
		batch, err := repo.Get(ctx, ref)
		if errors.Is(err, store.ErrNotFound) {
			return bench.Batch{}, fmt.Errorf("batch %s not found", ref)
		}
		if err != nil {
			return bench.Batch{}, err
		}
		return withInterimScores(ctx, repo, batch)
	}
	batches, err := repo.List(ctx)
	if err != nil {
		return bench.Batch{}, err
	}
	if len(batches) == 0 {
		return bench.Batch{}, fmt.Errorf("no batches stored")
	}
	return withInterimScores(ctx, repo, batches[0])
}

// withInterimScores fills summaries of a running batch from the repository aggregate.
func withInterimScores(ctx context.Context, repo store.BatchRepository, batch bench.Batch) (bench.Batch, error) {
	reader, ok := repo.(scoreReader)
	if !ok || len(batch.Summaries) > 0 {
		return batch, nil
	}
	scores, err := reader.ModelScores(ctx, batch.ID)
	if err != nil {
		return bench.Batch{}, err
	}
	if batch.Summaries == nil {
		batch.Summaries = make(map[string]bench.ModelSummary, len(scores))
	}
	for _, summary := range scores {
		batch.Summaries[summary.Model] = summary
	}
	return batch, nil
}
