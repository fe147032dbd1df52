package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hermitbench/internal/bench"
)

// WriteBatchOutputs writes batch.json and every report format under outputDir/<batch id>.
func WriteBatchOutputs(ctx context.Context, batch bench.Batch, outputDir string, now time.Time) (OutputPaths, error) {
	if outputDir == "" {
		return OutputPaths{}, fmt.Errorf("output directory is required")
	}
	paths, err := NewOutputPaths(outputDir, batch.ID)
	if err != nil {
		return OutputPaths{}, err
	}
	if err := os.MkdirAll(paths.BatchDir(), 0o755); err != nil {
		return OutputPaths{}, fmt.Errorf("create output dir: %w", err)
	}
	payload, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return OutputPaths{}, fmt.Errorf("marshal batch: %w", err)
	}
	if err := writeFile(paths.BatchPath(), payload); err != nil {
		return OutputPaths{}, err
	}
	targets := []struct {
		kind Kind
		path string
	}{
		{KindResultsCSV, paths.ResultsCSVPath()},
		{KindSummaryCSV, paths.SummaryCSVPath()},
		{KindScorecard, paths.ScorecardPath()},
		{KindHTML, paths.ReportPath()},
	}
	for _, target := range targets {
		rendered, err := Generate(ctx, batch, target.kind, now)
		if err != nil {
			return OutputPaths{}, fmt.Errorf("render %s: %w", target.kind, err)
		}
		if err := writeFile(target.path, rendered.Content); err != nil {
			return OutputPaths{}, err
		}
	}
	return paths, nil
}

func writeFile(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
