package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hermitbench/internal/bench"
)

// LoadBatch reads a batch.json written by WriteBatchOutputs.
func LoadBatch(path string) (bench.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bench.Batch{}, err
	}
	var batch bench.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return bench.Batch{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return batch, nil
}

// ResolveBatch loads a batch from outputDir by id, or the newest batch when ref is "latest".
func ResolveBatch(outputDir, ref string) (bench.Batch, OutputPaths, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return bench.Batch{}, OutputPaths{}, fmt.Errorf("batch ref is required")
	}
	if ref == "latest" {
		latest, err := findLatestBatchID(outputDir)
		if err != nil {
			return bench.Batch{}, OutputPaths{}, err
		}
		ref = latest
	}
	paths, err := NewOutputPaths(outputDir, ref)
	if err != nil {
		return bench.Batch{}, OutputPaths{}, err
	}
	batch, err := LoadBatch(paths.BatchPath())
	if err != nil {
		if os.IsNotExist(err) {
			return bench.Batch{}, OutputPaths{}, fmt.Errorf("batch %s not found in %s", ref, outputDir)
		}
		return bench.Batch{}, OutputPaths{}, err
	}
	return batch, paths, nil
}

// findLatestBatchID relies on batch ids sorting by their timestamp prefix.
func findLatestBatchID(outputDir string) (string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", err
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "batch_") {
			continue
		}
		if _, err := os.Stat(filepath.Join(outputDir, entry.Name(), "batch.json")); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no batches found in %s", outputDir)
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}
