package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"hermitbench/internal/bench"
)

// Load reads batches from a JSON file if it exists.
func (r *Repository) Load(path string) error {
	if path == "" {
		return fmt.Errorf("repository path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var batches []bench.Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = make(map[string]bench.Batch, len(batches))
	for _, batch := range batches {
		r.batches[batch.ID] = batch
	}
	return nil
}

// Save persists every batch to a JSON file using an atomic rename.
func (r *Repository) Save(path string) error {
	if path == "" {
		return fmt.Errorf("repository path is required")
	}
	r.mu.RLock()
	batches := r.sortedLocked()
	r.mu.RUnlock()
	return saveFile(path, batches)
}

func saveFile(path string, batches []bench.Batch) error {
	payload, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, writeErr := file.Write(payload)
	syncErr := file.Sync()
	closeErr := file.Close()
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return writeErr
	}
	if syncErr != nil {
		_ = os.Remove(tmpPath)
		return syncErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return closeErr
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
