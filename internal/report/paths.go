package report

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputPaths describes filesystem locations for batch outputs.
type OutputPaths struct {
	Root    string
	BatchID string
}

// NewOutputPaths validates and constructs output paths metadata.
func NewOutputPaths(root, batchID string) (OutputPaths, error) {
	if strings.TrimSpace(root) == "" {
		return OutputPaths{}, fmt.Errorf("output root is empty")
	}
	if strings.TrimSpace(batchID) == "" {
		return OutputPaths{}, fmt.Errorf("batch ID is empty")
	}
	if strings.ContainsAny(batchID, `/\`) || batchID == "." || batchID == ".." {
		return OutputPaths{}, fmt.Errorf("batch ID %q is not a valid directory name", batchID)
	}
	return OutputPaths{Root: root, BatchID: batchID}, nil
}

// BatchDir returns the directory for a specific batch.
func (o OutputPaths) BatchDir() string {
	return filepath.Join(o.Root, o.BatchID)
}

// BatchPath returns the path to batch.json.
func (o OutputPaths) BatchPath() string {
	return filepath.Join(o.BatchDir(), "batch.json")
}

func (o OutputPaths) ResultsCSVPath() string {
	return filepath.Join(o.BatchDir(), ResultsFilename(o.BatchID))
}

func (o OutputPaths) SummaryCSVPath() string {
	return filepath.Join(o.BatchDir(), SummaryFilename(o.BatchID))
}

func (o OutputPaths) ScorecardPath() string {
	return filepath.Join(o.BatchDir(), ScorecardFilename(o.BatchID))
}

// ReportPath returns the path to the HTML report.
func (o OutputPaths) ReportPath() string {
	return filepath.Join(o.BatchDir(), "report.html")
}

func ResultsFilename(batchID string) string {
	return "hermitbench_results_" + batchID + ".csv"
}

func SummaryFilename(batchID string) string {
	return "hermitbench_summary_" + batchID + ".csv"
}

func ScorecardFilename(batchID string) string {
	return "hermitbench_scorecard_" + batchID + ".json"
}
