package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hermitbench/internal/bench"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func sampleBatch() bench.Batch {
	batch := bench.NewBatch("batch_20240601100000-abcdef01", bench.BatchConfig{
		Models:       []string{"zeta/model", "alpha/model"},
		RunsPerModel: 2,
	}, testNow)
	batch.Status = bench.BatchCompleted
	batch.Results["zeta/model"] = []bench.RunResult{
		{
			RunID:     "r1",
			Model:     "zeta/model",
			CreatedAt: testNow.Add(time.Minute),
			TurnCount: 4,
			Evaluation: &bench.Metrics{
				ComplianceRate:       0.755,
				FailureCount:         1,
				MalformedBracesCount: 2,
				MirrorTestPassed:     true,
				AutonomyScore:        7.3,
				Topics:               []string{"memory", "identity"},
				ExplorationStyle:     "philosophical",
			},
		},
		{
			RunID:           "r2",
			Model:           "zeta/model",
			CreatedAt:       testNow.Add(2 * time.Minute),
			TurnCount:       1,
			EvaluationError: "Failed to parse judge response as JSON",
		},
	}
	batch.Summaries["zeta/model"] = bench.ModelSummary{
		Model:              "zeta/model",
		TotalRuns:          2,
		AvgComplianceRate:  0.378,
		AvgFailures:        0.5,
		AvgMalformedBraces: 1,
		MirrorTestPassRate: 50,
		AvgAutonomyScore:   3.66,
		ThematicSynthesis:  "Both runs <circle> identity.",
	}
	batch.PersonaCards["zeta/model"] = bench.PersonaCard{Model: "zeta/model", PersonalityDescription: "A reflective explorer."}
	return batch
}

func TestResultsCSV(t *testing.T) {
	content, err := ResultsCSV(sampleBatch())
	if err != nil {
		t.Fatalf("results csv: %v", err)
	}
	want := strings.Join([]string{
		"Row,Model Name,Run,Compliance Rate,Failures,Malformed Braces,Mirror Test,Autonomy Score,Turns,Topics,Exploration Style,Date",
		`1,zeta/model,1,75.5%,1,2,Pass,7.3,4,"memory, identity",philosophical,2024-06-01 10:01:00`,
		"2,zeta/model,2,N/A,N/A,N/A,Fail,N/A,1,N/A,N/A,2024-06-01 10:02:00",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(content)); diff != "" {
		t.Fatalf("results csv mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryCSV(t *testing.T) {
	content, err := SummaryCSV(sampleBatch())
	if err != nil {
		t.Fatalf("summary csv: %v", err)
	}
	want := strings.Join([]string{
		"Model Name,Total Runs,Avg. Compliance Rate (%),Avg. Failures,Avg. Malformed Braces,Mirror Test Pass Rate (%),Avg. Autonomy Score",
		"zeta/model,2,37.8%,0.50,1.00,50.0%,3.7",
		"",
	}, "\n")
	if diff := cmp.Diff(want, string(content)); diff != "" {
		t.Fatalf("summary csv mismatch (-want +got):\n%s", diff)
	}
}

func TestScorecard(t *testing.T) {
	card := BuildScorecard(sampleBatch(), testNow)
	if card.BatchID != "batch_20240601100000-abcdef01" || !card.GeneratedAt.Equal(testNow) {
		t.Fatalf("unexpected scorecard header: %+v", card)
	}
	zeta := card.Models["zeta/model"]
	if len(zeta.Runs) != 2 || zeta.Summary == nil || zeta.PersonaCard == nil {
		t.Fatalf("unexpected zeta entry: %+v", zeta)
	}
	if zeta.Runs[0].AutonomyScore == nil || *zeta.Runs[0].AutonomyScore != 7.3 {
		t.Fatalf("unexpected run score: %+v", zeta.Runs[0])
	}
	if zeta.Runs[1].ComplianceRate != nil || zeta.Runs[1].EvaluationError == "" {
		t.Fatalf("unevaluated run should have null scores: %+v", zeta.Runs[1])
	}
	alpha, ok := card.Models["alpha/model"]
	if !ok || len(alpha.Runs) != 0 || alpha.Summary != nil {
		t.Fatalf("unexpected alpha entry: %+v", alpha)
	}

	data, err := ScorecardJSON(sampleBatch(), testNow)
	if err != nil {
		t.Fatalf("scorecard json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := decoded["models"]; !ok {
		t.Fatalf("expected models key in %s", data)
	}
}

func TestRenderHTMLEscapes(t *testing.T) {
	html, err := RenderHTML(context.Background(), sampleBatch())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, token := range []string{"<table", "zeta/model", "alpha/model", "No completed runs.", "A reflective explorer.", "&lt;circle&gt;"} {
		if !strings.Contains(html, token) {
			t.Fatalf("expected report to include %q", token)
		}
	}
	if strings.Contains(html, "<circle>") {
		t.Fatalf("synthesis text must be escaped")
	}
	for _, fragment := range []string{
		"<!doctype html>",
		"<td>50.0%</td>",
		`<td colspan="5" class="err">Failed to parse judge response as JSON</td>`,
		"<td>memory, identity</td>",
	} {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected fragment %q in report", fragment)
		}
	}
}

func TestRenderHTMLHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderHTML(ctx, sampleBatch()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateKinds(t *testing.T) {
	batch := sampleBatch()
	cases := map[string]struct {
		filename    string
		contentType string
	}{
		"csv":     {ResultsFilename(batch.ID), "text/csv"},
		"summary": {SummaryFilename(batch.ID), "text/csv"},
		"json":    {ScorecardFilename(batch.ID), "application/json"},
		"html":    {"hermitbench_report_" + batch.ID + ".html", "text/html; charset=utf-8"},
	}
	for alias, want := range cases {
		kind, err := ParseKind(alias)
		if err != nil {
			t.Fatalf("parse %s: %v", alias, err)
		}
		rendered, err := Generate(context.Background(), batch, kind, testNow)
		if err != nil {
			t.Fatalf("generate %s: %v", alias, err)
		}
		if rendered.Filename != want.filename || rendered.ContentType != want.contentType || len(rendered.Content) == 0 {
			t.Fatalf("unexpected %s report: %s %s", alias, rendered.Filename, rendered.ContentType)
		}
	}
	if _, err := ParseKind("pdf"); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("expected unsupported kind, got %v", err)
	}
}

func TestWriteAndResolveBatch(t *testing.T) {
	root := t.TempDir()
	older := bench.NewBatch("batch_20240101000000-00000000", bench.BatchConfig{Models: []string{"m"}, RunsPerModel: 1}, testNow)
	if _, err := WriteBatchOutputs(context.Background(), older, root, testNow); err != nil {
		t.Fatalf("write older: %v", err)
	}
	paths, err := WriteBatchOutputs(context.Background(), sampleBatch(), root, testNow)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, path := range []string{paths.BatchPath(), paths.ResultsCSVPath(), paths.SummaryCSVPath(), paths.ScorecardPath(), paths.ReportPath()} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", filepath.Base(path), err)
		}
	}

	latest, _, err := ResolveBatch(root, "latest")
	if err != nil {
		t.Fatalf("resolve latest: %v", err)
	}
	if latest.ID != "batch_20240601100000-abcdef01" || latest.RunCount() != 2 {
		t.Fatalf("unexpected latest batch: %s (%d runs)", latest.ID, latest.RunCount())
	}
	byID, _, err := ResolveBatch(root, older.ID)
	if err != nil {
		t.Fatalf("resolve by id: %v", err)
	}
	if byID.ID != older.ID {
		t.Fatalf("unexpected batch %s", byID.ID)
	}
	if _, _, err := ResolveBatch(root, "batch_missing"); err == nil {
		t.Fatalf("expected error for missing batch")
	}
}

func TestOutputPathsErrors(t *testing.T) {
	for _, tc := range []struct{ root, id string }{{"", "b"}, {"out", ""}, {"out", "../escape"}} {
		if _, err := NewOutputPaths(tc.root, tc.id); err == nil {
			t.Fatalf("expected error for root=%q id=%q", tc.root, tc.id)
		}
	}
}
