// Package report renders batch outputs as CSV, JSON and HTML.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hermitbench/internal/bench"
)

// Kind selects a report format.
type Kind string

const (
	KindResultsCSV Kind = "csv_results"
	KindSummaryCSV Kind = "csv_summary"
	KindScorecard  Kind = "detailed_scorecard"
	KindHTML       Kind = "html"
)

// ErrUnsupportedKind is returned for unknown report kinds.
var ErrUnsupportedKind = errors.New("unsupported report type")

// ParseKind accepts the report kinds and the short aliases csv, summary, json and html.
func ParseKind(value string) (Kind, error) {
	switch value {
	case "", "csv", string(KindResultsCSV):
		return KindResultsCSV, nil
	case "summary", string(KindSummaryCSV):
		return KindSummaryCSV, nil
	case "json", "scorecard", string(KindScorecard):
		return KindScorecard, nil
	case string(KindHTML):
		return KindHTML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, value)
}

// Report is a rendered, downloadable file.
type Report struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Generate renders batch in the requested format.
func Generate(ctx context.Context, batch bench.Batch, kind Kind, now time.Time) (Report, error) {
	switch kind {
	case KindResultsCSV:
		content, err := ResultsCSV(batch)
		return Report{Filename: ResultsFilename(batch.ID), ContentType: "text/csv", Content: content}, err
	case KindSummaryCSV:
		content, err := SummaryCSV(batch)
		return Report{Filename: SummaryFilename(batch.ID), ContentType: "text/csv", Content: content}, err
	case KindScorecard:
		content, err := ScorecardJSON(batch, now)
		return Report{Filename: ScorecardFilename(batch.ID), ContentType: "application/json", Content: content}, err
	case KindHTML:
		html, err := RenderHTML(ctx, batch)
		return Report{Filename: "hermitbench_report_" + batch.ID + ".html", ContentType: "text/html; charset=utf-8", Content: []byte(html)}, err
	}
	return Report{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}
