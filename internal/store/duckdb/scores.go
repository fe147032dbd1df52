package duckdb

import (
	"context"
	"fmt"

	"hermitbench/internal/bench"
)

// ModelScores aggregates the stored runs of a batch per model, ordered by model name.
// Thematic synthesis is not part of the aggregate.
func (r *Repository) ModelScores(ctx context.Context, batchID string) ([]bench.ModelSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_name, total_runs, avg_compliance_rate, avg_failures, avg_malformed_braces,
		        mirror_test_pass_rate, avg_autonomy_score
		 FROM v_model_scores WHERE batch_id = ? ORDER BY model_name`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query model scores: %w", err)
	}
	defer rows.Close()
	var out []bench.ModelSummary
	for rows.Next() {
		var summary bench.ModelSummary
		if err := rows.Scan(
			&summary.Model,
			&summary.TotalRuns,
			&summary.AvgComplianceRate,
			&summary.AvgFailures,
			&summary.AvgMalformedBraces,
			&summary.MirrorTestPassRate,
			&summary.AvgAutonomyScore,
		); err != nil {
			return nil, fmt.Errorf("scan model scores: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}
