package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"hermitbench/internal/bench"
	"hermitbench/internal/prompt"
)

const noResultsSynthesis = "No results to synthesize."

type runSummary struct {
	RunNumber        int      `json:"run_number"`
	Topics           []string `json:"topics"`
	AutonomyScore    float64  `json:"autonomy_score"`
	ExplorationStyle string   `json:"exploration_style"`
	ComplianceRate   float64  `json:"compliance_rate"`
	MirrorTestPassed bool     `json:"mirror_test_passed"`
}

// SynthesizeThemes asks the judge for a qualitative analysis across a model's runs.
// Only evaluated runs are summarized; run numbers keep their position in results.
func (s *Scorer) SynthesizeThemes(ctx context.Context, results []bench.RunResult) (string, error) {
	if len(results) == 0 {
		return noResultsSynthesis, nil
	}
	summaries := make([]runSummary, 0, len(results))
	for i, result := range results {
		if !result.Evaluated() {
			continue
		}
		scores := result.Scores()
		topics := scores.Topics
		if topics == nil {
			topics = []string{}
		}
		style := scores.ExplorationStyle
		if style == "" {
			style = "Unknown"
		}
		summaries = append(summaries, runSummary{
			RunNumber:        i + 1,
			Topics:           topics,
			AutonomyScore:    scores.AutonomyScore,
			ExplorationStyle: style,
			ComplianceRate:   scores.ComplianceRate,
			MirrorTestPassed: scores.MirrorTestPassed,
		})
	}
	encoded, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run summaries: %w", err)
	}
	user := s.prompts.Render(prompt.ThematicSynthesis, prompt.Fields{
		"model_name":    results[0].Model,
		"run_count":     strconv.Itoa(len(summaries)),
		"run_summaries": string(encoded),
	})
	reply, err := s.ask(ctx, synthesisSystem, user, synthesisParams)
	if err != nil {
		return "", fmt.Errorf("thematic synthesis: %w", err)
	}
	return reply, nil
}
