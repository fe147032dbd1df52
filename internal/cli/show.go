package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"hermitbench/internal/bench"
)

func newShowCommand(opts *rootOptions) *cobra.Command {
	var raw, fromStore bool
	var width int
	cmd := &cobra.Command{
		Use:   "show [batch-id|latest]",
		Short: "Show summaries, thematic syntheses and persona cards of a batch",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := "latest"
			if len(args) == 1 {
				ref = args[0]
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.close()
			batch, _, err := a.resolveBatch(cmd.Context(), ref, fromStore)
			if err != nil {
				return err
			}
			markdown := batchMarkdown(batch)
			if raw {
				_, err := fmt.Fprint(opts.stdout, markdown)
				return err
			}
			style := "notty"
			if isTerminal(opts.stdout) {
				style = "auto"
			}
			renderer, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("markdown renderer: %w", err)
			}
			rendered, err := renderer.Render(markdown)
			if err != nil {
				return fmt.Errorf("render markdown: %w", err)
			}
			_, err = fmt.Fprint(opts.stdout, rendered)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without terminal styling")
	cmd.Flags().BoolVar(&fromStore, "store", false, "Read the batch from the configured storage instead of output_dir")
	cmd.Flags().IntVar(&width, "width", 100, "Wrap rendered text at this width")
	return cmd
}

// batchMarkdown renders the judge outputs of a batch as markdown.
func batchMarkdown(batch bench.Batch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Batch %s\n\n", batch.ID)
	fmt.Fprintf(&b, "Status: **%s**, %d of %d runs completed.\n\n", batch.Status, batch.CompletedTasks, batch.TotalTasks)
	if batch.Error != "" {
		fmt.Fprintf(&b, "> Error: %s\n\n", batch.Error)
	}
	for _, model := range showOrder(batch) {
		fmt.Fprintf(&b, "## %s\n\n", model)
		summary, ok := batch.Summaries[model]
		if !ok {
			b.WriteString("No completed runs.\n\n")
			continue
		}
		b.WriteString("| Runs | Compliance | Failures | Malformed braces | Mirror test | Autonomy |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %d | %.1f%% | %.2f | %.2f | %.1f%% | %.2f |\n\n",
			summary.TotalRuns, summary.AvgComplianceRate*100, summary.AvgFailures,
			summary.AvgMalformedBraces, summary.MirrorTestPassRate, summary.AvgAutonomyScore)
		if summary.ThematicSynthesis != "" {
			b.WriteString("### Thematic synthesis\n\n")
			b.WriteString(strings.TrimSpace(summary.ThematicSynthesis))
			b.WriteString("\n\n")
		}
		if card, ok := batch.PersonaCards[model]; ok {
			writePersonaCard(&b, card)
		}
	}
	return b.String()
}

func writePersonaCard(b *strings.Builder, card bench.PersonaCard) {
	b.WriteString("### Persona card\n\n")
	if card.Failed() {
		fmt.Fprintf(b, "Persona card unavailable: %s\n\n", card.Error)
		return
	}
	if card.PersonalityDescription != "" {
		b.WriteString(card.PersonalityDescription + "\n\n")
	}
	if len(card.KeyTraits) > 0 {
		fmt.Fprintf(b, "- **Key traits:** %s\n", strings.Join(card.KeyTraits, ", "))
	}
	if len(card.PreferredTopics) > 0 {
		fmt.Fprintf(b, "- **Preferred topics:** %s\n", strings.Join(card.PreferredTopics, ", "))
	}
	if card.DecisionMakingStyle != "" {
		fmt.Fprintf(b, "- **Decision making:** %s\n", card.DecisionMakingStyle)
	}
	if card.AutonomyProfile != "" {
		fmt.Fprintf(b, "- **Autonomy:** %s\n", card.AutonomyProfile)
	}
	b.WriteString("\n")
}

// showOrder lists configured models first, then any other model with results.
func showOrder(batch bench.Batch) []string {
	seen := make(map[string]bool, len(batch.Config.Models))
	order := make([]string, 0, len(batch.Config.Models))
	for _, model := range batch.Config.Models {
		if !seen[model] {
			seen[model] = true
			order = append(order, model)
		}
	}
	var extra []string
	for model := range batch.Results {
		if !seen[model] {
			seen[model] = true
			extra = append(extra, model)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}
