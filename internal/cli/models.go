package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newModelsCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	var filter string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the provider offers",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.close()
			gateway, err := newGateway(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			models, err := gateway.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			if filter != "" {
				kept := models[:0]
				for _, model := range models {
					if strings.Contains(strings.ToLower(model.ID), strings.ToLower(filter)) {
						kept = append(kept, model)
					}
				}
				models = kept
			}
			if asJSON {
				encoder := json.NewEncoder(opts.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(models)
			}
			rows := make([][]string, 0, len(models))
			for _, model := range models {
				rows = append(rows, []string{model.ID, strconv.Itoa(model.ContextLength), model.PricePerToken})
			}
			t := table.New().Headers("MODEL", "CONTEXT", "PRICE/TOKEN").Rows(rows...)
			fmt.Fprintln(opts.stdout, t.Render())
			fmt.Fprintf(opts.stdout, "%d models\n", len(models))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print models as JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "Only list model ids containing this text")
	return cmd
}
