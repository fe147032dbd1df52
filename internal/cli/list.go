package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List batches in the configured storage, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.close()
			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()
			batches, err := repo.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list batches: %w", err)
			}
			if len(batches) == 0 {
				fmt.Fprintln(opts.stdout, "No batches")
				return nil
			}
			rows := make([][]string, 0, len(batches))
			for _, batch := range batches {
				rows = append(rows, []string{
					batch.ID,
					string(batch.Status),
					strconv.Itoa(batch.CompletedTasks) + "/" + strconv.Itoa(batch.TotalTasks),
					batch.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(opts.stdout, table.New().Headers("BATCH", "STATUS", "PROGRESS", "CREATED").Rows(rows...).Render())
			return nil
		},
	}
}
