package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hermitbench/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter hermitbench.yml",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFileNames[0]
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Scaffold(path); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "Wrote %s\n", path)
			return nil
		},
	}
}
