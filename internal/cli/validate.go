package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hermitbench/internal/config"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and environment",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if path == "" {
				fmt.Fprintln(opts.stdout, "No config file found; using defaults")
			}
			if _, err := config.APIKey(cfg, lookupEnv); err != nil {
				fmt.Fprintf(opts.stderr, "Warning: %v\n", err)
			}
			fmt.Fprintln(opts.stdout, "Config OK")
			return nil
		},
	}
}
