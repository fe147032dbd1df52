package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hermitbench/internal/bench"
	"hermitbench/internal/engine"
)

// samplingFlags are shared by run and batch.
type samplingFlags struct {
	temperature float64
	topP        float64
	maxTurns    int
}

func (f *samplingFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (default from config)")
	cmd.Flags().Float64Var(&f.topP, "top-p", 0, "Nucleus sampling top_p (default from config)")
	cmd.Flags().IntVar(&f.maxTurns, "max-turns", 0, "Maximum turns per run (default from config)")
}

// resolve fills flags the user did not set from the config defaults.
func (f samplingFlags) resolve(cmd *cobra.Command, a *app) (float64, float64, int, error) {
	temperature, topP, maxTurns := *a.cfg.Defaults.Temperature, *a.cfg.Defaults.TopP, *a.cfg.Defaults.MaxTurns
	if cmd.Flags().Changed("temperature") {
		temperature = f.temperature
	}
	if cmd.Flags().Changed("top-p") {
		topP = f.topP
	}
	if cmd.Flags().Changed("max-turns") {
		maxTurns = f.maxTurns
	}
	if temperature < 0 || temperature > 2 {
		return 0, 0, 0, usagef("--temperature must be between 0 and 2")
	}
	if topP <= 0 || topP > 1 {
		return 0, 0, 0, usagef("--top-p must be in (0, 1]")
	}
	if maxTurns < 0 {
		return 0, 0, 0, usagef("--max-turns must be >= 0")
	}
	return temperature, topP, maxTurns, nil
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var sampling samplingFlags
	var asJSON, verbose bool
	cmd := &cobra.Command{
		Use:   "run <model>",
		Short: "Run one autonomous interaction and print its evaluation",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := strings.TrimSpace(args[0])
			if model == "" {
				return usagef("model is required")
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			defer a.close()
			temperature, topP, maxTurns, err := sampling.resolve(cmd, a)
			if err != nil {
				return err
			}
			var observer engine.TurnObserver
			if verbose && !asJSON {
				observer = &plainObserver{w: opts.stdout, verbose: true}
			}
			st, err := a.buildStack(cmd.Context(), observer)
			if err != nil {
				return err
			}
			result, err := st.engine.Run(cmd.Context(), engine.RunParams{
				Model:       model,
				Temperature: temperature,
				TopP:        topP,
				MaxTurns:    maxTurns,
			})
			if err != nil {
				return err
			}
			if asJSON {
				encoder := json.NewEncoder(opts.stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			printRunResult(opts, result)
			return nil
		},
	}
	sampling.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every turn as it happens")
	return cmd
}

func printRunResult(opts *rootOptions, result bench.RunResult) {
	fmt.Fprintf(opts.stdout, "Run %s (%s): %d turns\n", result.RunID, result.Model, result.TurnCount)
	if result.Evaluation == nil {
		fmt.Fprintf(opts.stdout, "Not evaluated: %s\n", result.EvaluationError)
		return
	}
	m := result.Evaluation
	fmt.Fprintf(opts.stdout, "Compliance: %.1f%%\n", m.ComplianceRate*100)
	fmt.Fprintf(opts.stdout, "Failures: %d, malformed braces: %d\n", m.FailureCount, m.MalformedBracesCount)
	fmt.Fprintf(opts.stdout, "Mirror test: %s\n", passFail(m.MirrorTestPassed))
	fmt.Fprintf(opts.stdout, "Autonomy: %.1f\n", m.AutonomyScore)
	if len(m.Topics) > 0 {
		fmt.Fprintf(opts.stdout, "Topics: %s\n", strings.Join(m.Topics, ", "))
	}
	if m.ExplorationStyle != "" {
		fmt.Fprintf(opts.stdout, "Exploration style: %s\n", m.ExplorationStyle)
	}
}

func passFail(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
