package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/a11yoracle/internal/harness"
)

// ScenarioValidation is the validation outcome of one scenario file.
type ScenarioValidation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Scenarios []ScenarioValidation `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Checks YAML syntax, unknown fields, and the schema (step shapes,
durations, assertion kinds) without launching anything.

Exit codes:
  0 - All scenarios valid
  1 - One or more scenarios invalid`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	w := cmd.OutOrStdout()

	result := ValidationResult{Valid: true, Scenarios: make([]ScenarioValidation, 0, len(paths))}
	for _, path := range paths {
		v := ScenarioValidation{Path: path}
		sc, err := harness.LoadScenario(path)
		if err != nil {
			v.Error = err.Error()
			result.Valid = false
		} else {
			v.Valid = true
			v.Name = sc.Name
			v.Steps = len(sc.Steps)
		}
		result.Scenarios = append(result.Scenarios, v)
	}

	if f.JSON() {
		if err := f.Result(result.Valid, result); err != nil {
			return err
		}
	} else {
		for _, v := range result.Scenarios {
			if v.Valid {
				fmt.Fprintf(w, "✓ %s (%s, %d steps)\n", v.Path, v.Name, v.Steps)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", v.Path)
			fmt.Fprintf(w, "  %s\n", v.Error)
		}
	}

	if !result.Valid {
		invalid := 0
		for _, v := range result.Scenarios {
			if !v.Valid {
				invalid++
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) invalid", invalid, len(paths)))
	}
	return nil
}
