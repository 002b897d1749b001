package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/a11yoracle/internal/capture"
	"github.com/roach88/a11yoracle/internal/harness"
	"github.com/roach88/a11yoracle/internal/hostsim"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/store"
	"github.com/roach88/a11yoracle/internal/trace"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	DBPath string
	Drop   []string
	Delay  time.Duration
}

// StepReport summarizes one executed step.
type StepReport struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Pass     bool   `json:"pass"`
	Expected int    `json:"expected"`
	Captured int    `json:"captured"`
	Settled  bool   `json:"settled"`
	Failure  string `json:"failure,omitempty"`
}

// SimulateReport is the JSON payload of a simulated run.
type SimulateReport struct {
	Scenario string       `json:"scenario"`
	Session  string       `json:"session,omitempty"`
	Token    string       `json:"token"`
	Pass     bool         `json:"pass"`
	Steps    []StepReport `json:"steps"`
	Errors   []string     `json:"errors,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a scenario against the simulated console host",
		Long: `Run a scenario end to end against an in-process console host that
raises the same notifications a real one does.

Faults can be injected to watch the oracle catch them. With --db the
session and both streams of every step are stored for replay.

Exit codes:
  0 - Every step reconciled and every assertion held
  1 - A step or assertion failed, or the scenario is invalid
  2 - The run could not be carried out

Examples:
  a11yoracle simulate scenarios/launch_and_exit.yaml
  a11yoracle simulate scenarios/launch_and_exit.yaml --db oracle.db
  a11yoracle simulate scenarios/launch_and_exit.yaml --drop StartApplication`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to SQLite database for storing the session")
	cmd.Flags().StringSliceVar(&opts.Drop, "drop", nil, "notification kinds the host fails to raise")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "delivery delay per notification batch")

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	sc, err := harness.LoadScenario(path)
	if err != nil {
		_ = f.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid scenario", err)
	}

	hostOpts := []hostsim.Option{hostsim.WithLogger(logger)}
	if banner := launchBanner(sc); banner != nil {
		hostOpts = append(hostOpts, hostsim.WithBanner(banner...))
	}
	if len(opts.Drop) > 0 {
		kinds := make([]notify.Kind, 0, len(opts.Drop))
		for _, name := range opts.Drop {
			k, err := notify.ParseKind(name)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --drop", err)
			}
			kinds = append(kinds, k)
		}
		hostOpts = append(hostOpts, hostsim.WithDrop(kinds...))
	}
	if opts.Delay > 0 {
		hostOpts = append(hostOpts, hostsim.WithDelay(opts.Delay))
	}

	h := hostsim.New(hostOpts...)
	defer h.Close()

	env := harness.Env{Launcher: h, Driver: h, Console: h, Hook: h, Logger: logger}
	if opts.DBPath != "" {
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		env.Store = st
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	res, err := harness.Run(ctx, sc, env)
	if err != nil {
		switch {
		case errors.Is(err, harness.ErrUnmodeledWrap):
			_ = f.Error(ErrCodeInvalid, err.Error(), nil)
			return WrapExitError(ExitFailure, "scenario not predictable", err)
		case capture.IsRegistrationError(err):
			_ = f.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to attach", err)
		default:
			_ = f.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "run failed", err)
		}
	}

	report := newSimulateReport(res)
	if f.JSON() {
		if err := f.Result(res.Pass, report); err != nil {
			return err
		}
	} else {
		printSimulateReport(cmd, res, report)
	}

	if !res.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", sc.Name))
	}
	return nil
}

// launchBanner returns the banner of the first launch step, so the simulated
// child shell prints what the scenario predicts.
func launchBanner(sc *harness.Scenario) []string {
	for _, step := range sc.Steps {
		if step.Enter == harness.EnterLaunch {
			return step.Banner
		}
	}
	return nil
}

func newSimulateReport(res *harness.Result) SimulateReport {
	report := SimulateReport{
		Scenario: res.Scenario,
		Session:  res.SessionID,
		Token:    string(res.Token),
		Pass:     res.Pass,
		Steps:    make([]StepReport, 0, len(res.Steps)),
		Errors:   res.Errors,
	}
	for _, s := range res.Steps {
		sr := StepReport{
			Index:    s.Index,
			Name:     s.Name,
			Pass:     s.Pass(),
			Expected: len(s.Expected),
			Captured: len(s.Captured),
			Settled:  s.Settle.Reached,
		}
		if err := s.Oracle.Err(); err != nil {
			sr.Failure = err.Error()
		}
		report.Steps = append(report.Steps, sr)
	}
	return report
}

func printSimulateReport(cmd *cobra.Command, res *harness.Result, report SimulateReport) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s\n", report.Scenario)
	if report.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", report.Session)
	}
	fmt.Fprintln(w)

	for _, s := range report.Steps {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s step %d: %s (%d expected, %d captured)\n", mark, s.Index, s.Name, s.Expected, s.Captured)
		if !s.Settled {
			fmt.Fprintln(w, "  (settle timed out)")
		}
	}

	if failed := res.FailedStep(); failed != nil {
		fmt.Fprintf(w, "\nExpected:\n%s", trace.Format(failed.Expected))
		fmt.Fprintf(w, "\nCaptured:\n%s", trace.Format(failed.Captured))
	}

	if len(report.Errors) > 0 {
		fmt.Fprintln(w)
		for _, e := range report.Errors {
			fmt.Fprintf(w, "✗ %s\n", e)
		}
	}

	fmt.Fprintln(w)
	if report.Pass {
		fmt.Fprintf(w, "PASS %s (%d steps)\n", report.Scenario, len(report.Steps))
	} else {
		fmt.Fprintf(w, "FAIL %s\n", report.Scenario)
	}
}
