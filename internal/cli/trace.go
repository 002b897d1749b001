package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/a11yoracle/internal/store"
	"github.com/roach88/a11yoracle/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	DBPath    string
	SessionID string
	Scenario  string
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID        string `json:"id"`
	Scenario  string `json:"scenario"`
	Token     string `json:"token"`
	ProcessID int    `json:"process_id"`
	StartedAt string `json:"started_at"`
	Finished  bool   `json:"finished"`
	Pass      bool   `json:"pass"`
	Failure   string `json:"failure,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show stored sessions and their streams",
		Long: `List stored sessions, or print the expected and captured streams of
one session.

With --session and --format json the output is the canonical trace
document of the session.

Examples:
  a11yoracle trace --db oracle.db
  a11yoracle trace --db oracle.db --scenario launch_and_exit
  a11yoracle trace --db oracle.db --session 0190b7a2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "show this session's streams")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "list only sessions of this scenario")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.SessionID == "" {
		return listSessions(ctx, st, opts.Scenario, f, cmd)
	}
	return showSession(ctx, st, opts.SessionID, f, cmd)
}

func listSessions(ctx context.Context, st *store.Store, scenario string, f *OutputFormatter, cmd *cobra.Command) error {
	sessions, err := st.ListSessions(ctx, scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:        s.ID,
			Scenario:  s.Scenario,
			Token:     s.Token,
			ProcessID: s.ProcessID,
			StartedAt: s.StartedAt.UTC().Format(time.RFC3339),
			Finished:  s.Finished,
			Pass:      s.Pass,
			Failure:   s.Failure,
		})
	}

	if f.JSON() {
		return f.Result(true, summaries)
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	for _, s := range summaries {
		status := "pass"
		switch {
		case !s.Finished:
			status = "unfinished"
		case !s.Pass:
			status = "fail"
		}
		fmt.Fprintf(w, "%s  %-24s  %-10s  %s\n", s.ID, s.Scenario, status, s.StartedAt)
	}
	return nil
}

func showSession(ctx context.Context, st *store.Store, id string, f *OutputFormatter, cmd *cobra.Command) error {
	sess, err := st.ReadSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			_ = f.Error(ErrCodeNotFound, err.Error(), map[string]any{"session": id})
		}
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	steps, err := st.ReadSteps(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}

	doc := trace.Document{Scenario: sess.Scenario, Steps: make([]trace.Step, 0, len(steps))}
	for _, s := range steps {
		doc.Steps = append(doc.Steps, trace.Step{Name: s.Name, Expected: s.Expected, Captured: s.Captured})
	}

	if f.JSON() {
		data, err := trace.MarshalDocument(doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Session: %s\n", sess.ID)
	fmt.Fprintf(w, "Scenario: %s\n", sess.Scenario)
	fmt.Fprintf(w, "Token: %s\n", sess.Token)
	if sess.Failure != "" {
		fmt.Fprintf(w, "Failure: %s\n", sess.Failure)
	}
	for _, s := range steps {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "\n%s step %d: %s\n", mark, s.Index, s.Name)
		if s.Failure != "" {
			fmt.Fprintf(w, "  %s\n", s.Failure)
		}
		fmt.Fprintf(w, "  expected:\n%s", trace.Format(s.Expected))
		fmt.Fprintf(w, "  captured:\n%s", trace.Format(s.Captured))
	}
	return nil
}
