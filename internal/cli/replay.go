package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/oracle"
	"github.com/roach88/a11yoracle/internal/store"
	"github.com/roach88/a11yoracle/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	DBPath    string
	SessionID string
}

// ReplayStep is the re-reconciled outcome of one stored step.
type ReplayStep struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Pass       bool   `json:"pass"`
	Recorded   bool   `json:"recorded"`
	Consistent bool   `json:"consistent"`
	Failure    string `json:"failure,omitempty"`
}

// ReplaySession is the replay outcome of one stored session.
type ReplaySession struct {
	ID          string       `json:"id"`
	Scenario    string       `json:"scenario"`
	Pass        bool         `json:"pass"`
	Consistent  bool         `json:"consistent"`
	DigestMatch bool         `json:"digest_match"`
	Steps       []ReplayStep `json:"steps"`
}

// ReplayResult holds the replay outcomes of all requested sessions.
type ReplayResult struct {
	Sessions []ReplaySession `json:"sessions"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-reconcile stored sessions",
		Long: `Reconcile the stored expected and captured streams of each step again
and check the outcome against the verdict recorded at run time.

A session is consistent when every step's replayed verdict matches the
stored one and the stored digest matches the captured streams.

Exit codes:
  0 - Every replayed session passed and is consistent
  1 - A session failed or is inconsistent
  2 - Command error (database, unknown session)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "replay only this session")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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

	sessions, err := selectSessions(ctx, st, opts.SessionID, "")
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			_ = f.Error(ErrCodeNotFound, err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	result := ReplayResult{Sessions: make([]ReplaySession, 0, len(sessions))}
	ok := true
	for _, sess := range sessions {
		rs, err := replaySession(ctx, st, sess)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		if !rs.Pass || !rs.Consistent {
			ok = false
		}
		result.Sessions = append(result.Sessions, rs)
	}

	if f.JSON() {
		if err := f.Result(ok, result); err != nil {
			return err
		}
	} else {
		printReplay(cmd, result)
	}

	if !ok {
		return NewExitError(ExitFailure, "replay found failing or inconsistent sessions")
	}
	return nil
}

// selectSessions returns the one named session, or every session for the
// scenario (all when empty), oldest first.
func selectSessions(ctx context.Context, st *store.Store, id, scenario string) ([]store.Session, error) {
	if id == "" {
		return st.ListSessions(ctx, scenario)
	}
	sess, err := st.ReadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return []store.Session{sess}, nil
}

func replaySession(ctx context.Context, st *store.Store, sess store.Session) (ReplaySession, error) {
	steps, err := st.ReadSteps(ctx, sess.ID)
	if err != nil {
		return ReplaySession{}, err
	}

	rs := ReplaySession{
		ID:         sess.ID,
		Scenario:   sess.Scenario,
		Pass:       sess.Finished,
		Consistent: true,
		Steps:      make([]ReplayStep, 0, len(steps)),
	}

	var captured []notify.Record
	for _, step := range steps {
		res := oracle.Reconcile(oracle.Records(step.Expected...), oracle.Records(step.Captured...))
		r := ReplayStep{
			Index:      step.Index,
			Name:       step.Name,
			Pass:       res.Pass,
			Recorded:   step.Pass,
			Consistent: res.Pass == step.Pass,
		}
		if err := res.Err(); err != nil {
			r.Failure = err.Error()
		}
		rs.Pass = rs.Pass && res.Pass
		rs.Consistent = rs.Consistent && r.Consistent
		rs.Steps = append(rs.Steps, r)
		captured = append(captured, step.Captured...)
	}

	// A session that passed every step can still have failed an assertion.
	rs.Pass = rs.Pass && sess.Pass

	// Aborted runs have no digest.
	rs.DigestMatch = true
	if sess.Digest != "" {
		digest, err := trace.Digest(captured)
		if err != nil {
			return ReplaySession{}, err
		}
		rs.DigestMatch = digest == sess.Digest
	}
	rs.Consistent = rs.Consistent && rs.DigestMatch
	return rs, nil
}

func printReplay(cmd *cobra.Command, result ReplayResult) {
	w := cmd.OutOrStdout()

	if len(result.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	for _, s := range result.Sessions {
		mark := "✓"
		if !s.Pass || !s.Consistent {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", mark, s.ID, s.Scenario)
		for _, step := range s.Steps {
			switch {
			case !step.Consistent:
				fmt.Fprintf(w, "  step %d: %s: replayed %v, recorded %v\n", step.Index, step.Name, step.Pass, step.Recorded)
			case !step.Pass:
				fmt.Fprintf(w, "  step %d: %s: %s\n", step.Index, step.Name, step.Failure)
			}
		}
		if !s.DigestMatch {
			fmt.Fprintln(w, "  digest does not match captured streams")
		}
	}
}
