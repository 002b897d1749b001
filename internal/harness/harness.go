package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/roach88/a11yoracle/internal/capture"
	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/host"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/oracle"
	"github.com/roach88/a11yoracle/internal/predict"
	"github.com/roach88/a11yoracle/internal/store"
	"github.com/roach88/a11yoracle/internal/trace"
)

// ErrUnmodeledWrap is returned for a text step that would run past the
// buffer's right edge. Line wrap is not predicted, so such a step could only
// produce a spurious mismatch.
var ErrUnmodeledWrap = errors.New("typed text would wrap past the buffer's right edge")

// Env holds the collaborators a run needs.
type Env struct {
	Launcher host.Launcher
	Driver   host.Driver
	Console  console.Provider
	Hook     capture.Hook

	// Store persists the session when non-nil.
	Store *store.Store

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	// Tokens mints the capture token and the session id. Defaults to
	// UUIDv7.
	Tokens capture.TokenGenerator

	// Now stamps the stored session. Defaults to time.Now.
	Now func() time.Time
}

func (e Env) validate() error {
	switch {
	case e.Launcher == nil:
		return errors.New("harness: launcher is required")
	case e.Driver == nil:
		return errors.New("harness: driver is required")
	case e.Console == nil:
		return errors.New("harness: console provider is required")
	case e.Hook == nil:
		return errors.New("harness: hook is required")
	}
	return nil
}

// run is the state of one scenario execution.
type run struct {
	env    Env
	logger *slog.Logger
	bridge *capture.Bridge
	tok    capture.Token
	queue  *notify.Queue
	target host.Target
	settle capture.Quiescence
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Launch the command and attach a capture session to it
//  2. Settle once and discard whatever the host raised before the first step
//  3. Per step: snapshot, predict, act, settle, reconcile; stop at the first
//     mismatch
//  4. Snapshot the final state and evaluate assertions
//
// A failed reconciliation or assertion is reported in the Result, not as an
// error. Errors are reserved for runs that could not be carried out:
// registration failure, a console query failure, an unmodeled wrap, or
// cancellation. Detach and Terminate run on every path once acquired.
func Run(ctx context.Context, sc *Scenario, env Env) (res *Result, err error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	q, err := sc.Settle.Quiescence()
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", sc.Name)
	tokens := env.Tokens
	if tokens == nil {
		tokens = capture.UUIDv7Generator{}
	}
	now := env.Now
	if now == nil {
		now = time.Now
	}

	target, err := env.Launcher.Launch(ctx, sc.Command)
	if err != nil {
		return nil, fmt.Errorf("launch %q: %w", sc.Command, err)
	}
	defer func() {
		if terr := env.Launcher.Terminate(context.WithoutCancel(ctx), target); terr != nil {
			logger.Warn("terminate failed", "pid", target.PID, "error", terr)
		}
	}()

	bridge := capture.New(env.Hook, capture.WithLogger(logger), capture.WithTokenGenerator(tokens))
	tok, err := bridge.Attach(target.PID)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	defer func() {
		if derr := bridge.Detach(tok); derr != nil {
			logger.Warn("detach failed", "token", string(tok), "error", derr)
		}
	}()

	queue, err := bridge.Queue(tok)
	if err != nil {
		return nil, err
	}

	r := &run{
		env:    env,
		logger: logger,
		bridge: bridge,
		tok:    tok,
		queue:  queue,
		target: target,
		settle: q,
	}

	if err := r.discardInitial(ctx); err != nil {
		return nil, err
	}

	origin, err := env.Console.Snapshot(ctx, target.Console)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	promptColumn := origin.Cursor.X

	res = NewResult(sc.Name)
	res.Token = tok

	if env.Store != nil {
		res.SessionID = tokens.Generate()
		sess := store.Session{
			ID:        res.SessionID,
			Scenario:  sc.Name,
			Token:     string(tok),
			ProcessID: target.PID,
			StartedAt: now(),
		}
		if err := env.Store.CreateSession(ctx, sess); err != nil {
			return nil, err
		}
		defer func() {
			if err == nil {
				return
			}
			if ferr := env.Store.FinishSession(context.WithoutCancel(ctx), sess.ID, false, err.Error(), ""); ferr != nil {
				logger.Warn("finish session failed", "session", sess.ID, "error", ferr)
			}
		}()
	}

	logger.Info("scenario started",
		"command", sc.Command,
		"pid", target.PID,
		"token", string(tok),
		"origin", origin.String(),
	)

	for i, step := range sc.Steps {
		sr, err := r.step(ctx, i, step, promptColumn)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		res.Steps = append(res.Steps, sr)

		if env.Store != nil {
			var failure string
			if e := sr.Oracle.Err(); e != nil {
				failure = e.Error()
			}
			err := env.Store.WriteStep(ctx, res.SessionID, store.Step{
				Index:    i,
				Name:     sr.Name,
				Pass:     sr.Pass(),
				Failure:  failure,
				Expected: sr.Expected,
				Captured: sr.Captured,
			})
			if err != nil {
				return nil, fmt.Errorf("persist step %d: %w", i, err)
			}
		}

		if !sr.Pass() {
			logger.Info("step failed", "step", i, "name", sr.Name, "error", sr.Oracle.Err())
			res.AddError(fmt.Sprintf("step %d (%s): %v", i, sr.Name, sr.Oracle.Err()))
			break
		}
		logger.Debug("step passed", "step", i, "name", sr.Name, "records", sr.Oracle.Compared)
	}

	res.Final, err = env.Console.Snapshot(ctx, target.Console)
	if err != nil {
		return nil, fmt.Errorf("final snapshot: %w", err)
	}

	captured := res.Trace()
	for _, a := range sc.Assertions {
		if err := checkAssertion(a, captured, res.Final); err != nil {
			res.AddError(err.Error())
		}
	}

	if env.Store != nil {
		digest, err := trace.Digest(captured)
		if err != nil {
			return nil, err
		}
		if err := env.Store.FinishSession(ctx, res.SessionID, res.Pass, strings.Join(res.Errors, "\n"), digest); err != nil {
			return nil, err
		}
	}

	logger.Info("scenario finished", "pass", res.Pass, "steps", len(res.Steps), "errors", len(res.Errors))
	return res, nil
}

// discardInitial waits for the host to go quiet after attaching and drops
// what it raised, so the first step starts from an empty queue.
func (r *run) discardInitial(ctx context.Context) error {
	idle := r.settle.Idle
	if idle <= 0 {
		idle = capture.DefaultQuiescence.Idle
	}
	_, err := r.bridge.Settle(ctx, r.tok, capture.Quiescence{
		Mode:    capture.ModeIdle,
		Idle:    idle,
		Timeout: r.settle.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initial settle: %w", err)
	}
	dropped := r.queue.Drain()
	r.logger.Debug("discarded pre-scenario notifications", "count", len(dropped))
	return nil
}

// step runs one step. The returned error is non-nil only when the step could
// not be carried out; a mismatch is reported in StepResult.Oracle.
func (r *run) step(ctx context.Context, index int, step Step, promptColumn int) (StepResult, error) {
	snap, err := r.env.Console.Snapshot(ctx, r.target.Console)
	if err != nil {
		return StepResult{}, fmt.Errorf("snapshot: %w", err)
	}

	action, err := step.Action(promptColumn)
	if err != nil {
		return StepResult{}, err
	}
	if ta, ok := action.(predict.TypeAction); ok && predict.Overflows(snap, ta.Text) {
		return StepResult{}, fmt.Errorf("%w: %q from column %d in a buffer %d wide",
			ErrUnmodeledWrap, ta.Text, snap.Cursor.X, snap.BufferSize.X)
	}

	expected, _ := action.Predict(snap)
	sr := StepResult{Index: index, Name: step.Label(action), Expected: expected}
	r.logger.Debug("step", "step", index, "name", sr.Name, "snapshot", snap.String(), "expected", len(expected))

	base := r.queue.Total()
	switch a := action.(type) {
	case predict.TypeAction:
		sr.Settle, err = r.typeText(ctx, a.Text, base)
	case predict.LaunchAction, predict.ExitAction:
		if err = r.env.Driver.SendKey(ctx, r.target, host.KeyEnter); err == nil {
			sr.Settle, err = r.wait(ctx, base+len(expected), r.settle.Idle)
		}
	case predict.ScrollAction:
		if err = r.env.Driver.Scroll(ctx, r.target, a.Axis, a.Ticks); err == nil {
			sr.Settle, err = r.wait(ctx, base+len(expected), r.settle.Idle)
		}
	default:
		err = fmt.Errorf("unsupported action %T", action)
	}
	if err != nil {
		return StepResult{}, err
	}
	if !sr.Settle.Reached {
		r.logger.Warn("step did not settle", "step", index, "delivered", sr.Settle.Delivered-base, "expected", len(expected))
	}

	// One drain: the comparator sees exactly the stream that is stored.
	// Anything delivered later is the next step's first record.
	sr.Captured = r.queue.Drain()
	sr.Oracle = oracle.Reconcile(oracle.Records(expected...), oracle.Records(sr.Captured...))
	return sr, nil
}

// typeText sends text one character at a time, waiting after each for its
// UpdateSimple and caret pair. Only the last character waits out the idle
// window.
func (r *run) typeText(ctx context.Context, text string, base int) (capture.SettleResult, error) {
	var (
		res   capture.SettleResult
		units int
		n     = utf8.RuneCountInString(text)
		i     int
	)
	for _, c := range text {
		if err := r.env.Driver.SendText(ctx, r.target, string(c)); err != nil {
			return res, fmt.Errorf("send %q: %w", c, err)
		}
		units += utf16.RuneLen(c)
		i++

		var idle time.Duration
		if i == n {
			idle = r.settle.Idle
		}
		var err error
		if res, err = r.wait(ctx, base+2*units, idle); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (r *run) wait(ctx context.Context, watermark int, idle time.Duration) (capture.SettleResult, error) {
	q := r.settle
	q.Watermark = watermark
	q.Idle = idle
	res, err := r.bridge.Settle(ctx, r.tok, q)
	if err != nil {
		return res, fmt.Errorf("settle: %w", err)
	}
	return res, nil
}
