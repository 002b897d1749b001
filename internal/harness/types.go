package harness

import (
	"github.com/roach88/a11yoracle/internal/capture"
	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/oracle"
	"github.com/roach88/a11yoracle/internal/trace"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	Index int
	Name  string

	// Expected is the predicted stream.
	Expected []notify.Record

	// Captured is everything the host delivered for this step, including
	// records past the point of divergence.
	Captured []notify.Record

	Oracle oracle.Result
	Settle capture.SettleResult
}

// Pass reports whether the step's streams reconciled.
func (s StepResult) Pass() bool { return s.Oracle.Pass }

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string

	// SessionID is set when the run was persisted.
	SessionID string

	// Token is the capture session's ownership token.
	Token capture.Token

	// Pass is true if every executed step reconciled and every assertion
	// held.
	Pass bool

	// Steps holds the executed steps. A failed step is the last entry.
	Steps []StepResult

	// Errors contains step and assertion failure messages.
	// Empty if Pass is true.
	Errors []string

	// Final is the console state after the last executed step.
	Final console.Snapshot
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Steps:    []StepResult{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Trace returns the captured records of every executed step, in order.
func (r *Result) Trace() []notify.Record {
	var out []notify.Record
	for _, s := range r.Steps {
		out = append(out, s.Captured...)
	}
	return out
}

// FailedStep returns the step that ended the run, or nil.
func (r *Result) FailedStep() *StepResult {
	for i := range r.Steps {
		if !r.Steps[i].Pass() {
			return &r.Steps[i]
		}
	}
	return nil
}

// Document converts the result into its canonical trace form.
func (r *Result) Document() trace.Document {
	d := trace.Document{Scenario: r.Scenario, Steps: make([]trace.Step, len(r.Steps))}
	for i, s := range r.Steps {
		d.Steps[i] = trace.Step{Name: s.Name, Expected: s.Expected, Captured: s.Captured}
	}
	return d
}
