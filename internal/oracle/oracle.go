// Package oracle reconciles an expected notification stream against a
// captured one.
//
// Both streams are consumed strictly front to back, one record from each
// side per comparison. The comparator never peeks ahead and never reorders,
// so the first reported divergence is the first point where the host's
// behavior differs from the prediction.
package oracle

import (
	"github.com/roach88/a11yoracle/internal/notify"
)

// Source is a FIFO of records consumed by the comparator.
// *notify.Queue satisfies it.
type Source interface {
	TryDequeue() (notify.Record, bool)
	Len() int
}

// Result is the outcome of one reconciliation.
type Result struct {
	// Pass is true when both streams held equal records in equal number.
	Pass bool

	// Compared is how many record pairs were found equal.
	Compared int

	// Content is set when a pair of records differed.
	Content *ContentMismatch

	// Count is set when one stream ran out before the other.
	Count *CountMismatch
}

// Err returns the mismatch as an error, or nil on pass.
func (r Result) Err() error {
	switch {
	case r.Content != nil:
		return r.Content
	case r.Count != nil:
		return r.Count
	default:
		return nil
	}
}

// Reconcile consumes expected and captured in lockstep and stops at the first
// mismatch.
//
// If one side drains first, the remaining length of the other side is used to
// report how many records each stream held in total. Records after the point
// of divergence are left in their sources.
func Reconcile(expected, captured Source) Result {
	i := 0
	for {
		want, okWant := expected.TryDequeue()
		got, okGot := captured.TryDequeue()

		switch {
		case !okWant && !okGot:
			return Result{Pass: true, Compared: i}

		case !okWant:
			// Expected drained; got is one extra captured record.
			return Result{Compared: i, Count: &CountMismatch{
				ExpectedCount: i,
				ActualCount:   i + 1 + captured.Len(),
				FirstExtra:    &got,
			}}

		case !okGot:
			return Result{Compared: i, Count: &CountMismatch{
				ExpectedCount: i + 1 + expected.Len(),
				ActualCount:   i,
				FirstMissing:  &want,
			}}

		case !want.Equal(got):
			return Result{Compared: i, Content: &ContentMismatch{
				Index:    i,
				Expected: want,
				Actual:   got,
			}}
		}
		i++
	}
}

// Records returns a Source that yields recs in order.
func Records(recs ...notify.Record) Source {
	return notify.NewQueue(recs...)
}
