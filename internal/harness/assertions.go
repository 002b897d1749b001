package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Trace    []notify.Record // Captured trace for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nCaptured trace:\n")
		buf.WriteString(trace.Format(e.Trace))
	}
	return buf.String()
}

func checkAssertion(a Assertion, tr []notify.Record, final console.Snapshot) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(tr, a)
	case AssertTraceOrder:
		return assertTraceOrder(tr, a)
	case AssertTraceCount:
		return assertTraceCount(tr, a)
	case AssertFinalState:
		return assertFinalState(final, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks for a record of the kind whose leading params
// match the assertion's params.
func assertTraceContains(tr []notify.Record, a Assertion) error {
	kind, err := notify.ParseKind(a.Kind)
	if err != nil {
		return err
	}

	for _, r := range tr {
		if r.Kind() == kind && matchParams(r, a.Params) {
			return nil
		}
	}

	want := kind.String()
	if len(a.Params) > 0 {
		want = fmt.Sprintf("%s with params %v", kind, a.Params)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    tr,
	}
}

func matchParams(r notify.Record, want []int) bool {
	for i, p := range want {
		if i >= 4 || r.Param(i) != p {
			return false
		}
	}
	return true
}

// assertTraceOrder checks that the kinds appear in order.
// Kinds don't need to be consecutive (intervening records are allowed).
func assertTraceOrder(tr []notify.Record, a Assertion) error {
	kinds := make([]notify.Kind, len(a.Kinds))
	for i, name := range a.Kinds {
		k, err := notify.ParseKind(name)
		if err != nil {
			return err
		}
		kinds[i] = k
	}

	next := 0
	for _, r := range tr {
		if next < len(kinds) && r.Kind() == kinds[next] {
			next++
		}
	}
	if next == len(kinds) {
		return nil
	}

	actual := fmt.Sprintf("missing %s", kinds[next])
	if next > 0 {
		actual = fmt.Sprintf("no %s after %s", kinds[next], kinds[next-1])
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("kinds in order: %v", kinds),
		Actual:   actual,
		Trace:    tr,
	}
}

// assertTraceCount checks that the kind appears exactly Count times.
func assertTraceCount(tr []notify.Record, a Assertion) error {
	kind, err := notify.ParseKind(a.Kind)
	if err != nil {
		return err
	}

	count := 0
	for _, r := range tr {
		if r.Kind() == kind {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    tr,
		}
	}
	return nil
}

// assertFinalState compares the console after the last step.
func assertFinalState(final console.Snapshot, a Assertion) error {
	if len(a.Cursor) == 2 {
		want := console.Coord{X: a.Cursor[0], Y: a.Cursor[1]}
		if final.Cursor != want {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("cursor %v", want),
				Actual:   fmt.Sprintf("cursor %v", final.Cursor),
			}
		}
	}
	if a.Attributes != nil && final.Attributes != *a.Attributes {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("attributes %#04x", *a.Attributes),
			Actual:   fmt.Sprintf("attributes %#04x", final.Attributes),
		}
	}
	return nil
}
