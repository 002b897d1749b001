package predict

import (
	"fmt"
	"strings"

	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/notify"
)

// Action is one scripted user action with a known notification footprint.
type Action interface {
	// Predict returns the expected records and the next snapshot.
	Predict(s console.Snapshot) ([]notify.Record, console.Snapshot)

	// Describe returns a short human-readable label for logs.
	Describe() string
}

// TypeAction types Text into the console.
type TypeAction struct {
	Text string
}

// Predict implements Action.
func (a TypeAction) Predict(s console.Snapshot) ([]notify.Record, console.Snapshot) {
	return TypeText(s, a.Text)
}

// Describe implements Action.
func (a TypeAction) Describe() string {
	return fmt.Sprintf("type %q", a.Text)
}

// LaunchAction presses Enter to start a nested shell.
type LaunchAction struct {
	Launch
}

// Predict implements Action.
func (a LaunchAction) Predict(s console.Snapshot) ([]notify.Record, console.Snapshot) {
	return LaunchChild(s, a.Launch)
}

// Describe implements Action.
func (a LaunchAction) Describe() string {
	return fmt.Sprintf("enter (launch, %d banner lines)", len(a.Banner))
}

// ExitAction presses Enter to leave a nested shell.
type ExitAction struct {
	Exit
}

// Predict implements Action.
func (a ExitAction) Predict(s console.Snapshot) ([]notify.Record, console.Snapshot) {
	return ExitChild(s, a.Exit)
}

// Describe implements Action.
func (a ExitAction) Describe() string {
	return "enter (exit)"
}

// ScrollAction turns the wheel by Ticks notches.
type ScrollAction struct {
	Axis  Axis
	Ticks int
}

// Predict implements Action.
func (a ScrollAction) Predict(s console.Snapshot) ([]notify.Record, console.Snapshot) {
	return Scroll(s, a.Axis, a.Ticks)
}

// Describe implements Action.
func (a ScrollAction) Describe() string {
	return fmt.Sprintf("scroll %s %+d", a.Axis, a.Ticks)
}

// Chain predicts actions in order, feeding each next-snapshot into the
// following action.
func Chain(s console.Snapshot, actions ...Action) ([]notify.Record, console.Snapshot) {
	var out []notify.Record
	for _, a := range actions {
		var recs []notify.Record
		recs, s = a.Predict(s)
		out = append(out, recs...)
	}
	return out, s
}

// DescribeAll joins action labels for log lines.
func DescribeAll(actions []Action) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.Describe()
	}
	return strings.Join(parts, ", ")
}
