// Package predict computes the notification sequence a console host should
// emit for a scripted action.
//
// Every predictor is a pure function of a console.Snapshot and the action's
// parameters. It returns the ordered expected records and the snapshot the
// console should be in afterwards. Inputs are never modified and the
// returned snapshot is a fresh value.
//
// Modeled actions:
//
//	TypeText     one UpdateSimple/CaretVisible pair per UTF-16 code unit
//	LaunchChild  Enter on a command that starts a nested shell
//	ExitChild    Enter on "exit" inside the nested shell
//	Scroll       one wheel gesture of N ticks
//
// Line wrap is not modeled. Overflows reports when typed text would reach
// the right edge of the buffer so callers can refuse such steps instead of
// comparing against a guessed wrap sequence.
//
// Malformed parameters (empty text, zero ticks) yield an empty sequence and
// an unchanged snapshot. Predictors never return errors.
package predict
