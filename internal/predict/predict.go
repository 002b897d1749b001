package predict

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/notify"
)

// WheelDelta is the host's wheel unit for one scroll tick.
const WheelDelta = 120

// codeUnits returns text as the UTF-16 code units the host reports.
func codeUnits(text string) []uint16 {
	return utf16.Encode([]rune(text))
}

// TypeText predicts typing text at the cursor, one character at a time.
//
// For each code unit c at cursor (x,y) with attributes a the host writes
// UpdateSimple(x,y,c,a), advances the cursor, and reports CaretVisible(x+1,y).
// The result has exactly 2*N records for N code units.
func TypeText(s console.Snapshot, text string) ([]notify.Record, console.Snapshot) {
	units := codeUnits(text)
	if len(units) == 0 {
		return nil, s
	}

	out := make([]notify.Record, 0, 2*len(units))
	for _, c := range units {
		out = append(out, notify.UpdateSimple(s.Cursor.X, s.Cursor.Y, int(c), s.Attributes))
		s = s.Advance(1, 0)
		out = append(out, notify.CaretVisible(s.Cursor.X, s.Cursor.Y))
	}
	return out, s
}

// Overflows reports whether typing text from the current cursor would reach
// the right edge of the buffer. A buffer with unknown width never overflows.
func Overflows(s console.Snapshot, text string) bool {
	if s.BufferSize.X <= 0 {
		return false
	}
	return s.Cursor.X+len(codeUnits(text)) >= s.BufferSize.X
}

// Launch describes a nested shell starting up.
type Launch struct {
	// Banner is the text the child prints, one entry per line.
	Banner []string

	// PromptColumn is the column the caret rests on after the prompt.
	PromptColumn int
}

// LaunchChild predicts pressing Enter on a command that starts a nested shell.
//
// The host reports StartApplication, repaints the whole buffer, repaints each
// banner line on successive rows, skips a blank line, repaints the prompt,
// and places the caret after it.
func LaunchChild(s console.Snapshot, l Launch) ([]notify.Record, console.Snapshot) {
	out := make([]notify.Record, 0, len(l.Banner)+4)
	out = append(out,
		notify.StartApplication(0, 0),
		notify.UpdateRegion(0, 0, s.BufferSize.X-1, s.BufferSize.Y-1),
	)

	row := s.Cursor.Y
	for _, line := range l.Banner {
		row++
		out = append(out, notify.UpdateRegion(0, row, len(codeUnits(line))-1, row))
	}

	// Blank line, then the prompt line.
	row += 2
	out = append(out,
		notify.UpdateRegion(0, row, l.PromptColumn-1, row),
		notify.CaretVisible(l.PromptColumn, row),
	)

	return out, s.WithCursor(console.Coord{X: l.PromptColumn, Y: row})
}

// Exit describes a nested shell terminating.
type Exit struct {
	// PromptColumn is the parent prompt's caret column.
	PromptColumn int
}

// ExitChild predicts pressing Enter on "exit" inside a nested shell.
//
// The host reports EndApplication, then repaints the parent prompt two rows
// down and places the caret at the prompt column.
func ExitChild(s console.Snapshot, e Exit) ([]notify.Record, console.Snapshot) {
	row := s.Cursor.Y + 2
	out := []notify.Record{
		notify.EndApplication(0, 0),
		notify.UpdateRegion(0, row, e.PromptColumn-1, row),
		notify.CaretVisible(e.PromptColumn, row),
	}
	return out, s.WithCursor(console.Coord{X: e.PromptColumn, Y: row})
}

// Axis selects the wheel direction.
type Axis int

const (
	// Vertical is the standard mouse wheel.
	Vertical Axis = iota
	// Horizontal is the tilt wheel.
	Horizontal
)

func (a Axis) String() string {
	switch a {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis resolves "vertical" or "horizontal". The empty string is vertical.
func ParseAxis(name string) (Axis, error) {
	switch strings.ToLower(name) {
	case "", "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	default:
		return 0, fmt.Errorf("unknown scroll axis %q", name)
	}
}

// Scroll predicts a wheel gesture of ticks notches.
//
// The delta carries the sign of ticks unchanged, matching the wheel message's
// sign convention. The cursor does not move.
func Scroll(s console.Snapshot, axis Axis, ticks int) ([]notify.Record, console.Snapshot) {
	if ticks == 0 {
		return nil, s
	}
	delta := WheelDelta * ticks
	if axis == Horizontal {
		return []notify.Record{notify.UpdateScroll(delta, 0)}, s
	}
	return []notify.Record{notify.UpdateScroll(0, delta)}, s
}
