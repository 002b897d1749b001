// Package console models the observable state of a console screen buffer
// and the synchronous query that produces it.
//
// Snapshots are plain values. Every method that changes a field returns a new
// Snapshot, so the state before an action and the state after it can never
// alias each other.
package console

import "fmt"

// Coord is a zero-based cell position or a width/height pair.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Rect is an inclusive rectangle within the buffer.
type Rect struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Right  int `json:"right" yaml:"right"`
	Bottom int `json:"bottom" yaml:"bottom"`
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d..%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}

// Snapshot is a point-in-time view of a console screen buffer.
type Snapshot struct {
	// Cursor is the caret position in buffer coordinates.
	Cursor Coord `json:"cursor" yaml:"cursor"`

	// Attributes is the attribute bit-field applied to newly written cells.
	Attributes int `json:"attributes" yaml:"attributes"`

	// BufferSize is the width (X) and height (Y) of the logical buffer.
	BufferSize Coord `json:"buffer_size" yaml:"buffer_size"`

	// Viewport is the visible window within the buffer.
	Viewport Rect `json:"viewport" yaml:"viewport"`
}

// WithCursor returns a copy of s with the cursor moved to c.
func (s Snapshot) WithCursor(c Coord) Snapshot {
	s.Cursor = c
	return s
}

// Advance returns a copy of s with the cursor moved dx columns and dy rows.
func (s Snapshot) Advance(dx, dy int) Snapshot {
	s.Cursor.X += dx
	s.Cursor.Y += dy
	return s
}

// Width returns the buffer width in cells.
func (s Snapshot) Width() int { return s.BufferSize.X }

// Height returns the buffer height in rows.
func (s Snapshot) Height() int { return s.BufferSize.Y }

func (s Snapshot) String() string {
	return fmt.Sprintf("cursor=%s attr=0x%04x size=%dx%d viewport=%s",
		s.Cursor, s.Attributes, s.BufferSize.X, s.BufferSize.Y, s.Viewport)
}
