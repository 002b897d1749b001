// Package host declares the collaborators that sit between the oracle and a
// real terminal host: process lifecycle and UI-automation input.
//
// The oracle only needs these as opaque triggers. Implementations live
// elsewhere (a simulated host for offline runs, UI automation for live ones).
package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/predict"
)

// Target is a launched application and the console it writes to.
type Target struct {
	PID     int
	Console console.Handle
	Command string
}

// Launcher starts and stops target applications.
type Launcher interface {
	// Launch starts command in a fresh console and returns once its
	// console can be queried.
	Launch(ctx context.Context, command string) (Target, error)

	// Terminate stops the target. Safe to call more than once and after
	// the target already exited.
	Terminate(ctx context.Context, t Target) error
}

// Key is a single non-text key press.
type Key int

const (
	KeyEnter Key = iota + 1
	KeyEscape
	KeyBackspace
)

var keyNames = map[Key]string{
	KeyEnter:     "enter",
	KeyEscape:    "escape",
	KeyBackspace: "backspace",
}

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// ParseKey resolves a key name, case-insensitively.
func ParseKey(name string) (Key, error) {
	for k, n := range keyNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// Driver sends input to a target's console window.
type Driver interface {
	SendText(ctx context.Context, t Target, text string) error
	SendKey(ctx context.Context, t Target, k Key) error
	Scroll(ctx context.Context, t Target, axis predict.Axis, ticks int) error
}
