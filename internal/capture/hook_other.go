//go:build !windows

package capture

import (
	"log/slog"

	"github.com/roach88/a11yoracle/internal/notify"
)

// SystemHook is unavailable off Windows; use a simulated host instead.
type SystemHook struct{}

// NewSystemHook returns ErrUnsupportedPlatform.
func NewSystemHook(*slog.Logger) (*SystemHook, error) {
	return nil, ErrUnsupportedPlatform
}

// Install implements Hook.
func (*SystemHook) Install(int, notify.Callbacks) (Uninstall, error) {
	return nil, ErrUnsupportedPlatform
}
