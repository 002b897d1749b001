//go:build windows

package console

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// NativeProvider queries screen buffers through GetConsoleScreenBufferInfo.
type NativeProvider struct{}

// NewNativeProvider returns the platform console query.
func NewNativeProvider() (*NativeProvider, error) {
	return &NativeProvider{}, nil
}

// Snapshot implements Provider.
func (p *NativeProvider) Snapshot(ctx context.Context, h Handle) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if h == 0 || windows.Handle(h) == windows.InvalidHandle {
		return Snapshot{}, &QueryError{Handle: h, Err: ErrInvalidHandle}
	}

	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(h), &info); err != nil {
		if errors.Is(err, windows.ERROR_INVALID_HANDLE) {
			err = fmt.Errorf("%w: %v", ErrInvalidHandle, err)
		}
		return Snapshot{}, &QueryError{Handle: h, Err: err}
	}

	return Snapshot{
		Cursor:     Coord{X: int(info.CursorPosition.X), Y: int(info.CursorPosition.Y)},
		Attributes: int(info.Attributes),
		BufferSize: Coord{X: int(info.Size.X), Y: int(info.Size.Y)},
		Viewport: Rect{
			Left:   int(info.Window.Left),
			Top:    int(info.Window.Top),
			Right:  int(info.Window.Right),
			Bottom: int(info.Window.Bottom),
		},
	}, nil
}
