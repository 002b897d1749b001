//go:build !windows

package console

import "context"

// NativeProvider is unavailable off Windows; use a simulated host instead.
type NativeProvider struct{}

// NewNativeProvider returns ErrUnsupportedPlatform.
func NewNativeProvider() (*NativeProvider, error) {
	return nil, ErrUnsupportedPlatform
}

// Snapshot implements Provider.
func (p *NativeProvider) Snapshot(_ context.Context, h Handle) (Snapshot, error) {
	return Snapshot{}, &QueryError{Handle: h, Err: ErrUnsupportedPlatform}
}
