package console

import (
	"context"
	"errors"
	"fmt"
)

// Handle identifies a console screen buffer owned by a target process.
type Handle uintptr

// Provider answers "what does the console look like right now".
//
// Implementations must query live state on every call; results are never
// cached across calls.
type Provider interface {
	Snapshot(ctx context.Context, h Handle) (Snapshot, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, h Handle) (Snapshot, error)

// Snapshot implements Provider.
func (f ProviderFunc) Snapshot(ctx context.Context, h Handle) (Snapshot, error) {
	return f(ctx, h)
}

var (
	// ErrInvalidHandle indicates the handle does not name a live console.
	ErrInvalidHandle = errors.New("invalid console handle")

	// ErrUnsupportedPlatform indicates no native console query exists here.
	ErrUnsupportedPlatform = errors.New("console query not supported on this platform")
)

// QueryError reports a failed snapshot query.
type QueryError struct {
	Handle Handle
	Err    error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query console %#x: %v", uintptr(e.Handle), e.Err)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsQueryError returns true if err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
