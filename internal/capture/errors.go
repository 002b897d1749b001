package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistration indicates the host refused to install the hook.
	ErrRegistration = errors.New("hook registration refused")

	// ErrAlreadyAttached indicates the process already has a live token.
	ErrAlreadyAttached = errors.New("process already attached")

	// ErrNotAttached indicates the token does not name a live session.
	ErrNotAttached = errors.New("not attached")

	// ErrUnsupportedPlatform indicates no native hook exists here.
	ErrUnsupportedPlatform = errors.New("accessibility hook not supported on this platform")
)

// RegistrationError reports a refused Attach. Scenarios treat it as fatal.
type RegistrationError struct {
	// PID is the process the hook was requested for.
	PID int

	// Err is the collaborator's reason.
	Err error
}

// Error implements the error interface.
func (e *RegistrationError) Error() string {
	return fmt.Sprintf("attach pid %d: %v", e.PID, e.Err)
}

// Unwrap returns the cause.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Is reports ErrRegistration for every RegistrationError.
func (e *RegistrationError) Is(target error) bool {
	return target == ErrRegistration
}

// IsRegistrationError returns true if err is or wraps a *RegistrationError.
func IsRegistrationError(err error) bool {
	var re *RegistrationError
	return errors.As(err, &re)
}
