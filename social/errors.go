package social

import "errors"

var (
	// ErrNotAuthenticated is returned when an action requires a signed-in viewer.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrValidation is returned for empty comments and missing post fields.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrRemote wraps any storage failure. The cause is not distinguished further.
	ErrRemote = errors.New("remote error")
	// ErrBusy is returned when a mutation is already in flight on the same component.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotConfirmed is returned when the viewer declines a destructive action.
	ErrNotConfirmed = errors.New("not confirmed")
)
