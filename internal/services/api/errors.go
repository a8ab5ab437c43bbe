package api

import (
	"errors"
	"fmt"
)

// Error is returned by every Client operation. Message is safe to show to the
// user: either the backend's error text or the operation's fallback message.
type Error struct {
	Op         string
	Message    string
	StatusCode int
	// Backend is set when the backend answered with an error body.
	Backend bool
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing text of err, or fallback when err is not
// an *Error.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsBackendError reports whether err carries an error reported by the backend.
func IsBackendError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Backend
}
