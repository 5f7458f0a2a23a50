package core

import "fmt"

// ErrStartFailed indicates that the backend rejected or timed out
// opening a watch. The session reverts to not-watching and is not
// retried automatically; the caller re-triggers Start if it still
// cares.
type ErrStartFailed struct {
	SessionID string
	Err       error
}

func (e *ErrStartFailed) Error() string {
	return fmt.Sprintf("failed to start watch session %s: %v", e.SessionID, e.Err)
}

func (e *ErrStartFailed) Unwrap() error {
	return e.Err
}

// ErrInvalidInput indicates a domain-level input validation failure,
// e.g. an undecodable manifest. It keeps the core package free of
// infrastructure error types.
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ErrSessionNotFound indicates that no active session exists for the
// given id.
type ErrSessionNotFound struct {
	ID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("watch session %q not found", e.ID)
}
