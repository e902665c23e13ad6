package errors

import (
	stderrors "errors"
	"fmt"
)

// Root sentinels of the engine error taxonomy. Call sites wrap them with
// fmt.Errorf("%w: ...") and callers branch with errors.Is.
var (
	// ErrProtocol covers a malformed or unexpected first frame.
	// Fatal for the offending connection only.
	ErrProtocol = fmt.Errorf("protocol error")

	// ErrTransport covers a send or receive failure on an open channel.
	// Treated as an implicit disconnect, contained to that handle.
	ErrTransport = fmt.Errorf("transport error")

	// ErrInvariant covers queue/pair state inconsistencies. Logged and
	// self-healed by re-enqueueing the affected handles, never fatal.
	ErrInvariant = fmt.Errorf("invariant violation")

	// ErrPersistence covers history store failures. The session continues;
	// the requester is told history is unavailable.
	ErrPersistence = fmt.Errorf("persistence error")
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrAlreadyQueued     = fmt.Errorf("handle already in waiting queue")
	ErrHandleClosed      = fmt.Errorf("handle already closed")
	ErrInvalidUsername   = fmt.Errorf("invalid username")
	ErrInvalidPayload    = fmt.Errorf("invalid event payload")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")
)

// Is and As forward to the standard library so call sites can branch on
// sentinels with a single errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
