package errors

import (
	stderr "errors"
	"fmt"
)

// SessionNotFoundError reports that no session is registered under an identifier.
type SessionNotFoundError struct {
	ID string
}

// Error is an implementation of the error interface.
func (n *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", n.ID)
}

// NotFoundSessionID returns the identifier and true if SessionNotFoundError
// is part of the error chain.
func NotFoundSessionID(e error) (_ string, ok bool) {
	var nf *SessionNotFoundError
	if !stderr.As(e, &nf) {
		return "", false
	}
	return nf.ID, true
}

// NoSessionFoundError indicates that a session cannot be found within the context.
type NoSessionFoundError struct{}

// Error is an implementation of the error interface.
func (n *NoSessionFoundError) Error() string {
	return "no session found in context"
}
