package errors

import (
	stderr "errors"
	"fmt"
)

// SpawnError reports that a language-server subprocess could not be started.
// It is fatal for the requesting session only and must be surfaced to that
// client as a connection-establishment failure.
type SpawnError struct {
	Command string
	Err     error
}

// Error is an implementation of the error interface.
func (s *SpawnError) Error() string {
	return fmt.Sprintf("spawning language server %q: %v", s.Command, s.Err)
}

// Unwrap supports errors.Is/As chains.
func (s *SpawnError) Unwrap() error {
	return s.Err
}

// IsSpawnFailure reports whether the error chain contains a SpawnError.
func IsSpawnFailure(e error) bool {
	var se *SpawnError
	return stderr.As(e, &se)
}
