package errors

import (
	stderr "errors"
	"fmt"
)

// SyncWriteError reports a failed attempt to persist document content to
// disk. It is non-fatal: the language server's in-memory view of the
// document remains valid, so the session continues.
type SyncWriteError struct {
	Path string
	Err  error
}

// Error is an implementation of the error interface.
func (s *SyncWriteError) Error() string {
	return fmt.Sprintf("syncing document to %q: %v", s.Path, s.Err)
}

// Unwrap supports errors.Is/As chains.
func (s *SyncWriteError) Unwrap() error {
	return s.Err
}

// IsSyncWriteFailure reports whether the error chain contains a SyncWriteError.
func IsSyncWriteFailure(e error) bool {
	var se *SyncWriteError
	return stderr.As(e, &se)
}
