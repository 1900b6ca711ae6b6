// Package errors defines the service domain errors of the proxy.
package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}
