// Package libretr defines Libretto's tagged-union error model: every
// failure carries a stable Code so the CLI surface can render it and pick
// an exit code without string-matching. Errors are values, never panics:
// parse failures, network failures, and cache corruption all degrade to a
// typed *Error rather than propagating a raw panic.
package libretr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code identifies the class of a Libretto error.
type Code string

const (
	CodePackageNotFound Code = "package_not_found"
	CodeVersionNotFound Code = "version_not_found"
	CodeResolution      Code = "resolution"
	CodeNetwork         Code = "network"
	CodeInvalidManifest Code = "invalid_manifest"
	CodeIO              Code = "io"
	CodeCache           Code = "cache"
	CodeIntegrity       Code = "integrity"
	CodeLockTimeout     Code = "lock_timeout"
)

// ExitCode maps a Code to the process exit code spec §6 assigns it. Codes
// with no explicit mapping (recoverable classes like Cache) exit 1, the
// generic-error code.
func (c Code) ExitCode() int {
	switch c {
	case CodeResolution:
		return 2
	case CodeIntegrity:
		return 3
	case CodeLockTimeout:
		return 4
	default:
		return 1
	}
}

// Error is Libretto's tagged-union error type.
type Error struct {
	Code    Code
	Message string
	Path    string // set for InvalidManifest/Io errors that reference a file
	cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an *Error that preserves cause's stack trace (via
// github.com/pkg/errors) for diagnostics, while still exposing a stable
// Code to callers.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, cause: errors.WithStack(cause)}
}

// WithPath attaches a file path to the error, for InvalidManifest/Io errors
// that spec §7 requires to surface "with path [+ line]".
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// HasCode reports whether err is (or wraps) a *Error with the given code,
// so callers can branch on a code without type-asserting everywhere.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
