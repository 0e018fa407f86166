// Package fault defines the error kinds the service distinguishes between
// when mapping failures to HTTP responses: validation, IO, configuration,
// and external-service errors. Errors wrap their cause and work with the
// standard errors.Is/errors.As machinery.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for response mapping.
type Kind int

const (
	// Validation marks client-supplied input problems (missing file, bad extension).
	Validation Kind = iota + 1
	// IO marks scratch-file read/write failures.
	IO
	// Configuration marks startup configuration problems (missing API key).
	Configuration
	// ExternalService marks hosted-model or framework call failures.
	ExternalService
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case IO:
		return "io"
	case Configuration:
		return "configuration"
	case ExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// Error is a kinded error with an optional wrapped cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// New creates a kinded error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the kind of err, or 0 if err carries no kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return 0
}

// IsKind reports whether err (or any error it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
