// Package dberrors defines the error taxonomy shared by every layer of the
// driver: DSN parsing, the pagination protocol, stage upload, and ingest.
//
// Each error carries a Kind so callers can branch on failure class (for
// example the REPL's reconnect-on-Unauthenticated cue, or a caller retrying
// only on SessionTimeout) without string-matching the whole message.
package dberrors

import (
	"errors"
	"fmt"
)

// Kind classifies a driver error.
type Kind int

const (
	// Parsing indicates a malformed DSN or unknown transport scheme.
	Parsing Kind = iota
	// BadArgument indicates an invalid enumerated option, stage reference,
	// or ingest argument shape.
	BadArgument
	// Request indicates a transport-level failure or a non-retriable
	// non-200 HTTP status.
	Request
	// InvalidResponse indicates the server replied 200 but the body carries
	// an embedded error object, or a required field is missing or malformed.
	InvalidResponse
	// SessionTimeout indicates a 404 on a follow-up page: the server-side
	// session was reclaimed and the statement must be resubmitted.
	SessionTimeout
	// IO indicates a local file, timestamp, or stream failure.
	IO
	// Decode indicates row-value decoding against the schema failed.
	Decode
)

func (k Kind) String() string {
	switch k {
	case Parsing:
		return "Parsing"
	case BadArgument:
		return "BadArgument"
	case Request:
		return "Request"
	case InvalidResponse:
		return "InvalidResponse"
	case SessionTimeout:
		return "SessionTimeout"
	case IO:
		return "IO"
	case Decode:
		return "Decode"
	default:
		return "Unknown"
	}
}

// ErrNotImplemented is returned by connection variants (such as the
// columnar-RPC stub) for operations that have no implementation yet.
var ErrNotImplemented = errors.New("dberrors: not implemented")

// Error is the concrete error type returned by every package in this module.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a pre-existing cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
