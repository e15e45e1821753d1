// Package apperr defines the error taxonomy shared across Cortex.
//
// Every failure in the system falls into one of a small set of kinds so that
// callers (the HTTP gateway in particular) can distinguish expected absence
// from genuine failure without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind int

const (
	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = iota
	// KindConfig covers invalid or missing configuration. Fatal at startup.
	KindConfig
	// KindWorkspace covers clone and scratch-directory failures.
	KindWorkspace
	// KindLoad means no readable documents were found under a source root.
	KindLoad
	// KindIngest covers embedding or vector-storage failures during indexing.
	KindIngest
	// KindNotFound marks expected absence: an unknown context id or an
	// unmapped webhook URL. Never treated as a failure by callers.
	KindNotFound
	// KindInvalid covers malformed requests (bad body, empty fields).
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindWorkspace:
		return "workspace"
	case KindLoad:
		return "load"
	case KindIngest:
		return "ingest"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error carries a kind, a human-readable message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is an expected-absence error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// HTTPStatus maps an error to the status code the gateway should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	case KindLoad:
		return http.StatusUnprocessableEntity
	case KindWorkspace, KindIngest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
