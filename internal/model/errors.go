package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the HTTP layer can map it to a
// status code without string matching.
type ErrorKind string

const (
	// KindValidation marks malformed or missing required input.
	KindValidation ErrorKind = "validation"
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindAuthorization marks an actor lacking rights for the operation.
	KindAuthorization ErrorKind = "authorization"
	// KindForbidden marks an operation invalid for the entity's kind or
	// state, e.g. removing participants from a private chat.
	KindForbidden ErrorKind = "forbidden"
	// KindInternal marks a storage or infrastructure failure.
	KindInternal ErrorKind = "internal"
)

// Error is a kind-tagged error carried across the service boundary.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidation returns a validation error.
func NewValidation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// NewNotFound returns a not-found error.
func NewNotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// NewAuthorization returns an authorization error.
func NewAuthorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// NewForbidden returns a forbidden-operation error.
func NewForbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// NewInternal wraps a storage or infrastructure failure.
func NewInternal(err error, format string, args ...any) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal for
// untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
