// Package apperrors carries the error taxonomy shared by the blob store
// clients, the sync controller and the admin gate. The Kind is the signal;
// Detail is a human-readable payload for the operator.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	// NotFound: blob or container absent. Triggers fallback or a "no data" message.
	NotFound Kind = "not_found"
	// Unauthorized: bad, expired or under-scoped credential.
	Unauthorized Kind = "unauthorized"
	// Conflict: stale revision on a conditional write.
	Conflict Kind = "conflict"
	// Unavailable: network failure or 5xx. Safe to retry manually.
	Unavailable Kind = "unavailable"
	// Validation: local input rejected before reaching the network.
	Validation Kind = "validation"
)

// Error is a tagged error. Two *Error values match under errors.Is when
// their kinds are equal.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
	}
	return false
}

// New returns an error of the given kind.
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Newf is New with a formatted detail.
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap tags err with a kind. A nil err yields nil.
func Wrap(err error, kind Kind, op, detail string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// KindOf returns the kind carried by err, or "" when err is untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// DetailOf returns the detail of a tagged error, or err.Error() otherwise.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// FromStatus maps an HTTP status from a remote API to a kind.
// 2xx/3xx return "" (no error).
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Unauthorized
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusConflict, status == http.StatusPreconditionFailed:
		return Conflict
	case status >= 500:
		return Unavailable
	case status >= 400:
		return Validation
	}
	return ""
}

// HTTPStatus maps a kind to the status the admin API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusUnauthorized
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	case Validation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
