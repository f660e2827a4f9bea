package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so transport layers can map it to a status
// code without string matching.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindUnavailable   ErrorKind = "unavailable"
)

// Error is a kinded error carrying a human-readable message. Every error
// crossing a service boundary is one of these; nothing is silently swallowed.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NotFound reports a missing quiz, question, user, contest or result.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation reports missing required fields or a malformed payload.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a failed credential check or a forbidden mutation.
func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a duplicate bookmark, registration or account.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Unavailable reports a store timeout or connection failure. Retryable by
// the caller; the core never retries on its own.
func Unavailable(format string, args ...any) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsNotFound(err error) bool    { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool  { return KindOf(err) == KindValidation }
func IsConflict(err error) bool    { return KindOf(err) == KindConflict }
func IsUnavailable(err error) bool { return KindOf(err) == KindUnavailable }
