// Package errors defines the typed error that services return and the HTTP
// layer renders. Each Code maps to a status and a public message; the
// wrapped cause is only ever logged.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeIdempotency     Code = "IDEMPOTENCY_KEY_REUSED"
	CodePayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	CodeRateLimit       Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal        Code = "INTERNAL_ERROR"
	CodeDependency      Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is surfaced to API clients. ExposeMessage
// lets the error's own message replace PublicMessage.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

func MetadataFor(code Code) Metadata {
	switch code {
	case CodeValidation:
		return Metadata{http.StatusBadRequest, "validation failed", true, true}
	case CodeUnauthorized:
		return Metadata{http.StatusUnauthorized, "authentication required", true, false}
	case CodeForbidden:
		return Metadata{http.StatusForbidden, "access denied", true, false}
	case CodeNotFound:
		return Metadata{http.StatusNotFound, "resource not found", true, false}
	case CodeConflict:
		return Metadata{http.StatusConflict, "conflict detected", true, false}
	case CodeIdempotency:
		return Metadata{http.StatusConflict, "idempotency key reused", true, true}
	case CodePayloadTooLarge:
		return Metadata{http.StatusRequestEntityTooLarge, "request body too large", false, true}
	case CodeRateLimit:
		return Metadata{http.StatusTooManyRequests, "rate limit exceeded", true, false}
	case CodeDependency:
		return Metadata{http.StatusServiceUnavailable, "dependency unavailable", false, true}
	default:
		return Metadata{http.StatusInternalServerError, "internal server error", false, false}
	}
}

// Status is shorthand for MetadataFor(c).HTTPStatus.
func (c Code) Status() int { return MetadataFor(c).HTTPStatus }

// Error pairs a Code with a message safe to show clients.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches cause to a new typed error. A nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets structured details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by code, so a bare New(code, "") works as a
// sentinel with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.code == e.code && (t.message == "" || t.message == e.message)
}

// As returns the outermost typed error in the chain, if any.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error carries code.
func IsCode(err error, code Code) bool {
	return As(err).codeOr("") == code
}

func (e *Error) codeOr(fallback Code) Code {
	if e == nil {
		return fallback
	}
	return e.code
}
