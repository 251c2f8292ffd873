// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer maps them to
// status codes and stable machine-readable codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data.
	KindValidation
	// KindConfiguration indicates a rejected routing configuration change.
	KindConfiguration
	// KindInvalidState indicates the resource is not in a state that allows the operation.
	KindInvalidState
	// KindConflict indicates another caller already changed the resource.
	KindConflict
	// KindCapacityExceeded indicates a partner has no remaining lead capacity.
	KindCapacityExceeded
	// KindBadRequest indicates a malformed request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

var kindCodes = map[Kind]string{
	KindUnknown:          "unknown",
	KindNotFound:         "not_found",
	KindValidation:       "validation",
	KindConfiguration:    "configuration",
	KindInvalidState:     "invalid_state",
	KindConflict:         "conflict",
	KindCapacityExceeded: "capacity_exceeded",
	KindBadRequest:       "bad_request",
	KindInternal:         "internal",
}

// Code returns the stable string code for the kind.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknown]
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
	Details any    // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable code of the error kind.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindConfiguration, KindBadRequest:
		return http.StatusBadRequest
	case KindInvalidState, KindConflict, KindCapacityExceeded:
		return http.StatusConflict
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation on the error and returns it.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets response details on the error and returns it.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Configuration creates a configuration error for rejected settings.
func Configuration(message string) *Error {
	return New(KindConfiguration, message)
}

// InvalidState creates an invalid state error.
func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// CapacityExceeded creates a capacity exceeded error.
func CapacityExceeded(message string) *Error {
	return New(KindCapacityExceeded, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err wraps an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && GetKind(err) == kind
}
