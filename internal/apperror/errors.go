// Package apperror defines the typed errors that cross layer boundaries.
// Repositories return sentinels, services and handlers wrap them into an
// *Error and the HTTP error handler turns the Type into a status code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Type classifies an application error.
type Type string

const (
	TypeValidation   Type = "VALIDATION"
	TypeBadRequest   Type = "BAD_REQUEST"
	TypeUnauthorized Type = "UNAUTHORIZED"
	TypeForbidden    Type = "FORBIDDEN"
	TypeNotFound     Type = "NOT_FOUND"
	TypeConflict     Type = "CONFLICT"
	TypeInternal     Type = "INTERNAL"
)

// Error is an application error. Fields is only set for validation errors
// and maps a request field (e.g. "tickets[1].row") to a message.
type Error struct {
	Type    Type
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+e.Fields[k])
		}
		msg += " [" + strings.Join(parts, "; ") + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error type.
func (e *Error) Status() int {
	switch e.Type {
	case TypeValidation, TypeBadRequest:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(t Type, message string) error {
	return &Error{Type: t, Message: message}
}

func Wrap(t Type, message string, err error) error {
	return &Error{Type: t, Message: message, Err: err}
}

// Validation builds a field-level validation error.
func Validation(fields map[string]string) error {
	return &Error{Type: TypeValidation, Message: "validation failed", Fields: fields}
}

// Field is shorthand for a validation error on a single field.
func Field(field, message string) error {
	return Validation(map[string]string{field: message})
}

func BadRequest(message string) error   { return New(TypeBadRequest, message) }
func Unauthorized(message string) error { return New(TypeUnauthorized, message) }
func Forbidden(message string) error    { return New(TypeForbidden, message) }
func NotFound(message string) error     { return New(TypeNotFound, message) }
func Conflict(message string) error     { return New(TypeConflict, message) }

func Internal(message string, err error) error {
	return Wrap(TypeInternal, message, err)
}

// From extracts an *Error from the chain.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func Is(err error, t Type) bool {
	appErr, ok := From(err)
	return ok && appErr.Type == t
}

func IsNotFound(err error) bool   { return Is(err, TypeNotFound) }
func IsConflict(err error) bool   { return Is(err, TypeConflict) }
func IsValidation(err error) bool { return Is(err, TypeValidation) }
