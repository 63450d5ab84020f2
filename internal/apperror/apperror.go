// Package apperror defines the domain error taxonomy shared by every layer.
//
// Repositories and services return these errors; only the HTTP layer knows
// how they map to status codes (see handler/response.go).
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("Validation Error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrMethodNotAllowed   = errors.New("method not allowed")
)

type AppError struct {
	Err     error             // sentinel, matched with errors.Is
	Message string            // Human-readable error message
	Field   string            // Optional: single field causing the error
	Fields  map[string]string // Optional: field-level details, keyed by wire name
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string]string{field: message},
	}
}

// ValidationFields bundles several field errors into one AppError.
// The message lists the offending fields in a stable order.
func ValidationFields(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return &AppError{
		Err:     ErrValidation,
		Message: "invalid fields: " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// InvalidCredentials is returned when a login attempt does not match an
// active account. The token endpoint maps it to 400, never 401.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Unable to authenticate with provided credentials",
		Field:   "non_field_errors",
	}
}

// Unauthenticated means the request carried no usable bearer token.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

func MethodNotAllowed(method string) *AppError {
	return &AppError{
		Err:     ErrMethodNotAllowed,
		Message: fmt.Sprintf("Method %q not allowed.", method),
	}
}
