// Package taskerr defines the typed errors shared by the store, graph,
// and tag layers. Every error carries a stable machine code so the
// command layer can translate it into a result envelope without string
// matching.
package taskerr

import (
	"errors"
	"fmt"
)

// Code identifies an error class for machine consumers.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeCircularDependency Code = "CIRCULAR_DEPENDENCY"
	CodeReservedName       Code = "RESERVED_NAME"
	CodeParse              Code = "PARSE_ERROR"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is a classified error with a machine code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same code, so sentinel-style comparisons
// like errors.Is(err, taskerr.NotFound("")) work on the code alone.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

// Validationf creates a validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error for a named entity.
func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

// NotFoundf creates a not-found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Circularf creates a circular-dependency error.
func Circularf(format string, args ...any) *Error {
	return &Error{Code: CodeCircularDependency, Message: fmt.Sprintf(format, args...)}
}

// Reservedf creates a reserved-name error.
func Reservedf(format string, args ...any) *Error {
	return &Error{Code: CodeReservedName, Message: fmt.Sprintf(format, args...)}
}

// Parse wraps a deserialization failure of a backing file.
func Parse(path string, cause error) *Error {
	return &Error{Code: CodeParse, Message: fmt.Sprintf("parse %s", path), Err: cause}
}

// CodeOf extracts the machine code from err, or CodeInternal when the
// error was not produced by this package.
func CodeOf(err error) Code {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeInternal
}
