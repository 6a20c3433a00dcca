// Package errors provides coded domain errors for the report pipeline.
//
// Usage:
//
//	// In stages - return typed errors
//	if _, err := os.Stat(path); os.IsNotExist(err) {
//	    return errors.MissingInputf("records file %s not found", path)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrMissingInput) {
//	    log.Error(err.Error())
//	    return nil
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the pipeline.
const (
	CodeMissingInput   Code = "MISSING_INPUT"
	CodeParse          Code = "PARSE"
	CodeFetch          Code = "FETCH"
	CodeRender         Code = "RENDER"
	CodeRelocationMiss Code = "RELOCATION_MISS"
	CodeValidation     Code = "VALIDATION"
	CodeInternal       Code = "INTERNAL"
)

// Recoverable reports whether a stage may log an error with this code and carry on.
func (c Code) Recoverable() bool {
	switch c {
	case CodeMissingInput, CodeFetch, CodeRender, CodeRelocationMiss:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrMissingInput   = &Error{Code: CodeMissingInput, Message: "missing input"}
	ErrParse          = &Error{Code: CodeParse, Message: "parse error"}
	ErrFetch          = &Error{Code: CodeFetch, Message: "fetch failed"}
	ErrRender         = &Error{Code: CodeRender, Message: "render failed"}
	ErrRelocationMiss = &Error{Code: CodeRelocationMiss, Message: "relocation miss"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MissingInputf creates a missing input error with formatted message.
func MissingInputf(format string, args ...any) *Error {
	return &Error{Code: CodeMissingInput, Message: fmt.Sprintf(format, args...)}
}

// Parsef creates a parse error with formatted message.
func Parsef(format string, args ...any) *Error {
	return &Error{Code: CodeParse, Message: fmt.Sprintf(format, args...)}
}

// Fetchf creates a fetch error with formatted message.
func Fetchf(format string, args ...any) *Error {
	return &Error{Code: CodeFetch, Message: fmt.Sprintf(format, args...)}
}

// Renderf creates a render error with formatted message.
func Renderf(format string, args ...any) *Error {
	return &Error{Code: CodeRender, Message: fmt.Sprintf(format, args...)}
}

// RelocationMissf creates a relocation miss error with formatted message.
func RelocationMissf(format string, args ...any) *Error {
	return &Error{Code: CodeRelocationMiss, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
