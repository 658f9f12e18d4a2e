// Package dberr defines the structured failures reported by sistrence.
//
// Every failure is an *Error carrying a Code. Construction problems
// (unknown condition kind, unpreparable value, malformed payload) never reach
// a backend; backend failures carry the backend's message and code and, when
// available, the query text that failed.
//
// All failures also flow through a single Reporter hook so that callers can
// observe them in one place. The default Reporter logs through log/slog.
package dberr

import (
	"errors"
	"fmt"
)

// Code categorizes failures.
type Code string

const (
	// CodeInvalidConditionKind indicates an unknown predicate name after alias resolution.
	CodeInvalidConditionKind Code = "INVALID_CONDITION_KIND"

	// CodeInvalidType indicates a value that cannot be rendered as a backend literal.
	CodeInvalidType Code = "INVALID_TYPE"

	// CodeInvalidData indicates a malformed payload or condition parameters.
	CodeInvalidData Code = "INVALID_DATA"

	// CodeNotImplemented indicates a feature the selected backend does not support.
	CodeNotImplemented Code = "NOT_IMPLEMENTED"

	// CodeBackendQueryFailed indicates the backend rejected or failed a query.
	CodeBackendQueryFailed Code = "BACKEND_QUERY_FAILED"

	// CodeInvalidLink indicates a link id with no registered connection.
	CodeInvalidLink Code = "INVALID_LINK"

	// CodeConfig indicates an unreadable or invalid configuration.
	CodeConfig Code = "CONFIG"
)

// Error is the structured failure type.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Query is the statement that failed, when one was built.
	Query string

	// BackendMessage and BackendCode are copied from the backend error.
	BackendMessage string
	BackendCode    string

	// Value is the offending value for CodeInvalidType.
	Value any

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.BackendMessage != "" {
		if e.BackendCode != "" {
			msg += fmt.Sprintf(" (backend %s: %s)", e.BackendCode, e.BackendMessage)
		} else {
			msg += fmt.Sprintf(" (backend: %s)", e.BackendMessage)
		}
	}
	if e.Query != "" {
		msg += fmt.Sprintf(" [query: %s]", e.Query)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// InvalidConditionKind creates an error for an unknown condition kind.
func InvalidConditionKind(kind string) *Error {
	return &Error{
		Code:    CodeInvalidConditionKind,
		Message: fmt.Sprintf("unknown condition kind %q", kind),
		Value:   kind,
	}
}

// InvalidType creates an error for a value that cannot be prepared.
func InvalidType(value any) *Error {
	return &Error{
		Code:    CodeInvalidType,
		Message: fmt.Sprintf("cannot prepare value of type %T", value),
		Value:   value,
	}
}

// InvalidData creates an error for malformed data.
func InvalidData(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidData,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotImplemented creates an error for an unsupported backend feature.
func NotImplemented(backend, feature string) *Error {
	return &Error{
		Code:    CodeNotImplemented,
		Message: fmt.Sprintf("%s backend does not support %s", backend, feature),
	}
}

// BackendFailed wraps a backend error together with the failing query.
// If err already carries backend details (see BackendDetails), they are
// copied onto the returned error.
func BackendFailed(query string, err error) *Error {
	e := &Error{
		Code:    CodeBackendQueryFailed,
		Message: "query failed",
		Query:   query,
		Err:     err,
	}
	if err != nil {
		e.BackendMessage = err.Error()
		var d BackendDetails
		if errors.As(err, &d) {
			e.BackendMessage = d.BackendMessage()
			e.BackendCode = d.BackendCode()
		}
	}
	return e
}

// BackendDetails is implemented by connector errors that expose the
// backend's own message and code.
type BackendDetails interface {
	error
	BackendMessage() string
	BackendCode() string
}

// InvalidLink creates an error for an unregistered link id.
func InvalidLink(id int) *Error {
	return &Error{
		Code:    CodeInvalidLink,
		Message: fmt.Sprintf("no connection registered for link %d", id),
		Value:   id,
	}
}

// Config wraps a configuration loading error.
func Config(message string, err error) *Error {
	return &Error{
		Code:    CodeConfig,
		Message: message,
		Err:     err,
	}
}
