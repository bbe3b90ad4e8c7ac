// Package errors provides the structured error types used while building
// detector geometry.
//
// Every failure during a geometry build is fatal, so the codes exist to tell
// callers what went wrong rather than to drive recovery:
//   - INVALID_DIMENSION: a non-positive or inconsistent length, radius or thickness
//   - INVALID_PROFILE: a polycone table the optimizer cannot accept
//   - UNKNOWN_MATERIAL: a material name the material table cannot resolve
//   - INVALID_CONFIG: a malformed catalogue or run configuration
//   - INTERNAL_ERROR: a solid-modeling backend failure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDimension, "crystal radius %.3f mm must be positive", r)
//	err = errors.WithSubject(err, "clover_1")
//	if errors.Is(err, errors.ErrCodeInvalidDimension) {
//	    // report and abort
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes.
const (
	ErrCodeInvalidDimension Code = "INVALID_DIMENSION"
	ErrCodeInvalidProfile   Code = "INVALID_PROFILE"
	ErrCodeUnknownMaterial  Code = "UNKNOWN_MATERIAL"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"
	ErrCodeInternal         Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, the subject it concerns and an
// optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Subject string // Detector instance, target or component name (optional)
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Subject != "" {
		msg = e.Subject + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// WithSubject attaches subject to err while keeping its code.
//
// If err is an *Error without a subject, a copy carrying the subject is
// returned. If it already names a subject, the subject is prefixed to the
// message so the full path (array entry, then component) is kept. Errors
// that are not *Error are wrapped as INTERNAL_ERROR.
func WithSubject(err error, subject string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Code: ErrCodeInternal, Subject: subject, Message: "build failed", Cause: err}
	}
	out := *e
	if out.Subject == "" {
		out.Subject = subject
	} else if out.Subject != subject {
		out.Subject = subject + ": " + out.Subject
	}
	return &out
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// SubjectOf returns the subject recorded on err, or "" if there is none.
func SubjectOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}

// Dimension returns an INVALID_DIMENSION error naming the offending field.
func Dimension(field string, value float64, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidDimension,
		Message: fmt.Sprintf("%s = %g: %s", field, value, fmt.Sprintf(format, args...)),
	}
}

// Positive returns an INVALID_DIMENSION error if value is not strictly
// positive, nil otherwise.
func Positive(field string, value float64) error {
	if value > 0 {
		return nil
	}
	return Dimension(field, value, "must be positive")
}
