package errors

import (
	"errors"
	"fmt"
)

// Error represents a typed domain error carrying a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on code so callers can use errors.Is against the predefined values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrValidation        = New("VALIDATION_ERROR", "validation failed")
	ErrBadChallenge      = New("BAD_CHALLENGE", "verification code is incorrect")
	ErrBadCredentials    = New("BAD_CREDENTIALS", "username, password or role is incorrect")
	ErrAccountFrozen     = New("ACCOUNT_FROZEN", "account is frozen, contact an administrator")
	ErrTooManyAttempts   = New("TOO_MANY_ATTEMPTS", "too many failed attempts, try again later")
	ErrUnauthorized      = New("UNAUTHORIZED", "unauthorized")
	ErrForbidden         = New("FORBIDDEN", "forbidden")
	ErrNotFound          = New("NOT_FOUND", "resource not found")
	ErrDuplicateUsername = New("DUPLICATE_USERNAME", "username already exists")
	ErrConflict          = New("CONFLICT", "conflict")
	ErrInternal          = New("INTERNAL_ERROR", "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// CodeOf returns the code of err, or an empty string for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
