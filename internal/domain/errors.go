package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers. Kinds are stable and machine readable;
// they are what the HTTP layer maps to status codes.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindConflict           Kind = "conflict"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindConversionFailed   Kind = "conversion_failed"
	KindStorageFailure     Kind = "storage_failure"
	KindInternal           Kind = "internal"
)

// Error is a classified error. Message is safe to show to callers; Err holds
// the underlying cause and is only meant for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new classified error
func NewError(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func InvalidInput(message string, err error) *Error {
	return NewError(KindInvalidInput, message, err)
}

func Conflict(message string, err error) *Error {
	return NewError(KindConflict, message, err)
}

func InvalidCredentials() *Error {
	return NewError(KindInvalidCredentials, "invalid email or password", nil)
}

func Unauthorized(message string, err error) *Error {
	return NewError(KindUnauthorized, message, err)
}

func NotFound(message string, err error) *Error {
	return NewError(KindNotFound, message, err)
}

func ConversionFailed(message string, err error) *Error {
	return NewError(KindConversionFailed, message, err)
}

func StorageFailure(message string, err error) *Error {
	return NewError(KindStorageFailure, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
// when err carries no classification.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
