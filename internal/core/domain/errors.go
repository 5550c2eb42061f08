package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("access forbidden")
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrInvalidToken           = errors.New("invalid token")
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	ErrItemNotFound  = fmt.Errorf("item %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrUserExists    = errors.New("user already exists")
)

// Caller-facing error codes.
const (
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeForbidden              = "FORBIDDEN"
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeInternal               = "INTERNAL_ERROR"
	CodeDeliveryFailure        = "DELIVERY_FAILURE"
)

// Error attaches a caller-facing message to one of the sentinel kinds above.
// errors.Is(err, kind) holds for every Error.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func Unauthenticated(msg string) error { return &Error{Kind: ErrAuthenticationRequired, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

func Validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

// NotFound wraps one of the ErrXNotFound sentinels with a message.
func NotFound(kind error, msg string) error { return &Error{Kind: kind, Message: msg} }

// CodeOf maps err to its caller-facing code. Anything unrecognised is
// INTERNAL_ERROR.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthenticationRequired),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidCredentials):
		return CodeAuthenticationRequired
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// MessageOf returns the caller-facing message for an expected error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrAuthenticationRequired), errors.Is(err, ErrInvalidToken):
		return "Authentication required"
	}
	return err.Error()
}

// IsExpected reports whether err belongs to the caller-facing taxonomy rather
// than being an internal failure.
func IsExpected(err error) bool {
	return err != nil && CodeOf(err) != CodeInternal
}
