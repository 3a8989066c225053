package auth

import (
	"errors"
	"net/http"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrOtpNotFound       = errors.New("otp not found")
	ErrBlacklistNotFound = errors.New("blacklist entry not found")
	ErrTokenReplayed     = errors.New("refresh token already used")
)

// ErrorKind classifies service-level failures so the HTTP edge can
// translate them without inspecting messages.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindRateLimited
	KindConflict
	KindInternal
)

// Error is the typed failure raised at the service boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int // overrides the kind's default status when non-zero
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error to the status contract.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindConflict:
		// Duplicate-key failures in the registration path are treated as
		// unexpected at that stage rather than a routine conflict.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func unprocessableError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Status: http.StatusUnprocessableEntity}
}

func unauthenticatedError(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func forbiddenError(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func rateLimitedError(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

func conflictError(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError extracts a typed service error, wrapping anything else as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalError("internal error", err)
}
