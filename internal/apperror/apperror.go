// Package apperror defines the typed errors shared by every layer.
//
// Repositories and services return these; only the HTTP layer turns them
// into status codes. Callers test the kind with errors.Is against the
// sentinels and read the human message with errors.As into *AppError.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStorage         = errors.New("storage failure")

	// ErrEmailNotFound and ErrInvalidPassword are the two ways a login can
	// fail. They refine the generic kinds so errors.Is matches either level.
	ErrEmailNotFound   = fmt.Errorf("email not found: %w", ErrNotFound)
	ErrInvalidPassword = fmt.Errorf("invalid password: %w", ErrUnauthenticated)
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure, logged but never shown to clients
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
	}
}

func Conflict(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %v", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means no valid session backs the request (401).
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

func EmailNotFound(email string) *AppError {
	return &AppError{
		Err:     ErrEmailNotFound,
		Message: fmt.Sprintf("no account registered for %s", email),
		Field:   "email",
	}
}

func InvalidPassword() *AppError {
	return &AppError{
		Err:     ErrInvalidPassword,
		Message: "invalid password",
		Field:   "password",
	}
}

// StorageFailure wraps an unexpected persistence error. The message stays
// generic; the cause is kept for logs.
func StorageFailure(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: "An internal error occurred",
		Cause:   fmt.Errorf("%s: %w", op, cause),
	}
}

// CauseOf returns the underlying failure recorded on the first *AppError
// in err's chain, or nil when there is none.
func CauseOf(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Cause
	}
	return nil
}

// Typed returns err unchanged when it already carries an *AppError and
// otherwise wraps it as a StorageFailure for op.
func Typed(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return StorageFailure(op, err)
}
