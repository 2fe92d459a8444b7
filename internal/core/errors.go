// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrUnavailable  = errors.New("unavailable")

	// ErrCrossTenant means a requested target lives outside the caller's
	// tenant. It always aborts the whole call, never a single item.
	ErrCrossTenant = errors.New("target outside tenant")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")
)

// Wire error codes. The set is closed; handlers must not invent new ones.
const (
	CodePermissionDenied = "permission-denied"
	CodeInvalidArgument  = "invalid-argument"
	CodeUnauthenticated  = "unauthenticated"
	CodeNotFound         = "not-found"
	CodeConflict         = "conflict"
	CodeUnavailable      = "unavailable"
	CodeInternal         = "internal"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

func ForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func InvalidArgumentError(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidArgument,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func TokenExpiredError() *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: "access token expired",
		Status:  http.StatusUnauthorized,
	}
}

func TokenRevokedError() *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: "access token revoked",
		Status:  http.StatusUnauthorized,
	}
}

func TokenInvalidError() *AppError {
	return &AppError{
		Code:    CodeUnauthenticated,
		Message: "access token invalid",
		Status:  http.StatusUnauthorized,
	}
}

// FromError maps sentinel errors onto the wire taxonomy. Unrecognized
// errors map to internal so collaborator failures never leak details.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrCrossTenant):
		return &AppError{
			Code:    CodePermissionDenied,
			Message: "cannot edit users outside of tenant",
			Status:  http.StatusForbidden,
			Err:     err,
		}
	case errors.Is(err, ErrForbidden):
		return &AppError{
			Code:    CodePermissionDenied,
			Message: "insufficient permissions",
			Status:  http.StatusForbidden,
			Err:     err,
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrTokenInvalid):
		return &AppError{
			Code:    CodeUnauthenticated,
			Message: "authentication required",
			Status:  http.StatusUnauthorized,
			Err:     err,
		}
	case errors.Is(err, ErrInvalidInput):
		return &AppError{
			Code:    CodeInvalidArgument,
			Message: "invalid argument",
			Status:  http.StatusBadRequest,
			Err:     err,
		}
	case errors.Is(err, ErrNotFound):
		return &AppError{
			Code:    CodeNotFound,
			Message: "not found",
			Status:  http.StatusNotFound,
			Err:     err,
		}
	case errors.Is(err, ErrDuplicateKey):
		return &AppError{
			Code:    CodeConflict,
			Message: "already exists",
			Status:  http.StatusConflict,
			Err:     err,
		}
	case errors.Is(err, ErrUnavailable):
		return &AppError{
			Code:    CodeUnavailable,
			Message: "service unavailable",
			Status:  http.StatusServiceUnavailable,
			Err:     err,
		}
	default:
		return &AppError{
			Code:    CodeInternal,
			Message: "internal error",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}
}
