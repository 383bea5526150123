package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorCode string

const (
	ErrInternalServer             ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrInvalidInput               ErrorCode = "INVALID_INPUT"
	ErrInvalidRequestData         ErrorCode = "INVALID_REQUEST_DATA"
	ErrUnauthorized               ErrorCode = "UNAUTHORIZED"
	ErrForbidden                  ErrorCode = "FORBIDDEN"
	ErrNotFound                   ErrorCode = "NOT_FOUND"
	ErrAlreadyExists              ErrorCode = "ALREADY_EXISTS"
	ErrTokenExpired               ErrorCode = "TOKEN_EXPIRED"
	ErrInvalidTokenFormat         ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrMissingAuthorizationHeader ErrorCode = "MISSING_AUTHORIZATION_HEADER"
	ErrCreateFailed               ErrorCode = "CREATE_FAILED"
	ErrUpdateFailed               ErrorCode = "UPDATE_FAILED"
	ErrGetFailed                  ErrorCode = "GET_FAILED"
	ErrDeleteFailed               ErrorCode = "DELETE_FAILED"

	// Waitlist engine
	ErrDuplicateEntry      ErrorCode = "DUPLICATE_ENTRY"
	ErrQuotaExceeded       ErrorCode = "QUOTA_EXCEEDED"
	ErrOfferExpired        ErrorCode = "OFFER_EXPIRED"
	ErrBookingNotFound     ErrorCode = "BOOKING_NOT_FOUND"
	ErrNotifierUnavailable ErrorCode = "NOTIFIER_UNAVAILABLE"
	ErrLockContention      ErrorCode = "LOCK_CONTENTION"
	ErrWaitlistInactive    ErrorCode = "WAITLIST_INACTIVE"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the AppError code carried by err, or "" when err is not an AppError.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if stderrors.As(err, &ae) && ae != nil {
		return ae.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
