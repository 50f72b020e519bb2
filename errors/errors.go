package errors

import (
	stderrors "errors"
	"fmt"
)

// Standard error codes
const (
	ErrInvalidRequest      = 400
	ErrUnauthorized        = 401
	ErrForbidden           = 403
	ErrNotFound            = 404
	ErrConflict            = 409
	ErrInternalServerError = 500
	ErrServiceUnavailable  = 503

	// Session error codes (1000+)
	ErrValidation           = 1001
	ErrServiceRejection     = 1002
	ErrNetworkFailure       = 1003
	ErrConsistencyViolation = 1004
	ErrInvalidTransition    = 1005
	ErrStorage              = 1006
	ErrPayload              = 1007
	ErrConfig               = 1008
	ErrGameNotFound         = 1009
)

// Validation reasons
const (
	ReasonStakeNotAllowed     = "STAKE_NOT_ALLOWED"
	ReasonInsufficientBalance = "INSUFFICIENT_BALANCE"
	ReasonSessionActive       = "SESSION_ACTIVE"
	ReasonActionNotAllowed    = "ACTION_NOT_ALLOWED"
)

// AppError represents a custom application error
type AppError struct {
	Code         int    `json:"code"`
	Reason       string `json:"reason,omitempty"`
	Message      string `json:"message"`
	DebugMessage string `json:"debug_message,omitempty"`
	Err          error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = e.Reason + ": " + msg
	}
	if e.DebugMessage != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, msg, e.DebugMessage)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s [%v]", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, msg)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithReason creates a new AppError carrying a machine readable reason
func NewWithReason(code int, reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// NewWithDebug creates a new AppError with a debug message
func NewWithDebug(code int, message string, debugMessage string) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		DebugMessage: debugMessage,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapWithDebug wraps an existing error into an AppError with a debug message
func WrapWithDebug(err error, code int, message string, debugMessage string) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		DebugMessage: debugMessage,
		Err:          err,
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// As returns the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode extracts error code from an error
func GetCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrInternalServerError
}

// ReasonOf extracts the reason from an error, empty when none is set
func ReasonOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Reason
	}
	return ""
}

func IsValidation(err error) bool           { return GetCode(err) == ErrValidation }
func IsServiceRejection(err error) bool     { return GetCode(err) == ErrServiceRejection }
func IsNetworkFailure(err error) bool       { return GetCode(err) == ErrNetworkFailure }
func IsUnauthorized(err error) bool         { return GetCode(err) == ErrUnauthorized }
func IsInvalidTransition(err error) bool    { return GetCode(err) == ErrInvalidTransition }
func IsConsistencyViolation(err error) bool { return GetCode(err) == ErrConsistencyViolation }

// HTTPStatusFromCode maps error codes to HTTP status codes
func HTTPStatusFromCode(code int) int {
	switch code {
	case ErrInvalidRequest:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrForbidden:
		return 403
	case ErrNotFound:
		return 404
	case ErrConflict:
		return 409
	case ErrInternalServerError:
		return 500
	case ErrServiceUnavailable:
		return 503
	case ErrValidation:
		return 422
	case ErrServiceRejection:
		return 409
	case ErrNetworkFailure:
		return 502
	case ErrInvalidTransition:
		return 409
	case ErrGameNotFound:
		return 404
	case ErrPayload:
		return 502
	default:
		return 500
	}
}
