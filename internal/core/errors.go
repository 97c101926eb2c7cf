package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Identity errors
	ErrUnauthenticated = &Error{Code: "UNAUTHENTICATED", Message: "user not authenticated"}

	// Watchlist errors
	ErrAlreadyExists = &Error{Code: "ALREADY_EXISTS", Message: "stock is already in your watchlist"}
	ErrNotFound      = &Error{Code: "NOT_FOUND", Message: "entry not found"}
	ErrInvalidSymbol = &Error{Code: "INVALID_SYMBOL", Message: "invalid symbol"}

	// Dependency errors
	ErrStoreUnavailable    = &Error{Code: "STORE_UNAVAILABLE", Message: "watchlist store unavailable"}
	ErrUpstreamUnavailable = &Error{Code: "UPSTREAM_UNAVAILABLE", Message: "market data provider unavailable"}
	ErrNoData              = &Error{Code: "NO_DATA", Message: "no data available"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
