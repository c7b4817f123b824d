package errors

import (
	"errors"
	"fmt"
)

// Common error types for the admin auth client
var (
	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptStorage     = errors.New("corrupt storage")

	// Token errors
	ErrNoAccessToken  = errors.New("no access token")
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrMalformedToken = errors.New("malformed token")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionInvalid   = errors.New("session invalid")

	// Console errors
	ErrLoginSessionNotFound = errors.New("login session not found")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
