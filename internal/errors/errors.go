package errors

import (
	"errors"
	"fmt"
)

// Common error types for the application
var (
	// Session errors
	ErrExpired        = errors.New("session expired")
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionRevoked = errors.New("session revoked")

	// OAuth errors
	ErrInvalidGrant   = errors.New("invalid grant")
	ErrInvalidState   = errors.New("invalid state")
	ErrInvalidRequest = errors.New("invalid request")

	// Storage errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransport        = errors.New("transport error")
	ErrAmbiguousFolder  = errors.New("ambiguous folder")
	ErrNotFound         = errors.New("not found")
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
