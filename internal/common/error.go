// Package common defines shared constants and sentinel errors used across
// the cardsync layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// StorageFault covers serialization, quota and substrate failures on
	// local reads or writes.
	ErrStorageFault = errors.New("storage fault")

	// ConflictDuringConsolidation marks a legacy location that could not be
	// fully merged into the canonical namespace.
	ErrConflictDuringConsolidation = errors.New("conflict during consolidation")

	// Remote errors.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrRemoteRejected    = errors.New("remote rejected")

	// ErrNotAuthenticated is the steady state of anonymous use. It suppresses
	// remote sync and is never reported to the user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// Validation errors.
	ErrInvalidField = errors.New("invalid field")
	ErrInvalidTTL   = errors.New("invalid ttl")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// LocationError ties a failure to the storage location it happened in.
type LocationError struct {
	Key string
	Err error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("location %q: %v", e.Key, e.Err)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// StorageFault wraps err so that errors.Is(err, ErrStorageFault) holds.
func StorageFault(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFault, err)
}
