package domain

import "errors"

var (
	// ErrNotFound is returned when an addressed event (or owner) does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned before any persistence when a request is malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProviderUnavailable wraps distance provider failures that abort an operation.
	ErrProviderUnavailable = errors.New("distance provider unavailable")
	// ErrConcurrentModification means the stored version no longer matches the snapshot that was read.
	ErrConcurrentModification = errors.New("concurrent modification")
)
