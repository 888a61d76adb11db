package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrUnavailable is returned when the store timed out or is busy. Callers
	// may retry the same call.
	ErrUnavailable = errors.New("persistence: store unavailable")
)
