package types

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means the embedding backend could not be
	// reached or loaded. Surfaced to the caller, never retried internally.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrDimensionMismatch indicates the provider/model changed mid-index.
	// Fatal for the affected operation: similarity math over mixed
	// dimensions would silently corrupt results.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrParseFailure means the extracted text was unreadable. Callers
	// recover by falling back to raw sliding-window chunking.
	ErrParseFailure = errors.New("failed to parse document")

	// ErrNotFound is returned by storage lookups for absent keys.
	ErrNotFound = errors.New("record not found")
)

// StorageError wraps a persistence I/O failure. The wrapped operation may
// be retried by the caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
