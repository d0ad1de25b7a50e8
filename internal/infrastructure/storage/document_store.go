// Package storage provides keyed document store implementations used by the
// ledger repositories.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Read when no document exists under the key
	ErrNotFound = errors.New("document not found")
	// ErrTimeout is returned when a store round trip exceeds its budget
	ErrTimeout = errors.New("document store operation timed out")
	// ErrInvalidKey is returned for empty keys
	ErrInvalidKey = errors.New("storage key is required")
)

// DocumentStore is a whole-object keyed store. It offers no transactions and
// no conditional writes; callers serialize access per key themselves.
type DocumentStore interface {
	// Exists reports whether a document is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// Read returns the document bytes, or ErrNotFound
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key, replacing any previous document
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// ListByPrefix returns every key that starts with prefix, in lexical order
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// IsNotFound reports whether err means the document does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err is a store timeout or context deadline
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
