package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Ensure TimeoutStore implements DocumentStore
var _ DocumentStore = (*TimeoutStore)(nil)

// TimeoutStore bounds every round trip of the wrapped store. An expired budget
// is reported as ErrTimeout so callers can treat it as retryable.
type TimeoutStore struct {
	next    DocumentStore
	timeout time.Duration
}

// NewTimeoutStore wraps next. A non-positive timeout disables the bound.
func NewTimeoutStore(next DocumentStore, timeout time.Duration) *TimeoutStore {
	return &TimeoutStore{next: next, timeout: timeout}
}

func (t *TimeoutStore) withTimeout(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if t.timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%s after %s: %w", op, t.timeout, ErrTimeout)
	}
	return err
}

// Exists checks if a document exists
func (t *TimeoutStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := t.withTimeout(ctx, "exists "+key, func(ctx context.Context) error {
		var err error
		ok, err = t.next.Exists(ctx, key)
		return err
	})
	return ok, err
}

// Read returns the document bytes
func (t *TimeoutStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := t.withTimeout(ctx, "read "+key, func(ctx context.Context) error {
		var err error
		data, err = t.next.Read(ctx, key)
		return err
	})
	return data, err
}

// Write stores a document
func (t *TimeoutStore) Write(ctx context.Context, key string, data []byte) error {
	return t.withTimeout(ctx, "write "+key, func(ctx context.Context) error {
		return t.next.Write(ctx, key, data)
	})
}

// Delete removes a document
func (t *TimeoutStore) Delete(ctx context.Context, key string) error {
	return t.withTimeout(ctx, "delete "+key, func(ctx context.Context) error {
		return t.next.Delete(ctx, key)
	})
}

// ListByPrefix lists keys under prefix
func (t *TimeoutStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := t.withTimeout(ctx, "list "+prefix, func(ctx context.Context) error {
		var err error
		keys, err = t.next.ListByPrefix(ctx, prefix)
		return err
	})
	return keys, err
}
