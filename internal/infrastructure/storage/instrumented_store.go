package storage

import (
	"context"
	"time"

	"github.com/ledger/backend/internal/infrastructure/telemetry"
)

// Ensure InstrumentedStore implements DocumentStore
var _ DocumentStore = (*InstrumentedStore)(nil)

// InstrumentedStore traces each round trip of the wrapped store and records
// its duration on the ledger metrics.
type InstrumentedStore struct {
	next    DocumentStore
	metrics *telemetry.LedgerMetrics
}

// NewInstrumentedStore wraps next. metrics may be nil.
func NewInstrumentedStore(next DocumentStore, metrics *telemetry.LedgerMetrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: metrics}
}

func (s *InstrumentedStore) observe(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "store", op,
		telemetry.WithAttribute(telemetry.SpanAttrStoreKey, key),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	// Missing documents are an expected outcome, not a failure.
	if err != nil && !IsNotFound(err) {
		telemetry.RecordError(span, err)
		s.metrics.RecordStoreOperation(ctx, op, time.Since(start), err)
		return err
	}
	s.metrics.RecordStoreOperation(ctx, op, time.Since(start), nil)
	return err
}

// Exists checks if a document exists
func (s *InstrumentedStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.observe(ctx, "exists", key, func(ctx context.Context) error {
		var err error
		ok, err = s.next.Exists(ctx, key)
		return err
	})
	return ok, err
}

// Read returns the document bytes
func (s *InstrumentedStore) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.observe(ctx, "read", key, func(ctx context.Context) error {
		var err error
		data, err = s.next.Read(ctx, key)
		return err
	})
	return data, err
}

// Write stores a document
func (s *InstrumentedStore) Write(ctx context.Context, key string, data []byte) error {
	return s.observe(ctx, "write", key, func(ctx context.Context) error {
		return s.next.Write(ctx, key, data)
	})
}

// Delete removes a document
func (s *InstrumentedStore) Delete(ctx context.Context, key string) error {
	return s.observe(ctx, "delete", key, func(ctx context.Context) error {
		return s.next.Delete(ctx, key)
	})
}

// ListByPrefix lists keys under prefix
func (s *InstrumentedStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.observe(ctx, "list", prefix, func(ctx context.Context) error {
		var err error
		keys, err = s.next.ListByPrefix(ctx, prefix)
		return err
	})
	return keys, err
}
