package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Ensure MemoryDocumentStore implements DocumentStore
var _ DocumentStore = (*MemoryDocumentStore)(nil)

// MemoryDocumentStore keeps documents in process memory.
// Use this for development and tests; contents are lost on restart.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryDocumentStore creates an empty MemoryDocumentStore
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs: make(map[string][]byte),
	}
}

// Exists checks if a document exists
func (m *MemoryDocumentStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkCall(ctx, key); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[key]
	return ok, nil
}

// Read returns a copy of the stored document
func (m *MemoryDocumentStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Write stores a copy of data
func (m *MemoryDocumentStore) Write(ctx context.Context, key string, data []byte) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes a document
func (m *MemoryDocumentStore) Delete(ctx context.Context, key string) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

// ListByPrefix returns matching keys in lexical order
func (m *MemoryDocumentStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored documents
func (m *MemoryDocumentStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func checkCall(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return ctx.Err()
}
