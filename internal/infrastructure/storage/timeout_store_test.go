package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentStore) Read(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocumentStore) Write(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockDocumentStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockDocumentStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// blockingStore waits for its context to end on every call
type blockingStore struct {
	MemoryDocumentStore
}

func (b *blockingStore) Read(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingStore) Write(ctx context.Context, key string, data []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestTimeoutStore_PassesThrough(t *testing.T) {
	next := new(MockDocumentStore)
	store := NewTimeoutStore(next, time.Second)
	ctx := context.Background()

	next.On("Read", mock.Anything, "k").Return([]byte("v"), nil)
	next.On("Exists", mock.Anything, "k").Return(true, nil)
	next.On("Write", mock.Anything, "k", []byte("v")).Return(nil)
	next.On("Delete", mock.Anything, "k").Return(nil)
	next.On("ListByPrefix", mock.Anything, "p/").Return([]string{"p/a"}, nil)

	data, err := store.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	ok, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Write(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	keys, err := store.ListByPrefix(ctx, "p/")
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a"}, keys)

	next.AssertExpectations(t)
}

func TestTimeoutStore_CallContextHasDeadline(t *testing.T) {
	next := new(MockDocumentStore)
	store := NewTimeoutStore(next, time.Second)

	next.On("Read", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "k").Return([]byte("v"), nil)

	_, err := store.Read(context.Background(), "k")
	require.NoError(t, err)
	next.AssertExpectations(t)
}

func TestTimeoutStore_ExpiredBudgetIsTimeout(t *testing.T) {
	store := NewTimeoutStore(&blockingStore{}, 20*time.Millisecond)

	_, err := store.Read(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsTimeout(err))

	err = store.Write(context.Background(), "k", []byte("v"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTimeoutStore_ParentCancellationIsNotTimeout(t *testing.T) {
	store := NewTimeoutStore(&blockingStore{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := store.Read(ctx, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestTimeoutStore_ErrorsPropagate(t *testing.T) {
	next := new(MockDocumentStore)
	store := NewTimeoutStore(next, time.Second)
	boom := errors.New("boom")

	next.On("Delete", mock.Anything, "k").Return(boom)

	err := store.Delete(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsTimeout(err))
}

func TestTimeoutStore_ZeroTimeoutDisablesBound(t *testing.T) {
	next := new(MockDocumentStore)
	store := NewTimeoutStore(next, 0)

	next.On("Exists", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return !ok
	}), "k").Return(false, nil)

	ok, err := store.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
	next.AssertExpectations(t)
}
