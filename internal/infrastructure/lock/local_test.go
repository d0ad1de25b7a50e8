package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "product:t1:SKU-1", ProductKey("t1", "SKU-1"))
	assert.Equal(t, "invoice:t1:INV-1", InvoiceKey("t1", "INV-1"))
}

func TestPending_SortsDedupsAndSkipsHeld(t *testing.T) {
	ctx := withHeld(context.Background(), []string{"b"})
	assert.Equal(t, []string{"a", "c"}, pending(ctx, []string{"c", "b", "a", "c"}))
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	locker := NewLocalLocker(0, nil)
	key := ProductKey("t1", "A")

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := locker.Acquire(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locker.Len(), "entries are dropped once released")
}

func TestLocalLocker_ReentrantAlongContext(t *testing.T) {
	locker := NewLocalLocker(50*time.Millisecond, nil)
	invoice := InvoiceKey("t1", "INV-1")
	sku := ProductKey("t1", "A")

	ctx, release, err := locker.Acquire(context.Background(), invoice, sku)
	require.NoError(t, err)
	assert.True(t, IsHeld(ctx, invoice))
	assert.True(t, IsHeld(ctx, sku))

	// nested acquisition of a held key does not block
	inner, innerRelease, err := locker.Acquire(ctx, sku)
	require.NoError(t, err)
	assert.True(t, IsHeld(inner, sku))
	innerRelease()

	// the outer hold survives the nested release
	_, _, err = locker.Acquire(context.Background(), sku)
	require.Error(t, err)

	release()
	_, release2, err := locker.Acquire(context.Background(), sku)
	require.NoError(t, err)
	release2()
}

func TestLocalLocker_WaitTimeoutIsRetryableStorageFailure(t *testing.T) {
	locker := NewLocalLocker(20*time.Millisecond, nil)
	key := ProductKey("t1", "A")

	_, release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	_, _, err = locker.Acquire(context.Background(), key)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, shared.KindStorage, de.Kind)
	assert.Equal(t, "LOCK_NOT_OBTAINED", de.Code)
	assert.True(t, de.Retryable)
	assert.Equal(t, 1, locker.Len())
}

func TestLocalLocker_FailureReleasesPartialAcquisition(t *testing.T) {
	locker := NewLocalLocker(20*time.Millisecond, nil)
	a, b := ProductKey("t1", "A"), ProductKey("t1", "B")

	_, releaseB, err := locker.Acquire(context.Background(), b)
	require.NoError(t, err)

	_, _, err = locker.Acquire(context.Background(), a, b)
	require.Error(t, err)

	// A was rolled back
	_, releaseA, err := locker.Acquire(context.Background(), a)
	require.NoError(t, err)
	releaseA()
	releaseB()
	assert.Zero(t, locker.Len())
}

func TestLocalLocker_ContextCancellation(t *testing.T) {
	locker := NewLocalLocker(0, nil)
	key := ProductKey("t1", "A")
	_, release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = locker.Acquire(ctx, key)
	assert.True(t, shared.IsKind(err, shared.KindStorage))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := NewLocalLocker(0, nil)
	_, release, err := locker.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
	assert.NotPanics(t, release)
	assert.Zero(t, locker.Len())
}

func TestLocalLocker_OppositeOrderDoesNotDeadlock(t *testing.T) {
	locker := NewLocalLocker(0, nil)
	a, b := ProductKey("t1", "A"), ProductKey("t1", "B")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, release, err := locker.Acquire(context.Background(), a, b)
			assert.NoError(t, err)
			release()
		}()
		go func() {
			defer wg.Done()
			_, release, err := locker.Acquire(context.Background(), b, a)
			assert.NoError(t, err)
			release()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock acquisition deadlocked")
	}
}
