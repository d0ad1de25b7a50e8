package lock

import (
	"context"
	"sync"
	"time"

	"github.com/ledger/backend/internal/infrastructure/telemetry"
)

// Ensure LocalLocker implements Locker
var _ Locker = (*LocalLocker)(nil)

// LocalLocker is an in-process keyed mutex registry. Entries are reference
// counted and dropped once no caller holds or waits for them.
type LocalLocker struct {
	mu          sync.Mutex
	entries     map[string]*entry
	waitTimeout time.Duration
	metrics     *telemetry.LedgerMetrics
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates a LocalLocker. A non-positive waitTimeout waits until
// the context ends. metrics may be nil.
func NewLocalLocker(waitTimeout time.Duration, metrics *telemetry.LedgerMetrics) *LocalLocker {
	return &LocalLocker{
		entries:     make(map[string]*entry),
		waitTimeout: waitTimeout,
		metrics:     metrics,
	}
}

// Acquire takes every key not already held by ctx
func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (context.Context, func(), error) {
	return acquireAll(ctx, keys, l.metrics, l.obtain)
}

func (l *LocalLocker) obtain(ctx context.Context, key string) (func(), error) {
	e := l.ref(key)

	waitCtx := ctx
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	select {
	case e.sem <- struct{}{}:
	case <-waitCtx.Done():
		l.unref(key)
		return nil, notObtained(key, waitCtx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(key)
		})
	}, nil
}

func (l *LocalLocker) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of keys currently held or waited on
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
