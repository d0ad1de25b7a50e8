// Package lock serializes mutations of the same product or invoice. Locks are
// keyed, acquired in sorted order and re-entrant along a context chain.
package lock

import (
	"context"
	"sort"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
)

// Locker acquires a set of keyed locks. The returned context records the held
// keys; passing it to a nested Acquire skips keys already held. release must be
// called exactly once and frees only the keys this call acquired.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (context.Context, func(), error)
}

// ProductKey is the lock key of a tenant's SKU
func ProductKey(tenantID, sku string) string {
	return "product:" + tenantID + ":" + sku
}

// InvoiceKey is the lock key of a tenant's invoice number
func InvoiceKey(tenantID, invoiceNumber string) string {
	return "invoice:" + tenantID + ":" + invoiceNumber
}

type heldKey struct{}

// heldKeys returns the keys held by ctx's call chain
func heldKeys(ctx context.Context) map[string]struct{} {
	held, _ := ctx.Value(heldKey{}).(map[string]struct{})
	return held
}

// IsHeld reports whether key is held by ctx's call chain
func IsHeld(ctx context.Context, key string) bool {
	_, ok := heldKeys(ctx)[key]
	return ok
}

// pending returns the sorted, de-duplicated keys not yet held by ctx
func pending(ctx context.Context, keys []string) []string {
	held := heldKeys(ctx)
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := held[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// withHeld returns a child context holding the union of ctx's keys and keys.
// The parent's set is never mutated.
func withHeld(ctx context.Context, keys []string) context.Context {
	parent := heldKeys(ctx)
	held := make(map[string]struct{}, len(parent)+len(keys))
	for k := range parent {
		held[k] = struct{}{}
	}
	for _, k := range keys {
		held[k] = struct{}{}
	}
	return context.WithValue(ctx, heldKey{}, held)
}

// obtainFunc takes one key, returning its release
type obtainFunc func(ctx context.Context, key string) (func(), error)

// acquireAll takes keys one by one in order and rolls back on failure
func acquireAll(ctx context.Context, keys []string, metrics *telemetry.LedgerMetrics, obtain obtainFunc) (context.Context, func(), error) {
	todo := pending(ctx, keys)
	if len(todo) == 0 {
		return ctx, func() {}, nil
	}

	start := time.Now()
	releases := make([]func(), 0, len(todo))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range todo {
		release, err := obtain(ctx, key)
		if err != nil {
			releaseAll()
			metrics.RecordLockWait(ctx, time.Since(start), err)
			return ctx, func() {}, err
		}
		releases = append(releases, release)
	}
	metrics.RecordLockWait(ctx, time.Since(start), nil)

	return withHeld(ctx, todo), releaseAll, nil
}

func notObtained(key string, cause error) error {
	return shared.NewStorageError("LOCK_NOT_OBTAINED", "Could not obtain lock: "+key, cause, true)
}
