// Package persistence implements the ledger repositories as JSON documents in
// a DocumentStore.
package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Document keys. Identifiers are validated by the domain to contain no '/'.
func tenantKey(tenantID string) string {
	return "tenants/" + tenantID
}

func tenantPrefix(tenantID, collection string) string {
	return "tenant/" + tenantID + "/" + collection + "/"
}

func productKey(tenantID, sku string) string {
	return tenantPrefix(tenantID, "products") + sku
}

func movementKey(tenantID, sku string) string {
	return tenantPrefix(tenantID, "movements") + sku
}

func invoiceKey(tenantID, invoiceNumber string) string {
	return tenantPrefix(tenantID, "invoices") + invoiceNumber
}

func customerKey(tenantID, customerID string) string {
	return tenantPrefix(tenantID, "customers") + customerID
}

var readOnlyOps = map[string]bool{"read": true, "exists": true, "list": true}

// errCorrupt marks a document that exists but cannot be decoded
var errCorrupt = errors.New("corrupt document")

// storeError translates a store failure into a StorageFailure domain error.
// Only timeouts and cancellations of read-only operations are retryable; a
// write or delete that timed out may have been applied.
func storeError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errCorrupt) {
		return shared.NewStorageError("CORRUPT_DOCUMENT", "Stored document is unreadable: "+key, err, false)
	}
	if storage.IsTimeout(err) || errors.Is(err, context.Canceled) {
		if !readOnlyOps[op] {
			return shared.NewStorageError("STORE_TIMEOUT_UNKNOWN_OUTCOME",
				"Document store "+op+" timed out and may have been applied: "+key, err, false)
		}
		return shared.NewStorageError("STORE_TIMEOUT", "Document store "+op+" timed out: "+key, err, true)
	}
	return shared.NewStorageError("STORE_FAILURE", "Document store "+op+" failed: "+key, err, false)
}

// readJSON loads key into v. A missing document is returned as
// storage.ErrNotFound, an undecodable one as errCorrupt.
func readJSON(ctx context.Context, store storage.DocumentStore, key string, v any) error {
	data, err := store.Read(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(errCorrupt, err)
	}
	return nil
}

func writeJSON(ctx context.Context, store storage.DocumentStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return shared.NewStorageError("ENCODE_FAILED", "Failed to encode document: "+key, err, false)
	}
	return storeError("write", key, store.Write(ctx, key, data))
}

// findOne reads a single document, mapping absence to notFound
func findOne[T any](ctx context.Context, store storage.DocumentStore, key string, notFound error) (*T, error) {
	var v T
	if err := readJSON(ctx, store, key, &v); err != nil {
		if storage.IsNotFound(err) {
			return nil, notFound
		}
		return nil, storeError("read", key, err)
	}
	return &v, nil
}

// findAll reads every document under prefix. Corrupt or vanished documents
// are logged and skipped; store failures abort the scan.
func findAll[T any](ctx context.Context, store storage.DocumentStore, log *zap.Logger, prefix string) ([]T, error) {
	keys, err := store.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, storeError("list", prefix, err)
	}

	out := make([]T, 0, len(keys))
	for _, key := range keys {
		var v T
		if err := readJSON(ctx, store, key, &v); err != nil {
			switch {
			case storage.IsNotFound(err):
				// deleted between list and read
			case errors.Is(err, errCorrupt):
				logger.WithTraceContext(ctx, log).Warn("Skipping unreadable document",
					zap.String("key", key), zap.Error(err))
			default:
				return nil, storeError("read", key, err)
			}
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func exists(ctx context.Context, store storage.DocumentStore, key string) (bool, error) {
	ok, err := store.Exists(ctx, key)
	if err != nil {
		return false, storeError("exists", key, err)
	}
	return ok, nil
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
