package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/ledger/backend/internal/domain/inventory"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Ensure DocumentMovementRepository implements inventory.MovementRepository
var _ inventory.MovementRepository = (*DocumentMovementRepository)(nil)

// DocumentMovementRepository keeps each SKU's history as one JSON array at
// tenant/{tenant}/movements/{sku}. Callers hold the SKU lock while appending.
type DocumentMovementRepository struct {
	store  storage.DocumentStore
	logger *zap.Logger
}

// NewDocumentMovementRepository creates a new DocumentMovementRepository
func NewDocumentMovementRepository(store storage.DocumentStore, logger *zap.Logger) *DocumentMovementRepository {
	return &DocumentMovementRepository{store: store, logger: loggerOrNop(logger)}
}

// readHistory returns the decoded history at key plus the number of entries
// that could not be decoded. A document that is not a JSON array is errCorrupt.
func (r *DocumentMovementRepository) readHistory(ctx context.Context, key string) ([]inventory.MovementRecord, int, error) {
	var raw []json.RawMessage
	if err := readJSON(ctx, r.store, key, &raw); err != nil {
		if storage.IsNotFound(err) {
			return []inventory.MovementRecord{}, 0, nil
		}
		return nil, 0, err
	}

	records := make([]inventory.MovementRecord, 0, len(raw))
	skipped := 0
	for _, entry := range raw {
		var rec inventory.MovementRecord
		if err := json.Unmarshal(entry, &rec); err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Append adds record to its SKU's history. A corrupt history is logged and
// replaced by a fresh one; a store failure leaves the history untouched.
func (r *DocumentMovementRepository) Append(ctx context.Context, record *inventory.MovementRecord) error {
	key := movementKey(record.TenantID, record.SKU)

	history, skipped, err := r.readHistory(ctx, key)
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return storeError("read", key, err)
		}
		logger.WithTraceContext(ctx, r.logger).Warn("Movement history unreadable, starting a fresh history",
			zap.String("key", key), zap.Error(err))
		history = []inventory.MovementRecord{}
	}
	if skipped > 0 {
		logger.WithTraceContext(ctx, r.logger).Warn("Dropping unreadable movement entries",
			zap.String("key", key), zap.Int("skipped", skipped))
	}

	history = append(history, *record)
	return writeJSON(ctx, r.store, key, history)
}

// FindBySKU returns one SKU's history in append order. A corrupt history reads
// as empty.
func (r *DocumentMovementRepository) FindBySKU(ctx context.Context, tenantID, sku string) ([]inventory.MovementRecord, error) {
	key := movementKey(tenantID, sku)
	history, skipped, err := r.readHistory(ctx, key)
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return nil, storeError("read", key, err)
		}
		logger.WithTraceContext(ctx, r.logger).Warn("Movement history unreadable",
			zap.String("key", key), zap.Error(err))
		return []inventory.MovementRecord{}, nil
	}
	if skipped > 0 {
		logger.WithTraceContext(ctx, r.logger).Warn("Skipped unreadable movement entries",
			zap.String("key", key), zap.Int("skipped", skipped))
	}
	return history, nil
}

// FindAll returns every SKU's history merged newest first. Records with the
// same timestamp keep reverse append order.
func (r *DocumentMovementRepository) FindAll(ctx context.Context, tenantID string) ([]inventory.MovementRecord, error) {
	prefix := tenantPrefix(tenantID, "movements")
	keys, err := r.store.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, storeError("list", prefix, err)
	}

	all := make([]inventory.MovementRecord, 0)
	for _, key := range keys {
		history, skipped, err := r.readHistory(ctx, key)
		if err != nil {
			if !errors.Is(err, errCorrupt) {
				return nil, storeError("read", key, err)
			}
			logger.WithTraceContext(ctx, r.logger).Warn("Skipping unreadable movement history",
				zap.String("key", key), zap.Error(err))
			continue
		}
		if skipped > 0 {
			logger.WithTraceContext(ctx, r.logger).Warn("Skipped unreadable movement entries",
				zap.String("key", key), zap.Int("skipped", skipped))
		}
		for i := len(history) - 1; i >= 0; i-- {
			all = append(all, history[i])
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all, nil
}
