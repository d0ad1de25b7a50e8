package persistence

import (
	"context"
	"sort"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Ensure DocumentProductRepository implements catalog.ProductRepository
var _ catalog.ProductRepository = (*DocumentProductRepository)(nil)

// DocumentProductRepository stores one document per product at
// tenant/{tenant}/products/{sku}
type DocumentProductRepository struct {
	store  storage.DocumentStore
	logger *zap.Logger
}

// NewDocumentProductRepository creates a new DocumentProductRepository
func NewDocumentProductRepository(store storage.DocumentStore, logger *zap.Logger) *DocumentProductRepository {
	return &DocumentProductRepository{store: store, logger: loggerOrNop(logger)}
}

// FindBySKU finds a product by SKU
func (r *DocumentProductRepository) FindBySKU(ctx context.Context, tenantID, sku string) (*catalog.Product, error) {
	return findOne[catalog.Product](ctx, r.store, productKey(tenantID, sku),
		shared.NewNotFoundError("NOT_FOUND", "Product not found: "+sku))
}

// FindAll returns every readable product ordered by SKU
func (r *DocumentProductRepository) FindAll(ctx context.Context, tenantID string) ([]catalog.Product, error) {
	products, err := findAll[catalog.Product](ctx, r.store, r.logger, tenantPrefix(tenantID, "products"))
	if err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].SKU < products[j].SKU
	})
	return products, nil
}

// ExistsBySKU checks if a product document exists
func (r *DocumentProductRepository) ExistsBySKU(ctx context.Context, tenantID, sku string) (bool, error) {
	return exists(ctx, r.store, productKey(tenantID, sku))
}

// Save creates or replaces a product
func (r *DocumentProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return writeJSON(ctx, r.store, productKey(product.TenantID, product.SKU), product)
}

// Delete removes a product. Its movement history is kept.
func (r *DocumentProductRepository) Delete(ctx context.Context, tenantID, sku string) error {
	key := productKey(tenantID, sku)
	return storeError("delete", key, r.store.Delete(ctx, key))
}
