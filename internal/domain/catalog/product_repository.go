package catalog

import (
	"context"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindBySKU finds a product by SKU. Returns a NotFound error when absent.
	FindBySKU(ctx context.Context, tenantID, sku string) (*Product, error)

	// FindAll returns every product of the tenant, ordered by SKU.
	// Unreadable product documents are skipped.
	FindAll(ctx context.Context, tenantID string) ([]Product, error)

	// ExistsBySKU checks if a product with the given SKU exists
	ExistsBySKU(ctx context.Context, tenantID, sku string) (bool, error)

	// Save creates or replaces a product
	Save(ctx context.Context, product *Product) error

	// Delete removes a product
	Delete(ctx context.Context, tenantID, sku string) error
}
