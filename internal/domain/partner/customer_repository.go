package partner

import (
	"context"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by ID. Returns a NotFound error when absent.
	FindByID(ctx context.Context, tenantID, id string) (*Customer, error)

	// FindAll returns every readable customer of the tenant, ordered by name
	FindAll(ctx context.Context, tenantID string) ([]Customer, error)

	// Save creates or replaces a customer
	Save(ctx context.Context, customer *Customer) error
}
