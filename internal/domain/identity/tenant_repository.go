package identity

import (
	"context"
)

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// FindByID finds a tenant by its ID. Returns a NotFound error when no record exists.
	FindByID(ctx context.Context, id string) (*Tenant, error)

	// Save creates or updates a tenant master record
	Save(ctx context.Context, tenant *Tenant) error
}
