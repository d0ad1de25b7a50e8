package persistence

import (
	"context"

	"github.com/ledger/backend/internal/domain/identity"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/storage"
)

// Ensure DocumentTenantRepository implements identity.TenantRepository
var _ identity.TenantRepository = (*DocumentTenantRepository)(nil)

// DocumentTenantRepository stores tenant master records at tenants/{id}
type DocumentTenantRepository struct {
	store storage.DocumentStore
}

// NewDocumentTenantRepository creates a new DocumentTenantRepository
func NewDocumentTenantRepository(store storage.DocumentStore) *DocumentTenantRepository {
	return &DocumentTenantRepository{store: store}
}

// FindByID finds a tenant by its ID
func (r *DocumentTenantRepository) FindByID(ctx context.Context, id string) (*identity.Tenant, error) {
	return findOne[identity.Tenant](ctx, r.store, tenantKey(id),
		shared.NewNotFoundError("NOT_FOUND", "Tenant not found: "+id))
}

// Save creates or updates a tenant
func (r *DocumentTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	return writeJSON(ctx, r.store, tenantKey(tenant.ID), tenant)
}
