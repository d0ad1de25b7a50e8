package identity

import (
	"context"
	"fmt"

	"github.com/ledger/backend/internal/domain/identity"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Authorizer resolves the tenant of a request and rejects inactive ones.
// Every ledger operation calls it before touching tenant data.
type Authorizer interface {
	Authorize(ctx context.Context, tenantID string) (*identity.Tenant, error)
}

// Ensure TenantGate implements Authorizer
var _ Authorizer = (*TenantGate)(nil)

// TenantGate authorizes tenants against their master records
type TenantGate struct {
	tenantRepo identity.TenantRepository
}

// NewTenantGate creates a new TenantGate
func NewTenantGate(tenantRepo identity.TenantRepository) *TenantGate {
	return &TenantGate{tenantRepo: tenantRepo}
}

// Authorize returns the tenant when it exists and is active
func (g *TenantGate) Authorize(ctx context.Context, tenantID string) (*identity.Tenant, error) {
	if err := identity.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	tenant, err := g.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, shared.NewForbiddenError("TENANT_SUSPENDED",
			fmt.Sprintf("Tenant %s is %s", tenantID, tenant.Status))
	}
	return tenant, nil
}

// EnsureTenant creates the tenant if it does not exist yet. It is used to seed
// a development tenant at startup; an existing record is returned unchanged.
func EnsureTenant(ctx context.Context, repo identity.TenantRepository, id, name, timezone string) (*identity.Tenant, error) {
	existing, err := repo.FindByID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !shared.IsKind(err, shared.KindNotFound) {
		return nil, err
	}

	tenant, err := identity.NewTenant(id, name)
	if err != nil {
		return nil, err
	}
	if timezone != "" {
		if err := tenant.SetTimezone(timezone); err != nil {
			return nil, err
		}
	}
	if err := repo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Seeded tenant", zap.String("tenant_id", tenant.ID), zap.String("name", tenant.Name))
	return tenant, nil
}
