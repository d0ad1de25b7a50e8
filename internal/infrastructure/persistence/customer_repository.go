package persistence

import (
	"context"
	"sort"
	"strings"

	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Ensure DocumentCustomerRepository implements partner.CustomerRepository
var _ partner.CustomerRepository = (*DocumentCustomerRepository)(nil)

// DocumentCustomerRepository stores customers at tenant/{tenant}/customers/{id}
type DocumentCustomerRepository struct {
	store  storage.DocumentStore
	logger *zap.Logger
}

// NewDocumentCustomerRepository creates a new DocumentCustomerRepository
func NewDocumentCustomerRepository(store storage.DocumentStore, logger *zap.Logger) *DocumentCustomerRepository {
	return &DocumentCustomerRepository{store: store, logger: loggerOrNop(logger)}
}

// FindByID finds a customer by ID
func (r *DocumentCustomerRepository) FindByID(ctx context.Context, tenantID, id string) (*partner.Customer, error) {
	return findOne[partner.Customer](ctx, r.store, customerKey(tenantID, id),
		shared.NewNotFoundError("NOT_FOUND", "Customer not found: "+id))
}

// FindAll returns every readable customer ordered by name
func (r *DocumentCustomerRepository) FindAll(ctx context.Context, tenantID string) ([]partner.Customer, error) {
	customers, err := findAll[partner.Customer](ctx, r.store, r.logger, tenantPrefix(tenantID, "customers"))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(customers, func(i, j int) bool {
		return strings.ToLower(customers[i].Name) < strings.ToLower(customers[j].Name)
	})
	return customers, nil
}

// Save creates or replaces a customer
func (r *DocumentCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return writeJSON(ctx, r.store, customerKey(customer.TenantID, customer.ID), customer)
}
