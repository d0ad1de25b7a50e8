package partner

import (
	"context"
	"strings"

	appidentity "github.com/ledger/backend/internal/application/identity"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo partner.CustomerRepository
	gate         appidentity.Authorizer
	clock        shared.Clock
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, gate appidentity.Authorizer) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		gate:         gate,
		clock:        shared.SystemClock,
	}
}

// SetClock overrides the time source
func (s *CustomerService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, tenantID string, req CreateCustomerRequest) (*partner.Customer, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	customer, err := partner.NewCustomer(tenantID, req.profile(), s.clock())
	if err != nil {
		return nil, err
	}

	// Check if phone already exists
	if err := s.ensureUniquePhone(ctx, tenantID, customer.ID, customer.Phone); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// GetByID retrieves a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, tenantID, customerID string) (*partner.Customer, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER_ID", "Customer ID cannot be empty")
	}
	return s.customerRepo.FindByID(ctx, tenantID, customerID)
}

// List returns the tenant's customers ordered by name. A non-empty search
// matches name, phone or tax id case-insensitively.
func (s *CustomerService) List(ctx context.Context, tenantID, search string) ([]partner.Customer, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	customers, err := s.customerRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return customers, nil
	}
	out := make([]partner.Customer, 0, len(customers))
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), search) ||
			strings.Contains(c.Phone, search) ||
			strings.Contains(strings.ToLower(c.TaxID), search) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Update changes a customer's profile
func (s *CustomerService) Update(ctx context.Context, tenantID, customerID string, req UpdateCustomerRequest) (*partner.Customer, error) {
	customer, err := s.GetByID(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}

	if err := customer.Update(req.applyTo(customer.Profile()), s.clock()); err != nil {
		return nil, err
	}
	if err := s.ensureUniquePhone(ctx, tenantID, customer.ID, customer.Phone); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) ensureUniquePhone(ctx context.Context, tenantID, customerID, phone string) error {
	customers, err := s.customerRepo.FindAll(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, c := range customers {
		if c.ID != customerID && c.Phone == phone {
			return shared.NewConflictError("ALREADY_EXISTS", "Customer with this phone already exists")
		}
	}
	return nil
}
