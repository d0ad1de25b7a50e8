package partner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/identity"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mocks
// =============================================================================

// MockCustomerRepository is a mock implementation of partner.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, tenantID, id string) (*partner.Customer, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, tenantID string) ([]partner.Customer, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return m.Called(ctx, customer).Error(0)
}

// MockAuthorizer is a mock tenant gate
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(ctx context.Context, tenantID string) (*identity.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

const testTenant = "acme"

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func setupCustomerService() (*CustomerService, *MockCustomerRepository, *MockAuthorizer) {
	repo := new(MockCustomerRepository)
	gate := new(MockAuthorizer)
	gate.On("Authorize", mock.Anything, testTenant).Return(&identity.Tenant{ID: testTenant, Status: identity.TenantStatusActive}, nil)
	svc := NewCustomerService(repo, gate)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc, repo, gate
}

func existingCustomer(t *testing.T, name, phone string) partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer(testTenant, partner.CustomerProfile{Name: name, Phone: phone}, fixedNow)
	require.NoError(t, err)
	return *c
}

// =============================================================================
// Tests
// =============================================================================

func TestCustomerService_Create_Success(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()

	repo.On("FindAll", ctx, testTenant).Return([]partner.Customer{}, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*partner.Customer")).Return(nil)

	c, err := svc.Create(ctx, testTenant, CreateCustomerRequest{
		Name:    "Ravi Kumar",
		Phone:   "+91 98765 43210",
		TaxID:   "29ABCDE1234F1Z5",
		Pincode: "560001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, testTenant, c.TenantID)
	assert.Equal(t, "Ravi Kumar", c.Name)
	assert.Equal(t, fixedNow, c.CreatedAt)
	repo.AssertExpectations(t)
}

func TestCustomerService_Create_DuplicatePhone(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()

	repo.On("FindAll", ctx, testTenant).Return([]partner.Customer{existingCustomer(t, "Someone", "555-0100")}, nil)

	_, err := svc.Create(ctx, testTenant, CreateCustomerRequest{Name: "Jane", Phone: "555-0100"})
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCustomerService_Create_Validation(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()

	_, err := svc.Create(ctx, testTenant, CreateCustomerRequest{Name: "Jane"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, testTenant, CreateCustomerRequest{Phone: "555-0100"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCustomerService_Create_SuspendedTenant(t *testing.T) {
	repo := new(MockCustomerRepository)
	gate := new(MockAuthorizer)
	gate.On("Authorize", mock.Anything, "frozen").
		Return(nil, shared.NewForbiddenError("TENANT_SUSPENDED", "Tenant frozen is SUSPENDED"))
	svc := NewCustomerService(repo, gate)

	_, err := svc.Create(context.Background(), "frozen", CreateCustomerRequest{Name: "Jane", Phone: "555"})
	assert.Equal(t, shared.KindForbidden, shared.KindOf(err))
	repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
}

func TestCustomerService_GetByID(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()
	c := existingCustomer(t, "Jane", "555-0100")

	repo.On("FindByID", ctx, testTenant, c.ID).Return(&c, nil)
	repo.On("FindByID", ctx, testTenant, "missing").Return(nil, shared.NewNotFoundError("NOT_FOUND", "Customer not found: missing"))

	got, err := svc.GetByID(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)

	_, err = svc.GetByID(ctx, testTenant, "missing")
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	_, err = svc.GetByID(ctx, testTenant, " ")
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestCustomerService_List(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()

	repo.On("FindAll", ctx, testTenant).Return([]partner.Customer{
		existingCustomer(t, "Anita", "111"),
		existingCustomer(t, "Bharat", "222"),
		existingCustomer(t, "Chitra", "333"),
	}, nil)

	all, err := svc.List(ctx, testTenant, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := svc.List(ctx, testTenant, "BHA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Bharat", found[0].Name)

	byPhone, err := svc.List(ctx, testTenant, "33")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "Chitra", byPhone[0].Name)
}

func TestCustomerService_List_StoreFailure(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()

	repo.On("FindAll", ctx, testTenant).Return(nil, shared.NewStorageError("STORE_TIMEOUT", "timed out", errors.New("deadline"), true))

	_, err := svc.List(ctx, testTenant, "")
	assert.Equal(t, shared.KindStorage, shared.KindOf(err))
}

func TestCustomerService_Update(t *testing.T) {
	svc, repo, _ := setupCustomerService()
	ctx := context.Background()
	c := existingCustomer(t, "Jane", "555-0100")
	other := existingCustomer(t, "Other", "555-0199")

	repo.On("FindByID", ctx, testTenant, c.ID).Return(&c, nil)
	repo.On("FindAll", ctx, testTenant).Return([]partner.Customer{c, other}, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*partner.Customer")).Return(nil)

	name := "Jane Smith"
	updated, err := svc.Update(ctx, testTenant, c.ID, UpdateCustomerRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Equal(t, "555-0100", updated.Phone)

	taken := "555-0199"
	_, err = svc.Update(ctx, testTenant, c.ID, UpdateCustomerRequest{Phone: &taken})
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	repo.AssertNumberOfCalls(t, "Save", 1)
}
