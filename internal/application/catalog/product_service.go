package catalog

import (
	"context"
	"fmt"
	"strings"

	appidentity "github.com/ledger/backend/internal/application/identity"
	appinventory "github.com/ledger/backend/internal/application/inventory"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/lock"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// openingStockNote labels the receipt that records a product's opening stock
const openingStockNote = "Opening stock"

// StockReceiver receives stock into an existing product
type StockReceiver interface {
	StockIn(ctx context.Context, tenantID, sku string, cmd appinventory.StockInCommand) (*catalog.Product, error)
}

// ProductService handles product catalog operations. Stock and cost basis are
// owned by the valuation service and never change here.
type ProductService struct {
	productRepo catalog.ProductRepository
	stock       StockReceiver
	gate        appidentity.Authorizer
	locker      lock.Locker
	clock       shared.Clock
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	stock StockReceiver,
	gate appidentity.Authorizer,
	locker lock.Locker,
) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		stock:       stock,
		gate:        gate,
		locker:      locker,
		clock:       shared.SystemClock,
	}
}

// SetClock overrides the time source
func (s *ProductService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// Create creates a new product. A positive opening stock is received at the
// cost price so it shows up in the movement history.
func (s *ProductService) Create(ctx context.Context, tenantID string, req CreateProductRequest) (*catalog.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "create",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, req.SKU),
	)
	defer span.End()

	product, err := s.create(ctx, tenantID, req)
	telemetry.RecordError(span, err)
	return product, err
}

func (s *ProductService) create(ctx context.Context, tenantID string, req CreateProductRequest) (*catalog.Product, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	if req.OpeningStock < 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Opening stock cannot be negative")
	}

	product, err := catalog.NewProduct(tenantID, req.SKU, req.details(), s.clock())
	if err != nil {
		return nil, err
	}

	ctx, release, err := s.locker.Acquire(ctx, lock.ProductKey(tenantID, product.SKU))
	if err != nil {
		return nil, err
	}
	defer release()

	exists, err := s.productRepo.ExistsBySKU(ctx, tenantID, product.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("PRODUCT_EXISTS",
			fmt.Sprintf("Product with SKU %s already exists", product.SKU))
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if req.OpeningStock == 0 {
		return product, nil
	}

	cost := product.CostPrice
	stocked, err := s.stock.StockIn(ctx, tenantID, product.SKU, appinventory.StockInCommand{
		Quantity:    req.OpeningStock,
		CostPerUnit: &cost,
		Note:        openingStockNote,
	})
	if err != nil {
		// Leave no half-created product behind
		if delErr := s.productRepo.Delete(ctx, tenantID, product.SKU); delErr != nil {
			logger.L(ctx).Error("Failed to remove product after opening stock failure",
				zap.String("tenant_id", tenantID),
				zap.String("sku", product.SKU),
				zap.Error(delErr),
			)
		}
		return nil, err
	}
	return stocked, nil
}

// GetBySKU returns a product
func (s *ProductService) GetBySKU(ctx context.Context, tenantID, sku string) (*catalog.Product, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if err := catalog.ValidateSKU(sku); err != nil {
		return nil, err
	}
	return s.productRepo.FindBySKU(ctx, tenantID, sku)
}

// List returns the tenant's products ordered by SKU
func (s *ProductService) List(ctx context.Context, tenantID string, filter ProductFilter) ([]catalog.Product, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	products, err := s.productRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(filter.Category)
	if category == "" && !filter.LowStock {
		return products, nil
	}
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if filter.LowStock && !p.IsLowStock() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Update changes catalog attributes. Already issued invoices keep the prices
// they were created with.
func (s *ProductService) Update(ctx context.Context, tenantID, sku string, req UpdateProductRequest) (*catalog.Product, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if err := catalog.ValidateSKU(sku); err != nil {
		return nil, err
	}

	ctx, release, err := s.locker.Acquire(ctx, lock.ProductKey(tenantID, sku))
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.productRepo.FindBySKU(ctx, tenantID, sku)
	if err != nil {
		return nil, err
	}
	if err := product.Update(req.applyTo(product), s.clock()); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product. Its movement history is kept for audit.
func (s *ProductService) Delete(ctx context.Context, tenantID, sku string) error {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return err
	}
	sku = strings.TrimSpace(sku)
	if err := catalog.ValidateSKU(sku); err != nil {
		return err
	}

	ctx, release, err := s.locker.Acquire(ctx, lock.ProductKey(tenantID, sku))
	if err != nil {
		return err
	}
	defer release()

	exists, err := s.productRepo.ExistsBySKU(ctx, tenantID, sku)
	if err != nil {
		return err
	}
	if !exists {
		return shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Product %s not found", sku))
	}
	return s.productRepo.Delete(ctx, tenantID, sku)
}
