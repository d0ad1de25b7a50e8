package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	skuPattern        = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	maxTaxPercent     = decimal.NewFromInt(100)
	defaultUnit       = "pcs"
	maxSKULength      = 50
	maxNameLength     = 200
	maxCategoryLength = 100
)

// ProductDetails holds the catalog attributes of a product. They never affect
// stock or the cost basis.
type ProductDetails struct {
	Name         string
	Category     string
	Unit         string
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	TaxPercent   decimal.Decimal
	ReorderLevel int64
}

// Product represents a stocked SKU of a tenant together with its valuation.
// InventoryValue always equals round2(StockOnHand * AverageCost) at rest.
type Product struct {
	TenantID       string          `json:"tenant_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Unit           string          `json:"unit"`
	CostPrice      decimal.Decimal `json:"cost_price"` // Catalog/reference cost, snapshotted by invoices
	SellingPrice   decimal.Decimal `json:"selling_price"`
	TaxPercent     decimal.Decimal `json:"tax_percent"`
	ReorderLevel   int64           `json:"reorder_level"`
	StockOnHand    int64           `json:"stock_on_hand"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	shared.Timestamps
}

// NewProduct creates a product with no stock
func NewProduct(tenantID, sku string, details ProductDetails, now time.Time) (*Product, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := ValidateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateDetails(&details); err != nil {
		return nil, err
	}

	p := &Product{
		TenantID:       tenantID,
		SKU:            strings.TrimSpace(sku),
		AverageCost:    decimal.Zero,
		InventoryValue: decimal.Zero,
		Timestamps:     shared.NewTimestamps(now),
	}
	p.applyDetails(details)
	return p, nil
}

// Update replaces the catalog attributes. Stock and cost basis are untouched.
func (p *Product) Update(details ProductDetails, now time.Time) error {
	if err := validateDetails(&details); err != nil {
		return err
	}
	p.applyDetails(details)
	p.Touch(now)
	return nil
}

func (p *Product) applyDetails(d ProductDetails) {
	p.Name = strings.TrimSpace(d.Name)
	p.Category = strings.TrimSpace(d.Category)
	p.Unit = d.Unit
	p.CostPrice = shared.RoundMoney(d.CostPrice)
	p.SellingPrice = shared.RoundMoney(d.SellingPrice)
	p.TaxPercent = d.TaxPercent.Round(2)
	p.ReorderLevel = d.ReorderLevel
}

// ReceiveStock adds quantity units to the stock on hand.
//
// A regular receipt blends costPerUnit into the weighted average cost:
//
//	avg = round2((stockOnHand*avg + quantity*costPerUnit) / (stockOnHand + quantity))
//
// A reversal restores quantity without touching the average cost, so undoing
// an earlier deduction never shifts the cost basis. costPerUnit is ignored for
// reversals and may be nil.
func (p *Product) ReceiveStock(quantity int64, costPerUnit *decimal.Decimal, reversal bool, now time.Time) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !reversal {
		if costPerUnit == nil {
			return shared.NewValidationError("INVALID_COST", "Cost per unit is required")
		}
		if costPerUnit.IsNegative() {
			return shared.NewValidationError("INVALID_COST", "Cost per unit cannot be negative")
		}
	}

	newQty := p.StockOnHand + quantity
	if !reversal {
		existing := decimal.NewFromInt(p.StockOnHand).Mul(p.AverageCost)
		incoming := decimal.NewFromInt(quantity).Mul(*costPerUnit)
		p.AverageCost = shared.RoundMoney(existing.Add(incoming).Div(decimal.NewFromInt(newQty)))
	}
	p.StockOnHand = newQty
	p.revalue()
	p.Touch(now)
	return nil
}

// IssueStock removes quantity units. The average cost is unchanged.
func (p *Product) IssueStock(quantity int64, now time.Time) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity > p.StockOnHand {
		return shared.NewConflictError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", p.SKU, quantity, p.StockOnHand))
	}

	p.StockOnHand -= quantity
	p.revalue()
	p.Touch(now)
	return nil
}

// AdjustStock applies a signed correction at the existing average cost
func (p *Product) AdjustStock(delta int64, now time.Time) error {
	if delta == 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Adjustment cannot be zero")
	}
	if p.StockOnHand+delta < 0 {
		return shared.NewConflictError("NEGATIVE_STOCK",
			fmt.Sprintf("Adjustment of %d would make stock of %s negative (on hand %d)", delta, p.SKU, p.StockOnHand))
	}

	p.StockOnHand += delta
	p.revalue()
	p.Touch(now)
	return nil
}

// CanFulfil returns true if quantity units are on hand
func (p *Product) CanFulfil(quantity int64) bool {
	return quantity <= p.StockOnHand
}

// IsLowStock returns true when stock is at or below the reorder level
func (p *Product) IsLowStock() bool {
	return p.StockOnHand <= p.ReorderLevel
}

// IsConsistent reports whether the stored inventory value matches its inputs
func (p *Product) IsConsistent() bool {
	return p.InventoryValue.Equal(p.computeValue())
}

func (p *Product) revalue() {
	p.InventoryValue = p.computeValue()
}

func (p *Product) computeValue() decimal.Decimal {
	return shared.RoundMoney(decimal.NewFromInt(p.StockOnHand).Mul(p.AverageCost))
}

// ValidateSKU checks that sku is a usable tenant-unique key
func ValidateSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return shared.NewValidationError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > maxSKULength {
		return shared.NewValidationError("INVALID_SKU", fmt.Sprintf("SKU cannot exceed %d characters", maxSKULength))
	}
	if !skuPattern.MatchString(sku) {
		return shared.NewValidationError("INVALID_SKU", "SKU can only contain letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

func validateDetails(d *ProductDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if len(name) > maxNameLength {
		return shared.NewValidationError("INVALID_PRODUCT_NAME", fmt.Sprintf("Product name cannot exceed %d characters", maxNameLength))
	}
	if len(d.Category) > maxCategoryLength {
		return shared.NewValidationError("INVALID_CATEGORY", fmt.Sprintf("Category cannot exceed %d characters", maxCategoryLength))
	}
	if d.CostPrice.IsNegative() {
		return shared.NewValidationError("INVALID_PRICE", "Cost price cannot be negative")
	}
	if d.SellingPrice.IsNegative() {
		return shared.NewValidationError("INVALID_PRICE", "Selling price cannot be negative")
	}
	if d.TaxPercent.IsNegative() || d.TaxPercent.GreaterThan(maxTaxPercent) {
		return shared.NewValidationError("INVALID_TAX_PERCENT", "Tax percent must be between 0 and 100")
	}
	if d.ReorderLevel < 0 {
		return shared.NewValidationError("INVALID_REORDER_LEVEL", "Reorder level cannot be negative")
	}
	if strings.TrimSpace(d.Unit) == "" {
		d.Unit = defaultUnit
	}
	return nil
}
