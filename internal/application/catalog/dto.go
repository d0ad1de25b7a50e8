package catalog

import (
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU          string          `json:"sku" binding:"required,min=1,max=50"`
	Name         string          `json:"name" binding:"required,min=1,max=200"`
	Category     string          `json:"category" binding:"max=100"`
	Unit         string          `json:"unit" binding:"max=20"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	ReorderLevel int64           `json:"reorder_level" binding:"min=0"`
	OpeningStock int64           `json:"opening_stock" binding:"min=0"` // Received at cost price
}

func (r CreateProductRequest) details() catalog.ProductDetails {
	return catalog.ProductDetails{
		Name:         r.Name,
		Category:     r.Category,
		Unit:         r.Unit,
		CostPrice:    r.CostPrice,
		SellingPrice: r.SellingPrice,
		TaxPercent:   r.TaxPercent,
		ReorderLevel: r.ReorderLevel,
	}
}

// UpdateProductRequest represents a request to update a product's catalog
// attributes. Nil fields keep their current value.
type UpdateProductRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Category     *string          `json:"category" binding:"omitempty,max=100"`
	Unit         *string          `json:"unit" binding:"omitempty,max=20"`
	CostPrice    *decimal.Decimal `json:"cost_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	TaxPercent   *decimal.Decimal `json:"tax_percent"`
	ReorderLevel *int64           `json:"reorder_level" binding:"omitempty,min=0"`
}

func (r UpdateProductRequest) applyTo(p *catalog.Product) catalog.ProductDetails {
	d := catalog.ProductDetails{
		Name:         p.Name,
		Category:     p.Category,
		Unit:         p.Unit,
		CostPrice:    p.CostPrice,
		SellingPrice: p.SellingPrice,
		TaxPercent:   p.TaxPercent,
		ReorderLevel: p.ReorderLevel,
	}
	if r.Name != nil {
		d.Name = *r.Name
	}
	if r.Category != nil {
		d.Category = *r.Category
	}
	if r.Unit != nil {
		d.Unit = *r.Unit
	}
	if r.CostPrice != nil {
		d.CostPrice = *r.CostPrice
	}
	if r.SellingPrice != nil {
		d.SellingPrice = *r.SellingPrice
	}
	if r.TaxPercent != nil {
		d.TaxPercent = *r.TaxPercent
	}
	if r.ReorderLevel != nil {
		d.ReorderLevel = *r.ReorderLevel
	}
	return d
}

// ProductFilter narrows a product listing
type ProductFilter struct {
	Category string `form:"category"` // Case-insensitive exact match
	LowStock bool   `form:"low_stock"`
}
