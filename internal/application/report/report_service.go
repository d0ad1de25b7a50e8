package report

import (
	"context"
	"sort"
	"time"

	appidentity "github.com/ledger/backend/internal/application/identity"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

const (
	topProductsLimit  = 5
	uncategorizedName = "Uncategorized"
)

// ReportService aggregates persisted products and invoices into read-only views.
// Reports scan the store and take no locks.
type ReportService struct {
	productRepo catalog.ProductRepository
	invoiceRepo trade.InvoiceRepository
	gate        appidentity.Authorizer
	clock       shared.Clock
}

// NewReportService creates a new ReportService
func NewReportService(
	productRepo catalog.ProductRepository,
	invoiceRepo trade.InvoiceRepository,
	gate appidentity.Authorizer,
) *ReportService {
	return &ReportService{
		productRepo: productRepo,
		invoiceRepo: invoiceRepo,
		gate:        gate,
		clock:       shared.SystemClock,
	}
}

// SetClock overrides the time source
func (s *ReportService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// ===================== Dashboard =====================

// ProductSales is the quantity of one SKU sold in the period
type ProductSales struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// LowStockItem is a product at or below its reorder level
type LowStockItem struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	StockOnHand  int64  `json:"stock_on_hand"`
	ReorderLevel int64  `json:"reorder_level"`
}

// DashboardSummary is the tenant's current month at a glance
type DashboardSummary struct {
	Month               string           `json:"month"` // YYYY-MM in the tenant's timezone
	Timezone            string           `json:"timezone"`
	MonthlySales        decimal.Decimal  `json:"monthly_sales"`
	MonthlyProfit       decimal.Decimal  `json:"monthly_profit"`
	MonthlyInvoiceCount int              `json:"monthly_invoice_count"`
	ProductsSold        map[string]int64 `json:"products_sold"`
	TopProducts         []ProductSales   `json:"top_products"`
	TotalOutstanding    decimal.Decimal  `json:"total_outstanding"`
	TotalInventoryValue decimal.Decimal  `json:"total_inventory_value"`
	LowStock            []LowStockItem   `json:"low_stock"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// GetDashboardSummary sums the current calendar month's non-cancelled invoices
// and the outstanding balance of every non-cancelled invoice. The month is
// taken in the tenant's timezone.
func (s *ReportService) GetDashboardSummary(ctx context.Context, tenantID string) (*DashboardSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "dashboard",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
	)
	defer span.End()

	summary, err := s.dashboard(ctx, tenantID)
	telemetry.RecordError(span, err)
	return summary, err
}

func (s *ReportService) dashboard(ctx context.Context, tenantID string) (*DashboardSummary, error) {
	tenant, err := s.gate.Authorize(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	loc := tenant.Location()
	now := s.clock().In(loc)
	year, month, _ := now.Date()

	invoices, err := s.invoiceRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		Month:               now.Format("2006-01"),
		Timezone:            loc.String(),
		MonthlySales:        decimal.Zero,
		MonthlyProfit:       decimal.Zero,
		ProductsSold:        make(map[string]int64),
		TopProducts:         []ProductSales{},
		TotalOutstanding:    decimal.Zero,
		TotalInventoryValue: decimal.Zero,
		LowStock:            []LowStockItem{},
		GeneratedAt:         s.clock(),
	}

	names := make(map[string]string)
	for _, inv := range invoices {
		if inv.IsCancelled() {
			continue
		}
		summary.TotalOutstanding = summary.TotalOutstanding.Add(inv.OutstandingAmount)

		y, m, _ := inv.InvoiceDate.In(loc).Date()
		if y != year || m != month {
			continue
		}
		summary.MonthlyInvoiceCount++
		summary.MonthlySales = summary.MonthlySales.Add(inv.TotalAmount)
		summary.MonthlyProfit = summary.MonthlyProfit.Add(inv.GrossProfit)
		for _, line := range inv.Lines {
			summary.ProductsSold[line.SKU] += line.Quantity
			names[line.SKU] = line.Name
		}
	}

	for sku, qty := range summary.ProductsSold {
		summary.TopProducts = append(summary.TopProducts, ProductSales{SKU: sku, Name: names[sku], Quantity: qty})
	}
	sort.Slice(summary.TopProducts, func(i, j int) bool {
		a, b := summary.TopProducts[i], summary.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.SKU < b.SKU
	})
	if len(summary.TopProducts) > topProductsLimit {
		summary.TopProducts = summary.TopProducts[:topProductsLimit]
	}

	for _, p := range products {
		summary.TotalInventoryValue = summary.TotalInventoryValue.Add(p.InventoryValue)
		if p.IsLowStock() {
			summary.LowStock = append(summary.LowStock, LowStockItem{
				SKU:          p.SKU,
				Name:         p.Name,
				StockOnHand:  p.StockOnHand,
				ReorderLevel: p.ReorderLevel,
			})
		}
	}

	summary.MonthlySales = shared.RoundMoney(summary.MonthlySales)
	summary.MonthlyProfit = shared.RoundMoney(summary.MonthlyProfit)
	summary.TotalOutstanding = shared.RoundMoney(summary.TotalOutstanding)
	summary.TotalInventoryValue = shared.RoundMoney(summary.TotalInventoryValue)
	return summary, nil
}

// ===================== Stock Valuation =====================

// ValuationItem is one product's contribution to the stock valuation
type ValuationItem struct {
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	StockOnHand    int64           `json:"stock_on_hand"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}

// CategoryValuation groups the valuation of one category
type CategoryValuation struct {
	Category string          `json:"category"`
	Items    []ValuationItem `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// StockValuation is the value of all stock on hand at average cost
type StockValuation struct {
	Categories  []CategoryValuation `json:"categories"`
	GrandTotal  decimal.Decimal     `json:"grand_total"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// GetStockValuation groups products by category. Products without a category
// are reported as Uncategorized.
func (s *ReportService) GetStockValuation(ctx context.Context, tenantID string) (*StockValuation, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	products, err := s.productRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*CategoryValuation)
	grandTotal := decimal.Zero
	for _, p := range products {
		name := p.Category
		if name == "" {
			name = uncategorizedName
		}
		group, ok := groups[name]
		if !ok {
			group = &CategoryValuation{Category: name, Items: []ValuationItem{}, Subtotal: decimal.Zero}
			groups[name] = group
		}
		group.Items = append(group.Items, ValuationItem{
			SKU:            p.SKU,
			Name:           p.Name,
			StockOnHand:    p.StockOnHand,
			AverageCost:    p.AverageCost,
			InventoryValue: p.InventoryValue,
		})
		group.Subtotal = group.Subtotal.Add(p.InventoryValue)
		grandTotal = grandTotal.Add(p.InventoryValue)
	}

	valuation := &StockValuation{
		Categories:  make([]CategoryValuation, 0, len(groups)),
		GrandTotal:  shared.RoundMoney(grandTotal),
		GeneratedAt: s.clock(),
	}
	for _, group := range groups {
		group.Subtotal = shared.RoundMoney(group.Subtotal)
		valuation.Categories = append(valuation.Categories, *group)
	}
	sort.Slice(valuation.Categories, func(i, j int) bool {
		return valuation.Categories[i].Category < valuation.Categories[j].Category
	})
	return valuation, nil
}
