package trade

import (
	"context"
	"fmt"
	"sort"
	"strings"

	appidentity "github.com/ledger/backend/internal/application/identity"
	appinventory "github.com/ledger/backend/internal/application/inventory"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/inventory"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/lock"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockMover moves stock on behalf of invoices
type StockMover interface {
	StockIn(ctx context.Context, tenantID, sku string, cmd appinventory.StockInCommand) (*catalog.Product, error)
	StockOut(ctx context.Context, tenantID, sku string, cmd appinventory.StockOutCommand) (*catalog.Product, error)
}

// InvoiceService manages the invoice lifecycle: issue, cancellation and payment.
// Issue and cancellation hold the invoice lock and every line's SKU lock for
// the whole operation.
type InvoiceService struct {
	invoiceRepo  trade.InvoiceRepository
	productRepo  catalog.ProductRepository
	customerRepo partner.CustomerRepository
	stock        StockMover
	gate         appidentity.Authorizer
	locker       lock.Locker
	metrics      *telemetry.LedgerMetrics
	clock        shared.Clock
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo trade.InvoiceRepository,
	productRepo catalog.ProductRepository,
	customerRepo partner.CustomerRepository,
	stock StockMover,
	gate appidentity.Authorizer,
	locker lock.Locker,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		stock:        stock,
		gate:         gate,
		locker:       locker,
		clock:        shared.SystemClock,
	}
}

// SetMetrics sets the ledger metrics recorder
func (s *InvoiceService) SetMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *InvoiceService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// Create issues an invoice and deducts its stock. Every line is checked
// against stock on hand before anything is deducted; if a deduction or the
// invoice write still fails, the lines already deducted are put back.
func (s *InvoiceService) Create(ctx context.Context, tenantID string, req CreateInvoiceRequest) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, len(req.Items)),
	)
	defer span.End()

	invoice, err := s.create(ctx, tenantID, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceNumber, invoice.InvoiceNumber,
		telemetry.SpanAttrAmount, invoice.TotalAmount.StringFixed(2),
	)
	s.metrics.RecordInvoiceCreated(ctx, tenantID, invoice.Status.String(), invoice.TotalAmount)
	return invoice, nil
}

func (s *InvoiceService) create(ctx context.Context, tenantID string, req CreateInvoiceRequest) (*trade.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	now := s.clock()
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		number = trade.GenerateInvoiceNumber(now)
	}
	if err := trade.ValidateInvoiceNumber(number); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, shared.NewValidationError("NO_ITEMS", "Invoice must have at least one item")
	}
	status := trade.InvoiceStatusUnpaid
	if req.Status != "" {
		parsed, err := trade.ParseInvoiceStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	requested := make(map[string]int64, len(req.Items))
	for _, item := range req.Items {
		if err := catalog.ValidateSKU(item.SKU); err != nil {
			return nil, err
		}
		if item.Quantity <= 0 {
			return nil, shared.NewValidationError("INVALID_QUANTITY",
				fmt.Sprintf("Quantity for %s must be positive", item.SKU))
		}
		requested[strings.TrimSpace(item.SKU)] += item.Quantity
	}

	customer, err := s.customerSnapshot(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	keys := []string{lock.InvoiceKey(tenantID, number)}
	for sku := range requested {
		keys = append(keys, lock.ProductKey(tenantID, sku))
	}
	ctx, release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	exists, err := s.invoiceRepo.ExistsByNumber(ctx, tenantID, number)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewConflictError("INVOICE_EXISTS",
			fmt.Sprintf("Invoice %s already exists", number))
	}

	products := make(map[string]*catalog.Product, len(requested))
	for sku, qty := range requested {
		product, err := s.productRepo.FindBySKU(ctx, tenantID, sku)
		if err != nil {
			return nil, err
		}
		if !product.CanFulfil(qty) {
			return nil, shared.NewConflictError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Insufficient stock for %s: requested %d, available %d", sku, qty, product.StockOnHand))
		}
		products[sku] = product
	}

	lines := make([]trade.InvoiceLine, 0, len(req.Items))
	for _, item := range req.Items {
		line, err := trade.NewInvoiceLine(products[strings.TrimSpace(item.SKU)], item.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	params := trade.NewInvoiceParams{
		TenantID:      tenantID,
		InvoiceNumber: number,
		Customer:      customer,
		Lines:         lines,
		DueDate:       req.DueDate,
		Status:        status,
	}
	if req.InvoiceDate != nil {
		params.InvoiceDate = *req.InvoiceDate
	}
	invoice, err := trade.NewInvoice(params, now)
	if err != nil {
		return nil, err
	}

	deducted := make([]trade.InvoiceLine, 0, len(lines))
	for _, line := range invoice.Lines {
		_, err := s.stock.StockOut(ctx, tenantID, line.SKU, appinventory.StockOutCommand{
			Quantity:  line.Quantity,
			Note:      "Invoice " + number,
			Reference: number,
		})
		if err != nil {
			s.compensate(ctx, tenantID, number, deducted)
			return nil, err
		}
		deducted = append(deducted, line)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		s.compensate(ctx, tenantID, number, deducted)
		return nil, err
	}

	logger.L(ctx).Info("Invoice issued",
		zap.String("invoice_number", number),
		zap.String("status", invoice.Status.String()),
		zap.String("total_amount", invoice.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(invoice.Lines)),
	)
	return invoice, nil
}

func (s *InvoiceService) customerSnapshot(ctx context.Context, tenantID string, req CreateInvoiceRequest) (trade.CustomerSnapshot, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return trade.CustomerSnapshot{Name: req.CustomerName, TaxID: req.CustomerTaxID}, nil
	}
	customer, err := s.customerRepo.FindByID(ctx, tenantID, customerID)
	if err != nil {
		return trade.CustomerSnapshot{}, err
	}
	return trade.CustomerSnapshot{ID: customer.ID, Name: customer.Name, TaxID: customer.TaxID}, nil
}

// compensate returns deducted lines to stock after a failed issue. Failures
// are logged; the original error is what the caller sees.
func (s *InvoiceService) compensate(ctx context.Context, tenantID, number string, deducted []trade.InvoiceLine) {
	for _, line := range deducted {
		_, err := s.stock.StockIn(ctx, tenantID, line.SKU, appinventory.StockInCommand{
			Quantity:  line.Quantity,
			Note:      "Compensation for failed invoice " + number,
			Reversal:  inventory.ReversalCompensation,
			Reference: number,
		})
		if err != nil {
			logger.L(ctx).Error("Failed to compensate stock deduction",
				zap.String("invoice_number", number),
				zap.String("sku", line.SKU),
				zap.Int64("quantity", line.Quantity),
				zap.Error(err),
			)
		}
	}
}

// Cancel returns every line's quantity to stock at the current average cost and
// zeroes the invoice totals. Cancelling twice is rejected.
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, invoiceNumber string) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceNumber, invoiceNumber),
	)
	defer span.End()

	invoice, err := s.cancel(ctx, tenantID, invoiceNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordInvoiceCancelled(ctx, tenantID)
	return invoice, nil
}

func (s *InvoiceService) cancel(ctx context.Context, tenantID, invoiceNumber string) (*trade.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if err := trade.ValidateInvoiceNumber(invoiceNumber); err != nil {
		return nil, err
	}

	ctx, release, err := s.locker.Acquire(ctx, lock.InvoiceKey(tenantID, invoiceNumber))
	if err != nil {
		return nil, err
	}
	defer release()

	invoice, err := s.invoiceRepo.FindByNumber(ctx, tenantID, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if invoice.IsCancelled() {
		return nil, shared.NewValidationError("ALREADY_CANCELLED",
			fmt.Sprintf("Invoice %s is already cancelled", invoiceNumber))
	}

	skuKeys := make([]string, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		skuKeys = append(skuKeys, lock.ProductKey(tenantID, line.SKU))
	}
	ctx, releaseSKUs, err := s.locker.Acquire(ctx, skuKeys...)
	if err != nil {
		return nil, err
	}
	defer releaseSKUs()

	restocked := make([]trade.InvoiceLine, 0, len(invoice.Lines))
	for _, line := range invoice.Lines {
		_, err := s.stock.StockIn(ctx, tenantID, line.SKU, appinventory.StockInCommand{
			Quantity:  line.Quantity,
			Note:      "Cancellation of invoice " + invoiceNumber,
			Reversal:  inventory.ReversalInvoiceCancellation,
			Reference: invoiceNumber,
		})
		if err != nil {
			if shared.IsKind(err, shared.KindNotFound) {
				logger.L(ctx).Warn("Product of cancelled invoice line no longer exists, skipping restock",
					zap.String("invoice_number", invoiceNumber),
					zap.String("sku", line.SKU),
					zap.Int64("quantity", line.Quantity),
				)
				continue
			}
			s.undoRestock(ctx, tenantID, invoiceNumber, restocked)
			return nil, err
		}
		restocked = append(restocked, line)
	}

	if err := invoice.Cancel(s.clock()); err != nil {
		s.undoRestock(ctx, tenantID, invoiceNumber, restocked)
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		s.undoRestock(ctx, tenantID, invoiceNumber, restocked)
		return nil, err
	}

	logger.L(ctx).Info("Invoice cancelled",
		zap.String("invoice_number", invoiceNumber),
		zap.Int("restocked_lines", len(restocked)),
	)
	return invoice, nil
}

// undoRestock deducts lines restocked by a cancellation that did not complete
func (s *InvoiceService) undoRestock(ctx context.Context, tenantID, number string, restocked []trade.InvoiceLine) {
	for _, line := range restocked {
		_, err := s.stock.StockOut(ctx, tenantID, line.SKU, appinventory.StockOutCommand{
			Quantity:  line.Quantity,
			Note:      "Undo cancellation restock of invoice " + number,
			Reference: number,
		})
		if err != nil {
			logger.L(ctx).Error("Failed to undo cancellation restock",
				zap.String("invoice_number", number),
				zap.String("sku", line.SKU),
				zap.Int64("quantity", line.Quantity),
				zap.Error(err),
			)
		}
	}
}

// RecordPayment applies a payment to the outstanding balance. The invoice
// becomes Paid when the balance reaches exactly zero.
func (s *InvoiceService) RecordPayment(ctx context.Context, tenantID, invoiceNumber string, req RecordPaymentRequest) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "record_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceNumber, invoiceNumber),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount.String()),
	)
	defer span.End()

	invoice, err := s.recordPayment(ctx, tenantID, invoiceNumber, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.metrics.RecordPayment(ctx, tenantID, invoice.Status.String(), req.Amount)
	return invoice, nil
}

func (s *InvoiceService) recordPayment(ctx context.Context, tenantID, invoiceNumber string, req RecordPaymentRequest) (*trade.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if err := trade.ValidateInvoiceNumber(invoiceNumber); err != nil {
		return nil, err
	}

	ctx, release, err := s.locker.Acquire(ctx, lock.InvoiceKey(tenantID, invoiceNumber))
	if err != nil {
		return nil, err
	}
	defer release()

	invoice, err := s.invoiceRepo.FindByNumber(ctx, tenantID, invoiceNumber)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	receivedAt := now
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}
	if _, err := invoice.ApplyPayment(req.Amount, req.Note, receivedAt, now); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetByNumber returns an invoice
func (s *InvoiceService) GetByNumber(ctx context.Context, tenantID, invoiceNumber string) (*trade.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if err := trade.ValidateInvoiceNumber(invoiceNumber); err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindByNumber(ctx, tenantID, invoiceNumber)
}

// List returns the tenant's invoices, newest invoice date first
func (s *InvoiceService) List(ctx context.Context, tenantID string, filter InvoiceListFilter) ([]trade.Invoice, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	var status trade.InvoiceStatus
	if filter.Status != "" {
		parsed, err := trade.ParseInvoiceStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := invoices[:0]
	for _, inv := range invoices {
		if status != "" && inv.Status != status {
			continue
		}
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].InvoiceDate.Equal(out[j].InvoiceDate) {
			return out[i].InvoiceDate.After(out[j].InvoiceDate)
		}
		return out[i].InvoiceNumber > out[j].InvoiceNumber
	})
	return out, nil
}
