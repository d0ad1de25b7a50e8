package persistence

import (
	"context"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Ensure DocumentInvoiceRepository implements trade.InvoiceRepository
var _ trade.InvoiceRepository = (*DocumentInvoiceRepository)(nil)

// DocumentInvoiceRepository stores invoices at tenant/{tenant}/invoices/{number}
type DocumentInvoiceRepository struct {
	store  storage.DocumentStore
	logger *zap.Logger
}

// NewDocumentInvoiceRepository creates a new DocumentInvoiceRepository
func NewDocumentInvoiceRepository(store storage.DocumentStore, logger *zap.Logger) *DocumentInvoiceRepository {
	return &DocumentInvoiceRepository{store: store, logger: loggerOrNop(logger)}
}

// FindByNumber finds an invoice by number
func (r *DocumentInvoiceRepository) FindByNumber(ctx context.Context, tenantID, invoiceNumber string) (*trade.Invoice, error) {
	return findOne[trade.Invoice](ctx, r.store, invoiceKey(tenantID, invoiceNumber),
		shared.NewNotFoundError("NOT_FOUND", "Invoice not found: "+invoiceNumber))
}

// FindAll returns every readable invoice in key order
func (r *DocumentInvoiceRepository) FindAll(ctx context.Context, tenantID string) ([]trade.Invoice, error) {
	return findAll[trade.Invoice](ctx, r.store, r.logger, tenantPrefix(tenantID, "invoices"))
}

// ExistsByNumber checks if an invoice document exists
func (r *DocumentInvoiceRepository) ExistsByNumber(ctx context.Context, tenantID, invoiceNumber string) (bool, error) {
	return exists(ctx, r.store, invoiceKey(tenantID, invoiceNumber))
}

// Save creates or replaces an invoice
func (r *DocumentInvoiceRepository) Save(ctx context.Context, invoice *trade.Invoice) error {
	return writeJSON(ctx, r.store, invoiceKey(invoice.TenantID, invoice.InvoiceNumber), invoice)
}
