package trade

import (
	"context"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByNumber finds an invoice by number. Returns a NotFound error when absent.
	FindByNumber(ctx context.Context, tenantID, invoiceNumber string) (*Invoice, error)

	// FindAll returns every readable invoice of the tenant. Unreadable documents are skipped.
	FindAll(ctx context.Context, tenantID string) ([]Invoice, error)

	// ExistsByNumber checks if an invoice with the given number exists
	ExistsByNumber(ctx context.Context, tenantID, invoiceNumber string) (bool, error)

	// Save creates or replaces an invoice
	Save(ctx context.Context, invoice *Invoice) error
}
