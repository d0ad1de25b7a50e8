package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest represents a request to issue a sales invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number" binding:"max=64"` // Generated when empty
	CustomerID    string               `json:"customer_id"`                     // Name and tax id are copied from the customer when set
	CustomerName  string               `json:"customer_name" binding:"required_without=CustomerID,max=200"`
	CustomerTaxID string               `json:"customer_tax_id" binding:"max=50"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	InvoiceDate   *time.Time           `json:"invoice_date"`
	DueDate       *time.Time           `json:"due_date"`
	Status        string               `json:"status" binding:"omitempty,oneof=UNPAID PAID unpaid paid"`
}

// InvoiceItemRequest is one requested invoice line
type InvoiceItemRequest struct {
	SKU      string `json:"sku" binding:"required,max=50"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

// RecordPaymentRequest represents a payment received against an invoice
type RecordPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Note       string          `json:"note" binding:"max=500"`
	ReceivedAt *time.Time      `json:"received_at"`
}

// InvoiceListFilter narrows an invoice listing
type InvoiceListFilter struct {
	Status string `form:"status"`
}
