package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is possible
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled
}

// ParseInvoiceStatus converts external input into an InvoiceStatus
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown invoice status: %s", s))
	}
	return status, nil
}

var hundred = decimal.NewFromInt(100)

// CustomerSnapshot is the customer data frozen into an invoice at creation.
// ID is a reference only; later customer edits never reach issued invoices.
type CustomerSnapshot struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
}

// InvoiceLine is one invoiced product with prices snapshotted from the catalog
type InvoiceLine struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int64           `json:"quantity"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	TaxPercent   decimal.Decimal `json:"tax_percent"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// NewInvoiceLine prices quantity units of product at its current catalog values
func NewInvoiceLine(product *catalog.Product, quantity int64) (InvoiceLine, error) {
	if product == nil {
		return InvoiceLine{}, shared.NewValidationError("INVALID_PRODUCT", "Product cannot be nil")
	}
	if quantity <= 0 {
		return InvoiceLine{}, shared.NewValidationError("INVALID_QUANTITY",
			fmt.Sprintf("Quantity for %s must be positive", product.SKU))
	}

	qty := decimal.NewFromInt(quantity)
	subtotal := shared.RoundMoney(qty.Mul(product.SellingPrice))
	tax := shared.RoundMoney(subtotal.Mul(product.TaxPercent).Div(hundred))

	return InvoiceLine{
		SKU:          product.SKU,
		Name:         product.Name,
		Quantity:     quantity,
		SellingPrice: product.SellingPrice,
		CostPrice:    product.CostPrice,
		TaxPercent:   product.TaxPercent,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        subtotal.Add(tax),
	}, nil
}

// Cost returns quantity times the snapshotted cost price
func (l InvoiceLine) Cost() decimal.Decimal {
	return decimal.NewFromInt(l.Quantity).Mul(l.CostPrice)
}

// Payment is one amount received against an invoice
type Payment struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	ReceivedAt time.Time       `json:"received_at"`
	Note       string          `json:"note,omitempty"`
}

// Invoice is a tenant-unique sales invoice.
// OutstandingAmount never increases and stays within [0, TotalAmount] while the
// invoice is not cancelled. Cancellation zeroes every monetary total and is terminal.
type Invoice struct {
	TenantID          string           `json:"tenant_id"`
	InvoiceNumber     string           `json:"invoice_number"`
	Customer          CustomerSnapshot `json:"customer"`
	Lines             []InvoiceLine    `json:"lines"`
	Subtotal          decimal.Decimal  `json:"subtotal"`
	TotalTax          decimal.Decimal  `json:"total_tax"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	GrossProfit       decimal.Decimal  `json:"gross_profit"`
	OutstandingAmount decimal.Decimal  `json:"outstanding_amount"`
	Status            InvoiceStatus    `json:"status"`
	InvoiceDate       time.Time        `json:"invoice_date"`
	DueDate           *time.Time       `json:"due_date,omitempty"`
	PaidOn            *time.Time       `json:"paid_on,omitempty"`
	CancelledAt       *time.Time       `json:"cancelled_at,omitempty"`
	Payments          []Payment        `json:"payments"`
	shared.Timestamps
}

// NewInvoiceParams holds the inputs for NewInvoice
type NewInvoiceParams struct {
	TenantID      string
	InvoiceNumber string
	Customer      CustomerSnapshot
	Lines         []InvoiceLine
	InvoiceDate   time.Time
	DueDate       *time.Time
	Status        InvoiceStatus // Unpaid or Paid
}

// NewInvoice assembles an invoice from priced lines. A Paid invoice is settled
// in full at issue.
func NewInvoice(params NewInvoiceParams, now time.Time) (*Invoice, error) {
	if strings.TrimSpace(params.TenantID) == "" {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := ValidateInvoiceNumber(params.InvoiceNumber); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Customer.Name) == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer name cannot be empty")
	}
	if len(params.Lines) == 0 {
		return nil, shared.NewValidationError("NO_ITEMS", "Invoice must have at least one item")
	}
	switch params.Status {
	case InvoiceStatusUnpaid, InvoiceStatusPaid:
	case "":
		params.Status = InvoiceStatusUnpaid
	default:
		return nil, shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Invoice cannot be created as %s", params.Status))
	}

	invoiceDate := params.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = now
	}
	if params.DueDate != nil && params.DueDate.Before(truncateDay(invoiceDate)) {
		return nil, shared.NewValidationError("INVALID_DUE_DATE", "Due date cannot be before the invoice date")
	}

	inv := &Invoice{
		TenantID:      params.TenantID,
		InvoiceNumber: strings.TrimSpace(params.InvoiceNumber),
		Customer: CustomerSnapshot{
			ID:    params.Customer.ID,
			Name:  strings.TrimSpace(params.Customer.Name),
			TaxID: strings.TrimSpace(params.Customer.TaxID),
		},
		Lines:       append([]InvoiceLine(nil), params.Lines...),
		InvoiceDate: invoiceDate.UTC(),
		DueDate:     params.DueDate,
		Status:      InvoiceStatusUnpaid,
		Payments:    []Payment{},
		Timestamps:  shared.NewTimestamps(now),
	}
	inv.computeTotals()
	inv.OutstandingAmount = inv.TotalAmount

	if params.Status == InvoiceStatusPaid && inv.TotalAmount.IsPositive() {
		inv.Payments = append(inv.Payments, Payment{
			ID:         uuid.NewString(),
			Amount:     inv.TotalAmount,
			ReceivedAt: now.UTC(),
			Note:       "Paid in full at issue",
		})
		inv.OutstandingAmount = decimal.Zero
	}
	if inv.OutstandingAmount.IsZero() {
		inv.markPaid(now)
	}

	return inv, nil
}

func (inv *Invoice) computeTotals() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	cost := decimal.Zero
	for _, l := range inv.Lines {
		subtotal = subtotal.Add(l.Subtotal)
		tax = tax.Add(l.Tax)
		cost = cost.Add(l.Cost())
	}
	inv.Subtotal = shared.RoundMoney(subtotal)
	inv.TotalTax = shared.RoundMoney(tax)
	inv.TotalAmount = inv.Subtotal.Add(inv.TotalTax)
	inv.GrossProfit = shared.RoundMoney(subtotal.Sub(cost))
}

// RequestedQuantities sums line quantities per SKU
func (inv *Invoice) RequestedQuantities() map[string]int64 {
	return SumQuantities(inv.Lines)
}

// SumQuantities sums line quantities per SKU
func SumQuantities(lines []InvoiceLine) map[string]int64 {
	out := make(map[string]int64, len(lines))
	for _, l := range lines {
		out[l.SKU] += l.Quantity
	}
	return out
}

// IsCancelled returns true if the invoice has been cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// Cancel zeroes the invoice totals and makes it terminal. Restoring stock for
// the lines is the caller's job; the lines are kept for that purpose.
func (inv *Invoice) Cancel(now time.Time) error {
	if inv.IsCancelled() {
		return shared.NewValidationError("ALREADY_CANCELLED",
			fmt.Sprintf("Invoice %s is already cancelled", inv.InvoiceNumber))
	}

	cancelledAt := now.UTC()
	inv.Subtotal = decimal.Zero
	inv.TotalTax = decimal.Zero
	inv.TotalAmount = decimal.Zero
	inv.OutstandingAmount = decimal.Zero
	inv.GrossProfit = decimal.Zero
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &cancelledAt
	inv.Touch(now)
	return nil
}

// ApplyPayment records amount against the outstanding balance. Overpayment is
// rejected, never clamped. Reaching exactly zero flips the invoice to Paid.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, note string, receivedAt, now time.Time) (*Payment, error) {
	if inv.IsCancelled() {
		return nil, shared.NewValidationError("INVALID_STATE",
			fmt.Sprintf("Cannot record payment on cancelled invoice %s", inv.InvoiceNumber))
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !amount.Equal(shared.RoundMoney(amount)) {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount cannot have more than 2 decimal places")
	}
	if !inv.OutstandingAmount.IsPositive() {
		return nil, shared.NewConflictError("NO_OUTSTANDING_BALANCE",
			fmt.Sprintf("Invoice %s has no outstanding balance", inv.InvoiceNumber))
	}
	if amount.GreaterThan(inv.OutstandingAmount) {
		return nil, shared.NewConflictError("EXCEEDS_OUTSTANDING",
			fmt.Sprintf("Payment amount %s exceeds outstanding amount %s", amount.StringFixed(2), inv.OutstandingAmount.StringFixed(2)))
	}
	if receivedAt.IsZero() {
		receivedAt = now
	}

	payment := Payment{
		ID:         uuid.NewString(),
		Amount:     amount,
		ReceivedAt: receivedAt.UTC(),
		Note:       strings.TrimSpace(note),
	}
	inv.Payments = append(inv.Payments, payment)
	inv.OutstandingAmount = shared.RoundMoney(inv.OutstandingAmount.Sub(amount))
	if inv.OutstandingAmount.IsZero() {
		inv.markPaid(now)
	}
	inv.Touch(now)
	return &payment, nil
}

// PaidAmount returns the sum of recorded payments
func (inv *Invoice) PaidAmount() decimal.Decimal {
	total := decimal.Zero
	for _, p := range inv.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// IsOverdue returns true if an unpaid invoice is past its due date
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status != InvoiceStatusUnpaid || inv.DueDate == nil {
		return false
	}
	return now.After(inv.DueDate.AddDate(0, 0, 1))
}

func (inv *Invoice) markPaid(now time.Time) {
	paidOn := now.UTC()
	inv.Status = InvoiceStatusPaid
	inv.PaidOn = &paidOn
}

// ValidateInvoiceNumber checks that number is usable as a tenant-unique key
func ValidateInvoiceNumber(number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewValidationError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 64 {
		return shared.NewValidationError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 64 characters")
	}
	if strings.ContainsAny(number, "/\\ ") {
		return shared.NewValidationError("INVALID_INVOICE_NUMBER", "Invoice number cannot contain slashes or spaces")
	}
	return nil
}

// GenerateInvoiceNumber returns a number of the form INV-YYYYMMDD-XXXXXXXX
func GenerateInvoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", now.UTC().Format("20060102"), suffix)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
