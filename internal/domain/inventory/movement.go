package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType represents the kind of stock change
type MovementType string

const (
	// MovementTypeStockIn represents stock received (purchase, opening stock, reversal)
	MovementTypeStockIn MovementType = "STOCK_IN"
	// MovementTypeStockOut represents stock issued (sales invoice, manual issue)
	MovementTypeStockOut MovementType = "STOCK_OUT"
	// MovementTypeAdjustment represents a signed correction at the existing average cost
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeStockIn, MovementTypeStockOut, MovementTypeAdjustment:
		return true
	}
	return false
}

// ReversalReason marks a stock-in that restores previously deducted quantity.
// Reversals never move the weighted average cost.
type ReversalReason string

const (
	ReversalNone                ReversalReason = "none"
	ReversalInvoiceCancellation ReversalReason = "invoice_cancellation"
	ReversalCompensation        ReversalReason = "compensation" // undoing a partially applied invoice
	ReversalManual              ReversalReason = "manual"
)

// IsReversal returns true for every reason except none
func (r ReversalReason) IsReversal() bool {
	return r != "" && r != ReversalNone
}

// IsValid returns true if the reason is a known value. The empty value means none.
func (r ReversalReason) IsValid() bool {
	switch r {
	case "", ReversalNone, ReversalInvoiceCancellation, ReversalCompensation, ReversalManual:
		return true
	}
	return false
}

// ParseReversalReason converts external input into a ReversalReason
func ParseReversalReason(s string) (ReversalReason, error) {
	r := ReversalReason(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return ReversalNone, nil
	}
	if !r.IsValid() {
		return "", shared.NewValidationError("INVALID_REVERSAL_REASON", "Unknown reversal reason: "+s)
	}
	return r, nil
}

// MovementRecord is an immutable entry of the per-SKU audit trail. It carries a
// snapshot of the product's stock and valuation after the change was applied.
// Corrections are made with new records, never by editing old ones.
type MovementRecord struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	SKU            string          `json:"sku"`
	Type           MovementType    `json:"type"`
	Quantity       int64           `json:"quantity"` // Positive for stock in, negative for stock out, signed delta for adjustments
	CostPerUnit    decimal.Decimal `json:"cost_per_unit"`
	Note           string          `json:"note,omitempty"`
	Reversal       ReversalReason  `json:"reversal,omitempty"`
	Reference      string          `json:"reference,omitempty"` // Source document, e.g. an invoice number
	Timestamp      time.Time       `json:"timestamp"`
	StockOnHand    int64           `json:"stock_on_hand"`
	AverageCost    decimal.Decimal `json:"average_cost"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}

// MovementDetails describes what caused a movement
type MovementDetails struct {
	Note      string
	Reversal  ReversalReason
	Reference string
	Timestamp time.Time
}

// NewMovementRecord snapshots product after a change of the given type and
// signed quantity.
func NewMovementRecord(product *catalog.Product, movementType MovementType, quantity int64, costPerUnit decimal.Decimal, details MovementDetails) (*MovementRecord, error) {
	if product == nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product cannot be nil")
	}
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if quantity == 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Movement quantity cannot be zero")
	}
	switch {
	case movementType == MovementTypeStockIn && quantity < 0,
		movementType == MovementTypeStockOut && quantity > 0:
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Movement quantity sign does not match its type")
	}
	ts := details.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	reversal := details.Reversal
	if !reversal.IsReversal() {
		reversal = ""
	}

	return &MovementRecord{
		ID:             shared.NewID(),
		TenantID:       product.TenantID,
		SKU:            product.SKU,
		Type:           movementType,
		Quantity:       quantity,
		CostPerUnit:    shared.RoundMoney(costPerUnit),
		Note:           details.Note,
		Reversal:       reversal,
		Reference:      details.Reference,
		Timestamp:      ts.UTC(),
		StockOnHand:    product.StockOnHand,
		AverageCost:    product.AverageCost,
		InventoryValue: product.InventoryValue,
	}, nil
}

// MovementRepository is the append-only movement ledger
type MovementRepository interface {
	// Append adds record to the end of its SKU's history. An unreadable history
	// is replaced by a fresh one holding only record.
	Append(ctx context.Context, record *MovementRecord) error

	// FindBySKU returns one SKU's history in append order
	FindBySKU(ctx context.Context, tenantID, sku string) ([]MovementRecord, error)

	// FindAll returns the history of every SKU of the tenant, newest first.
	// Unreadable histories and records are skipped.
	FindAll(ctx context.Context, tenantID string) ([]MovementRecord, error)
}
