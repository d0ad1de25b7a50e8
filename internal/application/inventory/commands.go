package inventory

import (
	"time"

	"github.com/ledger/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// StockInCommand receives stock into a product.
// CostPerUnit is required unless Reversal marks the receipt as a reversal.
type StockInCommand struct {
	Quantity    int64
	CostPerUnit *decimal.Decimal
	Note        string
	Date        time.Time // Zero means now
	Reversal    inventory.ReversalReason
	Reference   string
}

// StockOutCommand issues stock from a product
type StockOutCommand struct {
	Quantity  int64
	Note      string
	Date      time.Time
	Reference string
}

// AdjustmentCommand applies a signed correction. Delta cannot be zero.
type AdjustmentCommand struct {
	Delta int64
	Note  string
	Date  time.Time
}
