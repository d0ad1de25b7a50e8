package inventory

import (
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockedProduct(t *testing.T) *catalog.Product {
	t.Helper()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p, err := catalog.NewProduct("tenant-1", "SKU1", catalog.ProductDetails{Name: "Widget"}, now)
	require.NoError(t, err)
	cost := decimal.NewFromInt(10)
	require.NoError(t, p.ReceiveStock(10, &cost, false, now))
	return p
}

func TestMovementType(t *testing.T) {
	assert.True(t, MovementTypeStockIn.IsValid())
	assert.True(t, MovementTypeStockOut.IsValid())
	assert.True(t, MovementTypeAdjustment.IsValid())
	assert.False(t, MovementType("TRANSFER").IsValid())
	assert.Equal(t, "STOCK_IN", MovementTypeStockIn.String())
}

func TestReversalReason(t *testing.T) {
	tests := []struct {
		input    string
		want     ReversalReason
		reversal bool
		wantErr  bool
	}{
		{"", ReversalNone, false, false},
		{"none", ReversalNone, false, false},
		{"invoice_cancellation", ReversalInvoiceCancellation, true, false},
		{" Manual ", ReversalManual, true, false},
		{"compensation", ReversalCompensation, true, false},
		{"rollback", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseReversalReason(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, shared.KindValidation, shared.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reversal, got.IsReversal())
		})
	}

	assert.False(t, ReversalReason("").IsReversal())
}

func TestNewMovementRecord(t *testing.T) {
	p := newStockedProduct(t)
	ts := time.Date(2024, 2, 1, 12, 0, 0, 0, time.FixedZone("IST", 19800))

	t.Run("snapshots post-change state", func(t *testing.T) {
		rec, err := NewMovementRecord(p, MovementTypeStockIn, 10, decimal.NewFromInt(10), MovementDetails{
			Note:      "opening",
			Reference: "PO-1",
			Timestamp: ts,
		})
		require.NoError(t, err)

		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "tenant-1", rec.TenantID)
		assert.Equal(t, "SKU1", rec.SKU)
		assert.Equal(t, int64(10), rec.Quantity)
		assert.Equal(t, int64(10), rec.StockOnHand)
		assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(10)))
		assert.True(t, rec.InventoryValue.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, "PO-1", rec.Reference)
		assert.Empty(t, rec.Reversal)
		assert.Equal(t, time.UTC, rec.Timestamp.Location())
		assert.True(t, rec.Timestamp.Equal(ts))
	})

	t.Run("keeps reversal reason", func(t *testing.T) {
		rec, err := NewMovementRecord(p, MovementTypeStockIn, 2, p.AverageCost, MovementDetails{Reversal: ReversalInvoiceCancellation})
		require.NoError(t, err)
		assert.Equal(t, ReversalInvoiceCancellation, rec.Reversal)
		assert.False(t, rec.Timestamp.IsZero())
	})

	t.Run("rejects sign mismatch", func(t *testing.T) {
		_, err := NewMovementRecord(p, MovementTypeStockOut, 3, p.AverageCost, MovementDetails{})
		require.Error(t, err)
		_, err = NewMovementRecord(p, MovementTypeStockIn, -3, p.AverageCost, MovementDetails{})
		require.Error(t, err)
	})

	t.Run("accepts signed adjustments", func(t *testing.T) {
		rec, err := NewMovementRecord(p, MovementTypeAdjustment, -2, p.AverageCost, MovementDetails{})
		require.NoError(t, err)
		assert.Equal(t, int64(-2), rec.Quantity)
	})

	t.Run("rejects zero quantity and unknown type", func(t *testing.T) {
		_, err := NewMovementRecord(p, MovementTypeAdjustment, 0, p.AverageCost, MovementDetails{})
		require.Error(t, err)
		_, err = NewMovementRecord(p, MovementType("X"), 1, p.AverageCost, MovementDetails{})
		require.Error(t, err)
		_, err = NewMovementRecord(nil, MovementTypeStockIn, 1, p.AverageCost, MovementDetails{})
		require.Error(t, err)
	})
}
