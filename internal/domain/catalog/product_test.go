package catalog

import (
	"testing"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct("tenant-1", "SKU1", ProductDetails{
		Name:         "Widget",
		Category:     "Hardware",
		CostPrice:    dec("10"),
		SellingPrice: dec("25"),
		TaxPercent:   dec("18"),
		ReorderLevel: 5,
	}, testNow)
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("creates product with valid inputs", func(t *testing.T) {
		p := newTestProduct(t)

		assert.Equal(t, "tenant-1", p.TenantID)
		assert.Equal(t, "SKU1", p.SKU)
		assert.Equal(t, "Widget", p.Name)
		assert.Equal(t, "Hardware", p.Category)
		assert.Equal(t, "pcs", p.Unit)
		assert.True(t, p.CostPrice.Equal(dec("10")))
		assert.True(t, p.SellingPrice.Equal(dec("25")))
		assert.Equal(t, int64(0), p.StockOnHand)
		assert.True(t, p.AverageCost.IsZero())
		assert.True(t, p.InventoryValue.IsZero())
		assert.Equal(t, testNow, p.CreatedAt)
	})

	t.Run("fails with empty sku", func(t *testing.T) {
		_, err := NewProduct("tenant-1", "", ProductDetails{Name: "Widget"}, testNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SKU cannot be empty")
	})

	t.Run("fails with invalid sku characters", func(t *testing.T) {
		_, err := NewProduct("tenant-1", "SKU/1", ProductDetails{Name: "Widget"}, testNow)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewProduct("tenant-1", "SKU1", ProductDetails{}, testNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with negative prices", func(t *testing.T) {
		_, err := NewProduct("tenant-1", "SKU1", ProductDetails{Name: "W", CostPrice: dec("-1")}, testNow)
		require.Error(t, err)
		_, err = NewProduct("tenant-1", "SKU1", ProductDetails{Name: "W", SellingPrice: dec("-1")}, testNow)
		require.Error(t, err)
	})

	t.Run("fails with tax percent above 100", func(t *testing.T) {
		_, err := NewProduct("tenant-1", "SKU1", ProductDetails{Name: "W", TaxPercent: dec("100.5")}, testNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Tax percent")
	})
}

func TestProduct_Update(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.ReceiveStock(10, decPtr("10"), false, testNow))

	later := testNow.Add(time.Hour)
	err := p.Update(ProductDetails{Name: "Widget v2", Category: "Tools", CostPrice: dec("12"), SellingPrice: dec("30")}, later)
	require.NoError(t, err)

	assert.Equal(t, "Widget v2", p.Name)
	assert.Equal(t, "Tools", p.Category)
	assert.True(t, p.CostPrice.Equal(dec("12")))
	assert.Equal(t, int64(10), p.StockOnHand)
	assert.True(t, p.AverageCost.Equal(dec("10")), "catalog update must not touch cost basis")
	assert.Equal(t, later, p.UpdatedAt)
}

func TestProduct_ReceiveStock(t *testing.T) {
	t.Run("weighted average scenario", func(t *testing.T) {
		p := newTestProduct(t)

		require.NoError(t, p.ReceiveStock(10, decPtr("10"), false, testNow))
		assert.Equal(t, int64(10), p.StockOnHand)
		assert.True(t, p.AverageCost.Equal(dec("10")))
		assert.True(t, p.InventoryValue.Equal(dec("100")))

		require.NoError(t, p.ReceiveStock(5, decPtr("20"), false, testNow))
		assert.Equal(t, int64(15), p.StockOnHand)
		assert.Equal(t, "13.33", p.AverageCost.StringFixed(2))
		assert.Equal(t, "199.95", p.InventoryValue.StringFixed(2))
		assert.True(t, p.IsConsistent())
	})

	t.Run("reversal keeps average cost", func(t *testing.T) {
		p := newTestProduct(t)
		require.NoError(t, p.ReceiveStock(10, decPtr("10"), false, testNow))
		require.NoError(t, p.ReceiveStock(5, decPtr("20"), false, testNow))
		require.NoError(t, p.IssueStock(5, testNow))

		require.NoError(t, p.ReceiveStock(5, nil, true, testNow))
		assert.Equal(t, int64(15), p.StockOnHand)
		assert.Equal(t, "13.33", p.AverageCost.StringFixed(2))
		assert.True(t, p.IsConsistent())
	})

	t.Run("reversal ignores a supplied cost", func(t *testing.T) {
		p := newTestProduct(t)
		require.NoError(t, p.ReceiveStock(10, decPtr("10"), false, testNow))

		require.NoError(t, p.ReceiveStock(10, decPtr("1000"), true, testNow))
		assert.True(t, p.AverageCost.Equal(dec("10")))
	})

	t.Run("zero cost lowers the average", func(t *testing.T) {
		p := newTestProduct(t)
		require.NoError(t, p.ReceiveStock(10, decPtr("10"), false, testNow))
		require.NoError(t, p.ReceiveStock(10, decPtr("0"), false, testNow))
		assert.Equal(t, "5.00", p.AverageCost.StringFixed(2))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		p := newTestProduct(t)
		err := p.ReceiveStock(0, decPtr("10"), false, testNow)
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))

		err = p.ReceiveStock(-3, nil, true, testNow)
		require.Error(t, err)
	})

	t.Run("rejects missing or negative cost", func(t *testing.T) {
		p := newTestProduct(t)
		err := p.ReceiveStock(1, nil, false, testNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required")

		err = p.ReceiveStock(1, decPtr("-0.01"), false, testNow)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
		assert.Equal(t, int64(0), p.StockOnHand)
	})
}

func TestProduct_IssueStock(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.ReceiveStock(10, decPtr("7.25"), false, testNow))

	t.Run("rejects quantity above stock", func(t *testing.T) {
		err := p.IssueStock(11, testNow)
		require.Error(t, err)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		assert.Contains(t, err.Error(), "Insufficient stock")
		assert.Equal(t, int64(10), p.StockOnHand)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		err := p.IssueStock(0, testNow)
		require.Error(t, err)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})

	t.Run("decrements stock and keeps average", func(t *testing.T) {
		require.NoError(t, p.IssueStock(4, testNow))
		assert.Equal(t, int64(6), p.StockOnHand)
		assert.True(t, p.AverageCost.Equal(dec("7.25")))
		assert.Equal(t, "43.50", p.InventoryValue.StringFixed(2))
	})

	t.Run("can issue everything", func(t *testing.T) {
		require.NoError(t, p.IssueStock(6, testNow))
		assert.Equal(t, int64(0), p.StockOnHand)
		assert.True(t, p.InventoryValue.IsZero())
	})
}

func TestProduct_AdjustStock(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.ReceiveStock(3, decPtr("4"), false, testNow))

	err := p.AdjustStock(0, testNow)
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	err = p.AdjustStock(-4, testNow)
	require.Error(t, err)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	assert.Equal(t, int64(3), p.StockOnHand)

	require.NoError(t, p.AdjustStock(-3, testNow))
	assert.Equal(t, int64(0), p.StockOnHand)

	require.NoError(t, p.AdjustStock(8, testNow))
	assert.Equal(t, int64(8), p.StockOnHand)
	assert.True(t, p.AverageCost.Equal(dec("4")))
	assert.Equal(t, "32.00", p.InventoryValue.StringFixed(2))
}

func TestProduct_ValueInvariant(t *testing.T) {
	p := newTestProduct(t)
	ops := []struct {
		qty  int64
		cost string
	}{
		{7, "3.33"}, {11, "9.99"}, {1, "0.01"}, {13, "123.45"}, {2, "0"}, {29, "17.77"},
	}
	for _, op := range ops {
		require.NoError(t, p.ReceiveStock(op.qty, decPtr(op.cost), false, testNow))
		assert.True(t, p.IsConsistent(), "after stock in of %d at %s", op.qty, op.cost)
		require.NoError(t, p.IssueStock(1, testNow))
		assert.True(t, p.IsConsistent())
	}
}

func TestProduct_IsLowStock(t *testing.T) {
	p := newTestProduct(t)
	assert.True(t, p.IsLowStock())
	require.NoError(t, p.ReceiveStock(5, decPtr("1"), false, testNow))
	assert.True(t, p.IsLowStock())
	require.NoError(t, p.ReceiveStock(1, decPtr("1"), false, testNow))
	assert.False(t, p.IsLowStock())
}
