package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/ledger/backend/internal/application/inventory"
	"github.com/ledger/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryHandler handles stock movement endpoints
type InventoryHandler struct {
	BaseHandler
	valuationService *inventoryapp.ValuationService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(valuationService *inventoryapp.ValuationService) *InventoryHandler {
	return &InventoryHandler{
		valuationService: valuationService,
	}
}

// StockInRequest represents a goods receipt
type StockInRequest struct {
	Quantity    int64            `json:"quantity" binding:"required,gt=0"`
	CostPerUnit *decimal.Decimal `json:"cost_per_unit"` // Required unless reversal is set
	Note        string           `json:"note" binding:"max=500"`
	Date        *time.Time       `json:"date"`
	// Reversal is none, invoice_cancellation, compensation or manual
	Reversal    string           `json:"reversal"`
	Reference   string           `json:"reference" binding:"max=64"`
}

// StockOutRequest represents a goods issue
type StockOutRequest struct {
	Quantity  int64      `json:"quantity" binding:"required,gt=0"`
	Note      string     `json:"note" binding:"max=500"`
	Date      *time.Time `json:"date"`
	Reference string     `json:"reference" binding:"max=64"`
}

// AdjustmentRequest represents a signed stock correction
type AdjustmentRequest struct {
	Delta int64      `json:"delta" binding:"required,ne=0"`
	Note  string     `json:"note" binding:"max=500"`
	Date  *time.Time `json:"date"`
}

// StockIn handles POST /products/:sku/stock-in
func (h *InventoryHandler) StockIn(c *gin.Context) {
	var req StockInRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reversal, err := inventory.ParseReversalReason(req.Reversal)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	product, err := h.valuationService.StockIn(c.Request.Context(), tenantID(c), c.Param("sku"), inventoryapp.StockInCommand{
		Quantity:    req.Quantity,
		CostPerUnit: req.CostPerUnit,
		Note:        req.Note,
		Date:        derefTime(req.Date),
		Reversal:    reversal,
		Reference:   req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// StockOut handles POST /products/:sku/stock-out
func (h *InventoryHandler) StockOut(c *gin.Context) {
	var req StockOutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.valuationService.StockOut(c.Request.Context(), tenantID(c), c.Param("sku"), inventoryapp.StockOutCommand{
		Quantity:  req.Quantity,
		Note:      req.Note,
		Date:      derefTime(req.Date),
		Reference: req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Adjust handles POST /products/:sku/adjustments
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.valuationService.AdjustStock(c.Request.Context(), tenantID(c), c.Param("sku"), inventoryapp.AdjustmentCommand{
		Delta: req.Delta,
		Note:  req.Note,
		Date:  derefTime(req.Date),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ProductMovements handles GET /products/:sku/movements
func (h *InventoryHandler) ProductMovements(c *gin.Context) {
	movements, err := h.valuationService.GetMovements(c.Request.Context(), tenantID(c), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, movements, len(movements))
}

// AllMovements handles GET /movements, newest first
func (h *InventoryHandler) AllMovements(c *gin.Context) {
	movements, err := h.valuationService.GetAllMovements(c.Request.Context(), tenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, movements, len(movements))
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
