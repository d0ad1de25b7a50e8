package handler

import (
	"github.com/gin-gonic/gin"
	tradeapp "github.com/ledger/backend/internal/application/trade"
)

// InvoiceHandler handles sales invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *tradeapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *tradeapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req tradeapp.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), tenantID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// List handles GET /invoices?status=, newest first
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter tradeapp.InvoiceListFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	invoices, err := h.invoiceService.List(c.Request.Context(), tenantID(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, invoices, len(invoices))
}

// Get handles GET /invoices/:number
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), tenantID(c), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Cancel handles POST /invoices/:number/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	invoice, err := h.invoiceService.Cancel(c.Request.Context(), tenantID(c), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// RecordPayment handles POST /invoices/:number/payments
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	var req tradeapp.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), tenantID(c), c.Param("number"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
