package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	reportapp "github.com/ledger/backend/internal/application/report"
	"github.com/ledger/backend/internal/interfaces/http/dto"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler handles report endpoints
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// InvoiceExportRequest is the date range of an invoice export.
// Both dates are inclusive UTC calendar days.
type InvoiceExportRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// Dashboard handles GET /reports/dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	summary, err := h.reportService.GetDashboardSummary(c.Request.Context(), tenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Valuation handles GET /reports/valuation
func (h *ReportHandler) Valuation(c *gin.Context) {
	valuation, err := h.reportService.GetStockValuation(c.Request.Context(), tenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, valuation)
}

// ExportInvoices handles GET /reports/export/invoices.xlsx?from=&to=
func (h *ReportHandler) ExportInvoices(c *gin.Context) {
	var req InvoiceExportRequest
	if !h.BindQuery(c, &req) {
		return
	}
	from, to, ok := h.parseRange(c, req)
	if !ok {
		return
	}

	data, err := h.reportService.ExportInvoicesXLSX(c.Request.Context(), tenantID(c), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.attachment(c, "invoices.xlsx", data)
}

// ExportValuation handles GET /reports/export/valuation.xlsx
func (h *ReportHandler) ExportValuation(c *gin.Context) {
	data, err := h.reportService.ExportStockValuationXLSX(c.Request.Context(), tenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.attachment(c, "stock-valuation.xlsx", data)
}

func (h *ReportHandler) parseRange(c *gin.Context, req InvoiceExportRequest) (from, to time.Time, ok bool) {
	var err error
	if req.From != "" {
		if from, err = time.Parse(time.DateOnly, req.From); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "from must be a YYYY-MM-DD date")
			return from, to, false
		}
	}
	if req.To != "" {
		if to, err = time.Parse(time.DateOnly, req.To); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "to must be a YYYY-MM-DD date")
			return from, to, false
		}
		to = to.AddDate(0, 0, 1)
	}
	return from, to, true
}

func (h *ReportHandler) attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
