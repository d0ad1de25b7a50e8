package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbooks
const (
	InvoicesSheet  = "Invoices"
	ValuationSheet = "Stock Valuation"
)

var invoiceHeaders = []interface{}{
	"Invoice Number", "Invoice Date", "Customer", "Status",
	"Subtotal", "Tax", "Total", "Outstanding", "Gross Profit",
}

var valuationHeaders = []interface{}{
	"Category", "SKU", "Name", "Stock On Hand", "Average Cost", "Inventory Value",
}

// ExportInvoicesXLSX writes the invoices dated within [from, to) to a workbook,
// oldest first. A zero bound leaves that side of the range open.
func (s *ReportService) ExportInvoicesXLSX(ctx context.Context, tenantID string, from, to time.Time) ([]byte, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "export_invoices",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
	)
	defer span.End()

	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		err := shared.NewValidationError("INVALID_RANGE", "from must be before to")
		telemetry.RecordError(span, err)
		return nil, err
	}
	tenant, err := s.gate.Authorize(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	invoices, err := s.invoiceRepo.FindAll(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	selected := make([]*trade.Invoice, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		if !from.IsZero() && inv.InvoiceDate.Before(from) {
			continue
		}
		if !to.IsZero() && !inv.InvoiceDate.Before(to) {
			continue
		}
		selected = append(selected, inv)
	}
	sort.Slice(selected, func(i, j int) bool {
		if !selected[i].InvoiceDate.Equal(selected[j].InvoiceDate) {
			return selected[i].InvoiceDate.Before(selected[j].InvoiceDate)
		}
		return selected[i].InvoiceNumber < selected[j].InvoiceNumber
	})
	telemetry.SetAttributes(span, "row_count", len(selected))

	loc := tenant.Location()
	rows := make([][]interface{}, 0, len(selected))
	for _, inv := range selected {
		rows = append(rows, []interface{}{
			inv.InvoiceNumber,
			inv.InvoiceDate.In(loc).Format("2006-01-02"),
			inv.Customer.Name,
			inv.Status.String(),
			inv.Subtotal.InexactFloat64(),
			inv.TotalTax.InexactFloat64(),
			inv.TotalAmount.InexactFloat64(),
			inv.OutstandingAmount.InexactFloat64(),
			inv.GrossProfit.InexactFloat64(),
		})
	}

	data, err := writeWorkbook(InvoicesSheet, invoiceHeaders, rows)
	telemetry.RecordError(span, err)
	return data, err
}

// ExportStockValuationXLSX writes the stock valuation report to a workbook,
// one row per product followed by a grand total row.
func (s *ReportService) ExportStockValuationXLSX(ctx context.Context, tenantID string) ([]byte, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "export_valuation",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
	)
	defer span.End()

	valuation, err := s.GetStockValuation(ctx, tenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var rows [][]interface{}
	for _, category := range valuation.Categories {
		for _, item := range category.Items {
			rows = append(rows, []interface{}{
				category.Category,
				item.SKU,
				item.Name,
				item.StockOnHand,
				item.AverageCost.InexactFloat64(),
				item.InventoryValue.InexactFloat64(),
			})
		}
	}
	rows = append(rows, []interface{}{"Grand Total", "", "", "", "", valuation.GrandTotal.InexactFloat64()})

	data, err := writeWorkbook(ValuationSheet, valuationHeaders, rows)
	telemetry.RecordError(span, err)
	return data, err
}

// writeWorkbook renders a single sheet with a bold header row
func writeWorkbook(sheet string, headers []interface{}, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, exportError(err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, exportError(err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, exportError(err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, exportError(err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, bold); err != nil {
		return nil, exportError(err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, exportError(err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, exportError(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, exportError(err)
	}
	return buf.Bytes(), nil
}

func exportError(err error) error {
	return shared.NewStorageError("EXPORT_FAILED", fmt.Sprintf("Failed to render workbook: %v", err), err, false)
}
