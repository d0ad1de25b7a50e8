package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Attribute keys shared by the ledger instruments
var (
	AttrTenantID      = attribute.Key("tenant_id")
	AttrMovementType  = attribute.Key("movement_type")
	AttrReversal      = attribute.Key("reversal")
	AttrInvoiceStatus = attribute.Key("invoice_status")
	AttrStoreOp       = attribute.Key("store.operation")
	AttrOutcome       = attribute.Key("outcome")
)

// StoreDurationBuckets are bucket boundaries for document store round trips (seconds).
var StoreDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// LedgerMetrics provides business metrics for the ledger.
// It tracks stock movements, invoice lifecycle and payment activity.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	logger *zap.Logger

	movementTotal         metric.Int64Counter
	invoiceCreatedTotal   metric.Int64Counter
	invoiceCancelledTotal metric.Int64Counter
	invoiceAmountTotal    metric.Int64Counter
	paymentTotal          metric.Int64Counter
	paymentAmountTotal    metric.Int64Counter
	storeDuration         metric.Float64Histogram
	lockWaitDuration      metric.Float64Histogram
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics registers the ledger instruments on cfg.Meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{logger: logger}

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&lm.movementTotal, "ledger_stock_movement_total", "Total number of stock movements appended", "{movements}"},
		{&lm.invoiceCreatedTotal, "ledger_invoice_created_total", "Total number of invoices created", "{invoices}"},
		{&lm.invoiceCancelledTotal, "ledger_invoice_cancelled_total", "Total number of invoices cancelled", "{invoices}"},
		{&lm.invoiceAmountTotal, "ledger_invoice_amount_total", "Total invoiced amount in cents", "{cents}"},
		{&lm.paymentTotal, "ledger_payment_total", "Total number of payments recorded", "{payments}"},
		{&lm.paymentAmountTotal, "ledger_payment_amount_total", "Total payment amount in cents", "{cents}"},
	}
	for _, c := range counters {
		counter, err := cfg.Meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	histograms := []struct {
		target      *metric.Float64Histogram
		name        string
		description string
	}{
		{&lm.storeDuration, "ledger_store_operation_duration_seconds", "Duration of document store round trips"},
		{&lm.lockWaitDuration, "ledger_lock_wait_duration_seconds", "Time spent waiting for keyed locks"},
	}
	for _, h := range histograms {
		histogram, err := cfg.Meter.Float64Histogram(h.name,
			metric.WithDescription(h.description),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(StoreDurationBuckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create histogram %s: %w", h.name, err)
		}
		*h.target = histogram
	}

	return lm, nil
}

// RecordMovement records an appended stock movement
func (lm *LedgerMetrics) RecordMovement(ctx context.Context, tenantID, movementType, reversal string) {
	if lm == nil {
		return
	}
	if reversal == "" {
		reversal = "none"
	}
	lm.movementTotal.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID),
		AttrMovementType.String(movementType),
		AttrReversal.String(reversal),
	))
}

// RecordInvoiceCreated records an invoice creation with its total
func (lm *LedgerMetrics) RecordInvoiceCreated(ctx context.Context, tenantID, status string, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	tenant := metric.WithAttributes(AttrTenantID.String(tenantID))
	lm.invoiceCreatedTotal.Add(ctx, 1, tenant, metric.WithAttributes(AttrInvoiceStatus.String(status)))
	lm.invoiceAmountTotal.Add(ctx, toCents(amount), tenant)
}

// RecordInvoiceCancelled records an invoice cancellation
func (lm *LedgerMetrics) RecordInvoiceCancelled(ctx context.Context, tenantID string) {
	if lm == nil {
		return
	}
	lm.invoiceCancelledTotal.Add(ctx, 1, metric.WithAttributes(AttrTenantID.String(tenantID)))
}

// RecordPayment records a payment against an invoice
func (lm *LedgerMetrics) RecordPayment(ctx context.Context, tenantID, resultingStatus string, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	tenant := metric.WithAttributes(AttrTenantID.String(tenantID))
	lm.paymentTotal.Add(ctx, 1, tenant, metric.WithAttributes(AttrInvoiceStatus.String(resultingStatus)))
	lm.paymentAmountTotal.Add(ctx, toCents(amount), tenant)
}

// RecordStoreOperation records the duration and outcome of a store round trip
func (lm *LedgerMetrics) RecordStoreOperation(ctx context.Context, op string, d time.Duration, err error) {
	if lm == nil {
		return
	}
	lm.storeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		AttrStoreOp.String(op),
		AttrOutcome.String(outcome(err)),
	))
}

// RecordLockWait records how long acquiring a set of keyed locks took
func (lm *LedgerMetrics) RecordLockWait(ctx context.Context, d time.Duration, err error) {
	if lm == nil {
		return
	}
	lm.lockWaitDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrOutcome.String(outcome(err))))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
