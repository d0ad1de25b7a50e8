package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appidentity "github.com/ledger/backend/internal/application/identity"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/inventory"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/lock"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ValuationService maintains stock on hand and weighted average cost per SKU.
// Every change follows read, compute, persist, append under the SKU lock.
type ValuationService struct {
	productRepo  catalog.ProductRepository
	movementRepo inventory.MovementRepository
	gate         appidentity.Authorizer
	locker       lock.Locker
	metrics      *telemetry.LedgerMetrics
	clock        shared.Clock
}

// NewValuationService creates a new ValuationService
func NewValuationService(
	productRepo catalog.ProductRepository,
	movementRepo inventory.MovementRepository,
	gate appidentity.Authorizer,
	locker lock.Locker,
) *ValuationService {
	return &ValuationService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		gate:         gate,
		locker:       locker,
		clock:        shared.SystemClock,
	}
}

// SetMetrics sets the ledger metrics recorder
func (s *ValuationService) SetMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *ValuationService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// StockIn receives quantity units. A regular receipt blends its cost into the
// average cost; a reversal restores quantity at the current average cost.
func (s *ValuationService) StockIn(ctx context.Context, tenantID, sku string, cmd StockInCommand) (*catalog.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "valuation", "stock_in",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, cmd.Quantity),
	)
	defer span.End()

	if !cmd.Reversal.IsValid() {
		return nil, recordErr(span, shared.NewValidationError("INVALID_REVERSAL_REASON", "Unknown reversal reason: "+string(cmd.Reversal)))
	}
	reversal := cmd.Reversal.IsReversal()

	product, err := s.mutate(ctx, tenantID, sku, func(p *catalog.Product, now time.Time) (*inventory.MovementRecord, error) {
		if err := p.ReceiveStock(cmd.Quantity, cmd.CostPerUnit, reversal, now); err != nil {
			return nil, err
		}
		cost := p.AverageCost
		if !reversal {
			cost = *cmd.CostPerUnit
		}
		return inventory.NewMovementRecord(p, inventory.MovementTypeStockIn, cmd.Quantity, cost, inventory.MovementDetails{
			Note:      cmd.Note,
			Reversal:  cmd.Reversal,
			Reference: cmd.Reference,
			Timestamp: movementTime(cmd.Date, now),
		})
	})
	return product, recordErr(span, err)
}

// StockOut issues quantity units at the current average cost
func (s *ValuationService) StockOut(ctx context.Context, tenantID, sku string, cmd StockOutCommand) (*catalog.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "valuation", "stock_out",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, cmd.Quantity),
	)
	defer span.End()

	product, err := s.mutate(ctx, tenantID, sku, func(p *catalog.Product, now time.Time) (*inventory.MovementRecord, error) {
		if err := p.IssueStock(cmd.Quantity, now); err != nil {
			return nil, err
		}
		return inventory.NewMovementRecord(p, inventory.MovementTypeStockOut, -cmd.Quantity, p.AverageCost, inventory.MovementDetails{
			Note:      cmd.Note,
			Reference: cmd.Reference,
			Timestamp: movementTime(cmd.Date, now),
		})
	})
	return product, recordErr(span, err)
}

// AdjustStock applies a signed correction at the existing average cost
func (s *ValuationService) AdjustStock(ctx context.Context, tenantID, sku string, cmd AdjustmentCommand) (*catalog.Product, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "valuation", "adjust",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, sku),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, cmd.Delta),
	)
	defer span.End()

	product, err := s.mutate(ctx, tenantID, sku, func(p *catalog.Product, now time.Time) (*inventory.MovementRecord, error) {
		if err := p.AdjustStock(cmd.Delta, now); err != nil {
			return nil, err
		}
		return inventory.NewMovementRecord(p, inventory.MovementTypeAdjustment, cmd.Delta, p.AverageCost, inventory.MovementDetails{
			Note:      cmd.Note,
			Timestamp: movementTime(cmd.Date, now),
		})
	})
	return product, recordErr(span, err)
}

// GetAllMovements returns every movement of the tenant, newest first
func (s *ValuationService) GetAllMovements(ctx context.Context, tenantID string) ([]inventory.MovementRecord, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.movementRepo.FindAll(ctx, tenantID)
}

// GetMovements returns one SKU's history in the order it happened. History
// outlives product deletion, so a missing product is not an error.
func (s *ValuationService) GetMovements(ctx context.Context, tenantID, sku string) ([]inventory.MovementRecord, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if err := catalog.ValidateSKU(sku); err != nil {
		return nil, err
	}
	return s.movementRepo.FindBySKU(ctx, tenantID, sku)
}

type stockChange func(p *catalog.Product, now time.Time) (*inventory.MovementRecord, error)

// mutate runs change against the stored product under its lock, persists the
// product and appends the resulting movement.
func (s *ValuationService) mutate(ctx context.Context, tenantID, sku string, change stockChange) (*catalog.Product, error) {
	if _, err := s.gate.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	sku = strings.TrimSpace(sku)
	if err := catalog.ValidateSKU(sku); err != nil {
		return nil, err
	}

	ctx, release, err := s.locker.Acquire(ctx, lock.ProductKey(tenantID, sku))
	if err != nil {
		return nil, err
	}
	defer release()

	product, err := s.productRepo.FindBySKU(ctx, tenantID, sku)
	if err != nil {
		return nil, err
	}

	before := *product
	record, err := change(product, s.clock())
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	// Unreadable history is recovered inside Append; any error here means
	// the stock change has no ledger entry and must not stand.
	if err := s.movementRepo.Append(ctx, record); err != nil {
		return nil, s.rollback(ctx, &before, record, err)
	}
	s.metrics.RecordMovement(ctx, tenantID, record.Type.String(), string(record.Reversal))

	return product, nil
}

// rollback restores the product snapshot taken before a change whose movement
// could not be appended. Both outcomes are non-retryable storage failures;
// the code tells whether the product document still carries the change.
func (s *ValuationService) rollback(ctx context.Context, before *catalog.Product, record *inventory.MovementRecord, appendErr error) error {
	fields := []zap.Field{
		zap.String("tenant_id", before.TenantID),
		zap.String("sku", before.SKU),
		zap.String("movement_type", record.Type.String()),
		zap.Int64("quantity", record.Quantity),
		zap.Error(appendErr),
	}

	if err := s.productRepo.Save(ctx, before); err != nil {
		logger.L(ctx).Error("Failed to append stock movement and to restore product",
			append(fields, zap.NamedError("restore_error", err))...)
		return shared.NewStorageError("PARTIAL_WRITE",
			fmt.Sprintf("Stock of %s changed but its movement was not recorded", before.SKU),
			errors.Join(appendErr, err), false)
	}

	logger.L(ctx).Error("Failed to append stock movement, product restored", fields...)
	return shared.NewStorageError("MOVEMENT_APPEND_FAILED",
		fmt.Sprintf("Failed to record movement for %s, stock unchanged", before.SKU),
		appendErr, false)
}

func movementTime(date, now time.Time) time.Time {
	if date.IsZero() {
		return now
	}
	return date
}

func recordErr(span trace.Span, err error) error {
	telemetry.RecordError(span, err)
	return err
}
