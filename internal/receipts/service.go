package receipts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/audit"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/outbox"
)

// Service books deliveries into stock and unwinds unused ones.
type Service interface {
	Create(ctx context.Context, tc tenantctx.TenantContext, input CreateInput) (*CreateResult, error)
	Delete(ctx context.Context, tc tenantctx.TenantContext, receiptID uuid.UUID) error
	GetIncludingDeleted(ctx context.Context, tc tenantctx.TenantContext, receiptID uuid.UUID) (*ReceiptDTO, error)
}

// CreateInput is one atomic delivery booking. Every line either commits with
// the rest or the whole booking rolls back.
type CreateInput struct {
	Lines []LineInput
}

// LineInput books received quantity against one purchase order line.
// LotPerPiece splits an integral piece-count quantity into single-piece lots,
// which is how full-length profiles are stocked individually.
type LineInput struct {
	POLineID        uuid.UUID
	Quantity        decimal.Decimal
	Unit            enums.StockUnit
	LengthMM        *int64
	Location        *string
	DeviationReason *string
	LotPerPiece     bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(tx *gorm.DB, tc tenantctx.TenantContext, input audit.RecordInput) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// lotGuard reports whether any of a receipt's lots have been reserved or
// already written to. The stock repository satisfies it.
type lotGuard interface {
	CountReservedOrConsumedLots(ctx context.Context, tc tenantctx.TenantContext, receiptID uuid.UUID) (int64, error)
}

type service struct {
	repo    *Repository
	runner  txRunner
	auditor auditRecorder
	events  eventEmitter
	guard   lotGuard
}

// NewService constructs the receipts service.
func NewService(repo *Repository, runner txRunner, auditor auditRecorder, events eventEmitter, guard lotGuard) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("receipts repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if guard == nil {
		return nil, fmt.Errorf("lot guard required")
	}
	return &service{repo: repo, runner: runner, auditor: auditor, events: events, guard: guard}, nil
}

func (s *service) Create(ctx context.Context, tc tenantctx.TenantContext, input CreateInput) (*CreateResult, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one receipt line is required")
	}
	for i, line := range input.Lines {
		if err := validateLine(i, line); err != nil {
			return nil, err
		}
	}

	result := &CreateResult{}
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()

		for _, line := range input.Lines {
			poLine, err := repo.FindPOLine(ctx, tc, line.POLineID)
			if err != nil {
				return err
			}
			if line.Unit != poLine.Unit {
				return pkgerrors.New(pkgerrors.CodeValidation, "receipt unit does not match the ordered unit").
					WithDetails(map[string]any{
						"po_line_id": poLine.ID.String(),
						"ordered":    poLine.Unit,
						"received":   line.Unit,
					})
			}

			receipt := &models.GoodsReceipt{
				POLineID:        line.POLineID,
				ReceivedQty:     line.Quantity,
				Unit:            line.Unit,
				DeviationReason: line.DeviationReason,
				ReceivedBy:      tc.ActorID(),
				ReceivedAt:      now,
			}
			if err := repo.CreateReceiptTx(tx, tc, receipt); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create receipt")
			}

			lots, err := buildLots(receipt, line)
			if err != nil {
				return err
			}
			if err := repo.CreateLotsTx(tx, tc, lots); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create lots")
			}
			receipt.Lots = lots

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType: enums.AuditEntityGoodsReceipt,
				EntityID:   receipt.ID,
				Action:     enums.AuditActionCreate,
				NewState: map[string]any{
					"po_line_id":   receipt.POLineID.String(),
					"received_qty": receipt.ReceivedQty.String(),
					"unit":         receipt.Unit,
					"lots":         len(lots),
				},
			}); err != nil {
				return err
			}
			for i := range lots {
				if err := s.auditor.Record(tx, tc, audit.RecordInput{
					EntityType: enums.AuditEntityInventoryLot,
					EntityID:   lots[i].ID,
					Action:     enums.AuditActionCreate,
					NewState: map[string]any{
						"receipt_id": receipt.ID.String(),
						"quantity":   lots[i].Quantity.String(),
						"unit":       lots[i].Unit,
					},
				}); err != nil {
					return err
				}
			}

			err = s.events.Emit(ctx, tx, outbox.DomainEvent{
				TenantID:      tc.TenantID(),
				EventType:     enums.EventReceiptCreated,
				AggregateType: enums.AggregateGoodsReceipt,
				AggregateID:   receipt.ID,
				Actor: &outbox.ActorRef{
					ActorID:  tc.ActorID(),
					TenantID: tc.TenantID(),
					Role:     tc.Role().String(),
				},
				Data: map[string]any{
					"po_line_id":   receipt.POLineID.String(),
					"received_qty": receipt.ReceivedQty.String(),
					"lot_count":    len(lots),
				},
				Version: 1,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit receipt_created")
			}

			result.Receipts = append(result.Receipts, *NewReceiptDTO(receipt))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Delete(ctx context.Context, tc tenantctx.TenantContext, receiptID uuid.UUID) error {
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		receipt, err := repo.FindReceipt(ctx, tc, receiptID)
		if err != nil {
			return err
		}

		touched, err := s.guard.CountReservedOrConsumedLots(ctx, tc, receiptID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check receipt lots")
		}
		if touched > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "receipt has reserved or consumed lots").
				WithDetails(map[string]any{"touched_lots": touched})
		}

		if err := repo.SoftDeleteReceiptTx(tx, tc, receiptID, receipt.Version); err != nil {
			return err
		}
		for i := range receipt.Lots {
			if err := repo.SoftDeleteLotTx(tx, tc, receipt.Lots[i].ID, receipt.Lots[i].Version); err != nil {
				return err
			}
		}

		if err := s.auditor.Record(tx, tc, audit.RecordInput{
			EntityType: enums.AuditEntityGoodsReceipt,
			EntityID:   receiptID,
			Action:     enums.AuditActionDelete,
			PreviousState: map[string]any{
				"po_line_id":   receipt.POLineID.String(),
				"received_qty": receipt.ReceivedQty.String(),
				"lots":         len(receipt.Lots),
			},
		}); err != nil {
			return err
		}

		err = s.events.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      tc.TenantID(),
			EventType:     enums.EventReceiptDeleted,
			AggregateType: enums.AggregateGoodsReceipt,
			AggregateID:   receiptID,
			Actor: &outbox.ActorRef{
				ActorID:  tc.ActorID(),
				TenantID: tc.TenantID(),
				Role:     tc.Role().String(),
			},
			Data:    map[string]any{"lot_count": len(receipt.Lots)},
			Version: 1,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit receipt_deleted")
		}
		return nil
	})
}

// GetIncludingDeleted returns a receipt even after soft deletion. Admin
// recovery read; it never resurrects the row.
func (s *service) GetIncludingDeleted(ctx context.Context, tc tenantctx.TenantContext, receiptID uuid.UUID) (*ReceiptDTO, error) {
	receipt, err := s.repo.FindReceiptIncludingDeleted(ctx, tc, receiptID)
	if err != nil {
		return nil, err
	}
	return NewReceiptDTO(receipt), nil
}

func validateLine(index int, line LineInput) error {
	if line.POLineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "po_line_id is required").
			WithDetails(map[string]any{"line": index})
	}
	if !line.Quantity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"line": index, "quantity": line.Quantity.String()})
	}
	if !line.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown stock unit").
			WithDetails(map[string]any{"line": index, "unit": line.Unit})
	}
	if line.LengthMM != nil && *line.LengthMM <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "length_mm must be positive when provided").
			WithDetails(map[string]any{"line": index})
	}
	if line.LotPerPiece {
		if line.Unit != enums.StockUnitPiece {
			return pkgerrors.New(pkgerrors.CodeValidation, "lot-per-piece booking requires piece units").
				WithDetails(map[string]any{"line": index, "unit": line.Unit})
		}
		if !line.Quantity.IsInteger() {
			return pkgerrors.New(pkgerrors.CodeValidation, "lot-per-piece booking requires a whole piece count").
				WithDetails(map[string]any{"line": index, "quantity": line.Quantity.String()})
		}
	}
	return nil
}

func buildLots(receipt *models.GoodsReceipt, line LineInput) ([]models.InventoryLot, error) {
	if line.LotPerPiece {
		pieces := line.Quantity.IntPart()
		lots := make([]models.InventoryLot, 0, pieces)
		for i := int64(0); i < pieces; i++ {
			lots = append(lots, models.InventoryLot{
				ReceiptID: receipt.ID,
				POLineID:  receipt.POLineID,
				Quantity:  decimal.NewFromInt(1),
				Unit:      line.Unit,
				LengthMM:  line.LengthMM,
				Location:  line.Location,
			})
		}
		return lots, nil
	}
	return []models.InventoryLot{{
		ReceiptID: receipt.ID,
		POLineID:  receipt.POLineID,
		Quantity:  line.Quantity,
		Unit:      line.Unit,
		LengthMM:  line.LengthMM,
		Location:  line.Location,
	}}, nil
}
