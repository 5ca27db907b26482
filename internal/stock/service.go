package stock

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
	dbtypes "github.com/skarvik/fabops-backend/pkg/db/types"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/metrics"
	"github.com/skarvik/fabops-backend/pkg/outbox"
)

// Service is the stock ledger. Every mutation runs in one transaction with the
// concurrency gate, its audit entry, and its outbox event; a failure anywhere
// rolls the whole mutation back.
type Service interface {
	ReserveLot(ctx context.Context, tc tenantctx.TenantContext, lotID uuid.UUID, input ReserveLotInput) (*LotDTO, error)
	ReleaseLot(ctx context.Context, tc tenantctx.TenantContext, lotID uuid.UUID, input ReleaseInput) (*LotDTO, error)
	ConsumeLot(ctx context.Context, tc tenantctx.TenantContext, lotID uuid.UUID, input ConsumeLotInput) (*LotDTO, error)

	ReserveProfile(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID, input ReserveInput) (*ProfileDTO, error)
	ReleaseProfile(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID, input ReleaseInput) (*ProfileDTO, error)
	ReserveRemnant(ctx context.Context, tc tenantctx.TenantContext, remnantID uuid.UUID, input ReserveInput) (*RemnantDTO, error)
	ReleaseRemnant(ctx context.Context, tc tenantctx.TenantContext, remnantID uuid.UUID, input ReleaseInput) (*RemnantDTO, error)

	RecordProfileUsage(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID, input UsageInput) (*UsageResult, error)
	RecordRemnantUsage(ctx context.Context, tc tenantctx.TenantContext, remnantID uuid.UUID, input UsageInput) (*UsageResult, error)

	GetProfile(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID) (*ProfileDTO, error)
}

// ReserveLotInput claims quantity from a lot. Claiming everything that is left
// flags the lot reserved; claiming less carves the quantity off and leaves the
// rest unreserved.
type ReserveLotInput struct {
	Quantity decimal.Decimal
	Version  int64
}

// ConsumeLotInput permanently removes quantity from a lot.
type ConsumeLotInput struct {
	Quantity decimal.Decimal
	Version  int64
}

// ReserveInput claims a whole profile or remnant.
type ReserveInput struct {
	Version int64
}

// ReleaseInput drops a reservation. Releasing an unreserved resource is a
// no-op, not an error.
type ReleaseInput struct {
	Version int64
}

// UsageInput describes one cut to record against a profile or remnant.
type UsageInput struct {
	PiecesUsed      int
	PieceLengthMM   int64
	RemnantPieces   int
	RemnantLengthMM int64
	ProjectRef      *string
	Version         int64
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

type service struct {
	repo    *Repository
	runner  txRunner
	auditor auditRecorder
	events  eventEmitter
	metrics *metrics.StockMetrics
}

// NewService constructs the stock ledger service. Metrics may be nil.
func NewService(repo *Repository, runner txRunner, auditor auditRecorder, events eventEmitter, m *metrics.StockMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
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
	return &service{repo: repo, runner: runner, auditor: auditor, events: events, metrics: m}, nil
}

func (s *service) ReserveLot(ctx context.Context, tc tenantctx.TenantContext, lotID uuid.UUID, input ReserveLotInput) (*LotDTO, error) {
	var result *LotDTO
	err := s.instrument(ctx, "reserve_lot", "inventory_lot", func() error {
		if !input.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			lot, err := repo.FindLot(ctx, tc, lotID)
			if err != nil {
				return err
			}
			if lot.Reserved {
				return pkgerrors.New(pkgerrors.CodeConflict, "lot is already reserved")
			}

			cmp := input.Quantity.Cmp(lot.Quantity)
			if cmp > 0 {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds lot quantity").
					WithDetails(map[string]any{
						"requested": input.Quantity.String(),
						"available": lot.Quantity.String(),
					})
			}

			now := time.Now().UTC()
			actorID := tc.ActorID()
			previous := lotAuditState(lot)

			var updates map[string]any
			if cmp == 0 {
				updates = map[string]any{
					"reserved":    true,
					"reserved_by": actorID,
					"reserved_at": now,
				}
			} else {
				updates = map[string]any{
					"quantity": lot.Quantity.Sub(input.Quantity),
				}
			}
			if err := repo.UpdateLotVersioned(tc, lotID, input.Version, updates); err != nil {
				return err
			}

			after := *lot
			after.Version = input.Version + 1
			if cmp == 0 {
				after.Reserved = true
				after.ReservedBy = &actorID
				after.ReservedAt = &now
			} else {
				after.Quantity = lot.Quantity.Sub(input.Quantity)
			}

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityInventoryLot,
				EntityID:      lotID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      lotAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockReserved, enums.AggregateInventoryLot, lotID, map[string]any{
				"quantity":       input.Quantity.String(),
				"remaining":      after.Quantity.String(),
				"fully_reserved": cmp == 0,
			}); err != nil {
				return err
			}
			result = NewLotDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) ReleaseLot(ctx context.Context, tc tenantctx.TenantContext, lotID uuid.UUID, input ReleaseInput) (*LotDTO, error) {
	var result *LotDTO
	err := s.instrument(ctx, "release_lot", "inventory_lot", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			lot, err := repo.FindLot(ctx, tc, lotID)
			if err != nil {
				return err
			}
			if !lot.Reserved {
				result = NewLotDTO(lot)
				return nil
			}

			previous := lotAuditState(lot)
			updates := map[string]any{
				"reserved":    false,
				"reserved_by": nil,
				"reserved_at": nil,
			}
			if err := repo.UpdateLotVersioned(tc, lotID, input.Version, updates); err != nil {
				return err
			}

			after := *lot
			after.Version = input.Version + 1
			after.Reserved = false
			after.ReservedBy = nil
			after.ReservedAt = nil

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityInventoryLot,
				EntityID:      lotID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      lotAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockReleased, enums.AggregateInventoryLot, lotID, map[string]any{
				"quantity": lot.Quantity.String(),
			}); err != nil {
				return err
			}
			result = NewLotDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) ConsumeLot(ctx context.Context, tc tenantctx.TenantContext, lotID uuid.UUID, input ConsumeLotInput) (*LotDTO, error) {
	var result *LotDTO
	err := s.instrument(ctx, "consume_lot", "inventory_lot", func() error {
		if !input.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			lot, err := repo.FindLot(ctx, tc, lotID)
			if err != nil {
				return err
			}
			if reservedByOther(lot.Reserved, lot.ReservedBy, tc.ActorID()) {
				return pkgerrors.New(pkgerrors.CodeConflict, "lot is reserved by another actor")
			}
			if input.Quantity.GreaterThan(lot.Quantity) {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "consumed quantity exceeds lot quantity").
					WithDetails(map[string]any{
						"requested": input.Quantity.String(),
						"available": lot.Quantity.String(),
					})
			}

			remaining := lot.Quantity.Sub(input.Quantity)
			previous := lotAuditState(lot)
			updates := map[string]any{"quantity": remaining}
			if remaining.IsZero() {
				updates["reserved"] = false
				updates["reserved_by"] = nil
				updates["reserved_at"] = nil
			}
			if err := repo.UpdateLotVersioned(tc, lotID, input.Version, updates); err != nil {
				return err
			}

			after := *lot
			after.Version = input.Version + 1
			after.Quantity = remaining
			if remaining.IsZero() {
				after.Reserved = false
				after.ReservedBy = nil
				after.ReservedAt = nil
			}

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityInventoryLot,
				EntityID:      lotID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      lotAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockConsumed, enums.AggregateInventoryLot, lotID, map[string]any{
				"quantity":  input.Quantity.String(),
				"remaining": remaining.String(),
			}); err != nil {
				return err
			}
			result = NewLotDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) ReserveProfile(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID, input ReserveInput) (*ProfileDTO, error) {
	var result *ProfileDTO
	err := s.instrument(ctx, "reserve_profile", "profile", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			profile, err := repo.FindProfile(ctx, tc, profileID)
			if err != nil {
				return err
			}
			if profile.Reserved {
				return pkgerrors.New(pkgerrors.CodeConflict, "profile is already reserved")
			}
			if profile.AvailableLengthMM <= 0 {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "profile is exhausted")
			}

			now := time.Now().UTC()
			actorID := tc.ActorID()
			previous := profileAuditState(profile)
			updates := map[string]any{
				"reserved":    true,
				"reserved_by": actorID,
				"reserved_at": now,
			}
			if err := repo.UpdateProfileVersioned(tc, profileID, input.Version, updates); err != nil {
				return err
			}

			after := *profile
			after.Version = input.Version + 1
			after.Reserved = true
			after.ReservedBy = &actorID
			after.ReservedAt = &now

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityProfile,
				EntityID:      profileID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      profileAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockReserved, enums.AggregateProfile, profileID, map[string]any{
				"available_length_mm": profile.AvailableLengthMM,
			}); err != nil {
				return err
			}
			result = NewProfileDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) ReleaseProfile(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID, input ReleaseInput) (*ProfileDTO, error) {
	var result *ProfileDTO
	err := s.instrument(ctx, "release_profile", "profile", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			profile, err := repo.FindProfile(ctx, tc, profileID)
			if err != nil {
				return err
			}
			if !profile.Reserved {
				result = NewProfileDTO(profile)
				return nil
			}

			previous := profileAuditState(profile)
			updates := map[string]any{
				"reserved":    false,
				"reserved_by": nil,
				"reserved_at": nil,
			}
			if err := repo.UpdateProfileVersioned(tc, profileID, input.Version, updates); err != nil {
				return err
			}

			after := *profile
			after.Version = input.Version + 1
			after.Reserved = false
			after.ReservedBy = nil
			after.ReservedAt = nil

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityProfile,
				EntityID:      profileID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      profileAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockReleased, enums.AggregateProfile, profileID, map[string]any{
				"available_length_mm": profile.AvailableLengthMM,
			}); err != nil {
				return err
			}
			result = NewProfileDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) ReserveRemnant(ctx context.Context, tc tenantctx.TenantContext, remnantID uuid.UUID, input ReserveInput) (*RemnantDTO, error) {
	var result *RemnantDTO
	err := s.instrument(ctx, "reserve_remnant", "profile_remnant", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			remnant, err := repo.FindRemnant(ctx, tc, remnantID)
			if err != nil {
				return err
			}
			if remnant.Reserved {
				return pkgerrors.New(pkgerrors.CodeConflict, "remnant is already reserved")
			}
			if remnant.LengthMM <= 0 || remnant.Status == enums.StockStatusExhausted {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "remnant is exhausted")
			}

			now := time.Now().UTC()
			actorID := tc.ActorID()
			previous := remnantAuditState(remnant)
			updates := map[string]any{
				"reserved":    true,
				"reserved_by": actorID,
				"reserved_at": now,
			}
			if err := repo.UpdateRemnantVersioned(tc, remnantID, input.Version, updates); err != nil {
				return err
			}

			after := *remnant
			after.Version = input.Version + 1
			after.Reserved = true
			after.ReservedBy = &actorID
			after.ReservedAt = &now

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityProfileRemnant,
				EntityID:      remnantID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      remnantAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockReserved, enums.AggregateProfileRemnant, remnantID, map[string]any{
				"length_mm": remnant.LengthMM,
			}); err != nil {
				return err
			}
			result = NewRemnantDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) ReleaseRemnant(ctx context.Context, tc tenantctx.TenantContext, remnantID uuid.UUID, input ReleaseInput) (*RemnantDTO, error) {
	var result *RemnantDTO
	err := s.instrument(ctx, "release_remnant", "profile_remnant", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			remnant, err := repo.FindRemnant(ctx, tc, remnantID)
			if err != nil {
				return err
			}
			if !remnant.Reserved {
				result = NewRemnantDTO(remnant)
				return nil
			}

			previous := remnantAuditState(remnant)
			updates := map[string]any{
				"reserved":    false,
				"reserved_by": nil,
				"reserved_at": nil,
			}
			if err := repo.UpdateRemnantVersioned(tc, remnantID, input.Version, updates); err != nil {
				return err
			}

			after := *remnant
			after.Version = input.Version + 1
			after.Reserved = false
			after.ReservedBy = nil
			after.ReservedAt = nil

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityProfileRemnant,
				EntityID:      remnantID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      remnantAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventStockReleased, enums.AggregateProfileRemnant, remnantID, map[string]any{
				"length_mm": remnant.LengthMM,
			}); err != nil {
				return err
			}
			result = NewRemnantDTO(&after)
			return nil
		})
	})
	return result, err
}

func (s *service) RecordProfileUsage(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID, input UsageInput) (*UsageResult, error) {
	var result *UsageResult
	err := s.instrument(ctx, "profile_usage", "profile", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			profile, err := repo.FindProfile(ctx, tc, profileID)
			if err != nil {
				return err
			}
			if reservedByOther(profile.Reserved, profile.ReservedBy, tc.ActorID()) {
				return pkgerrors.New(pkgerrors.CodeConflict, "profile is reserved by another actor")
			}

			plan, err := PlanAllocation(profile.AvailableLengthMM, profile.TotalLengthMM, AllocationRequest{
				PiecesUsed:      input.PiecesUsed,
				PieceLengthMM:   input.PieceLengthMM,
				RemnantPieces:   input.RemnantPieces,
				RemnantLengthMM: input.RemnantLengthMM,
			})
			if err != nil {
				return err
			}

			remnants := buildRemnants(profile, input.RemnantPieces, input.RemnantLengthMM)
			if err := repo.CreateRemnantsTx(tx, tc, remnants); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create remnants")
			}

			usage := &models.ProfileUsage{
				TenantID:          tc.TenantID(),
				ProfileID:         profileID,
				PiecesUsed:        input.PiecesUsed,
				PieceLengthMM:     input.PieceLengthMM,
				RemnantPieces:     input.RemnantPieces,
				RemnantLengthMM:   input.RemnantLengthMM,
				CreatedRemnantIDs: remnantIDs(remnants),
				LengthBeforeMM:    plan.LengthBeforeMM,
				LengthAfterMM:     plan.LengthAfterMM,
				ProjectRef:        input.ProjectRef,
				ActorID:           tc.ActorID(),
			}
			if err := repo.InsertProfileUsageTx(tx, usage); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert profile usage")
			}

			previous := profileAuditState(profile)
			updates := map[string]any{"available_length_mm": plan.LengthAfterMM}
			if plan.Exhausted {
				updates["status"] = enums.StockStatusExhausted
			}
			if err := repo.UpdateProfileVersioned(tc, profileID, input.Version, updates); err != nil {
				return err
			}

			after := *profile
			after.Version = input.Version + 1
			after.AvailableLengthMM = plan.LengthAfterMM
			if plan.Exhausted {
				after.Status = enums.StockStatusExhausted
			}

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityProfile,
				EntityID:      profileID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      profileAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventProfileUsageRecorded, enums.AggregateProfile, profileID, usageEventData(usage.ID, plan, input)); err != nil {
				return err
			}
			for i := range remnants {
				if err := s.emit(ctx, tx, tc, enums.EventRemnantCreated, enums.AggregateProfileRemnant, remnants[i].ID, map[string]any{
					"profile_id": profileID.String(),
					"length_mm":  remnants[i].LengthMM,
				}); err != nil {
					return err
				}
			}

			result = newUsageResult(usage.ID, profileID, plan, input, remnants, after.Version)
			return nil
		})
	})
	return result, err
}

func (s *service) RecordRemnantUsage(ctx context.Context, tc tenantctx.TenantContext, remnantID uuid.UUID, input UsageInput) (*UsageResult, error) {
	var result *UsageResult
	err := s.instrument(ctx, "remnant_usage", "profile_remnant", func() error {
		return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			remnant, err := repo.FindRemnant(ctx, tc, remnantID)
			if err != nil {
				return err
			}
			if reservedByOther(remnant.Reserved, remnant.ReservedBy, tc.ActorID()) {
				return pkgerrors.New(pkgerrors.CodeConflict, "remnant is reserved by another actor")
			}
			// New offcuts always attach to the originating profile, never to
			// the remnant being cut.
			profile, err := repo.FindProfile(ctx, tc, remnant.ProfileID)
			if err != nil {
				return err
			}

			plan, err := PlanAllocation(remnant.LengthMM, profile.TotalLengthMM, AllocationRequest{
				PiecesUsed:      input.PiecesUsed,
				PieceLengthMM:   input.PieceLengthMM,
				RemnantPieces:   input.RemnantPieces,
				RemnantLengthMM: input.RemnantLengthMM,
			})
			if err != nil {
				return err
			}

			remnants := buildRemnants(profile, input.RemnantPieces, input.RemnantLengthMM)
			if err := repo.CreateRemnantsTx(tx, tc, remnants); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create remnants")
			}

			usage := &models.RemnantUsage{
				TenantID:          tc.TenantID(),
				RemnantID:         remnantID,
				ProfileID:         remnant.ProfileID,
				PiecesUsed:        input.PiecesUsed,
				PieceLengthMM:     input.PieceLengthMM,
				RemnantPieces:     input.RemnantPieces,
				RemnantLengthMM:   input.RemnantLengthMM,
				CreatedRemnantIDs: remnantIDs(remnants),
				LengthBeforeMM:    plan.LengthBeforeMM,
				LengthAfterMM:     plan.LengthAfterMM,
				ProjectRef:        input.ProjectRef,
				ActorID:           tc.ActorID(),
			}
			if err := repo.InsertRemnantUsageTx(tx, usage); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert remnant usage")
			}

			previous := remnantAuditState(remnant)
			updates := map[string]any{"length_mm": plan.LengthAfterMM}
			if plan.Exhausted {
				updates["status"] = enums.StockStatusExhausted
			}
			if err := repo.UpdateRemnantVersioned(tc, remnantID, input.Version, updates); err != nil {
				return err
			}

			after := *remnant
			after.Version = input.Version + 1
			after.LengthMM = plan.LengthAfterMM
			if plan.Exhausted {
				after.Status = enums.StockStatusExhausted
			}

			if err := s.auditor.Record(tx, tc, audit.RecordInput{
				EntityType:    enums.AuditEntityProfileRemnant,
				EntityID:      remnantID,
				Action:        enums.AuditActionAdjust,
				PreviousState: previous,
				NewState:      remnantAuditState(&after),
			}); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, tc, enums.EventRemnantUsageRecorded, enums.AggregateProfileRemnant, remnantID, usageEventData(usage.ID, plan, input)); err != nil {
				return err
			}
			for i := range remnants {
				if err := s.emit(ctx, tx, tc, enums.EventRemnantCreated, enums.AggregateProfileRemnant, remnants[i].ID, map[string]any{
					"profile_id": remnant.ProfileID.String(),
					"length_mm":  remnants[i].LengthMM,
				}); err != nil {
					return err
				}
			}

			result = newUsageResult(usage.ID, remnant.ProfileID, plan, input, remnants, after.Version)
			return nil
		})
	})
	return result, err
}

func (s *service) GetProfile(ctx context.Context, tc tenantctx.TenantContext, profileID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.FindProfileWithRemnants(ctx, tc, profileID)
	if err != nil {
		return nil, err
	}
	return NewProfileDTO(profile), nil
}

// instrument times the operation and classifies its outcome for metrics.
func (s *service) instrument(ctx context.Context, operation, entity string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.ObserveOperation(operation, time.Since(start))
	switch {
	case err == nil:
		s.metrics.IncAllocation(operation, "success")
	case pkgerrors.IsCode(err, pkgerrors.CodeConcurrency):
		s.metrics.IncConflict(entity)
		s.metrics.IncAllocation(operation, "conflict")
	default:
		s.metrics.IncAllocation(operation, "rejected")
	}
	return err
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, tc tenantctx.TenantContext, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, data any) error {
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:      tc.TenantID(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Actor: &outbox.ActorRef{
			ActorID:  tc.ActorID(),
			TenantID: tc.TenantID(),
			Role:     tc.Role().String(),
		},
		Data:    data,
		Version: 1,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbox: emit event")
	}
	return nil
}

// reservedByOther reports whether a reservation held by someone else blocks the
// calling actor. The reserving actor may consume its own reservation.
func reservedByOther(reserved bool, reservedBy *uuid.UUID, actor uuid.UUID) bool {
	if !reserved {
		return false
	}
	return reservedBy == nil || *reservedBy != actor
}

func buildRemnants(profile *models.Profile, pieces int, lengthMM int64) []models.ProfileRemnant {
	if pieces <= 0 {
		return nil
	}
	remnants := make([]models.ProfileRemnant, pieces)
	for i := range remnants {
		remnants[i] = models.ProfileRemnant{
			ProfileID: profile.ID,
			LengthMM:  lengthMM,
			WeightKG:  remnantWeightKG(profile, lengthMM),
			Status:    enums.StockStatusAvailable,
		}
	}
	return remnants
}

// remnantWeightKG prorates the stocked member's weight by length.
func remnantWeightKG(profile *models.Profile, lengthMM int64) decimal.Decimal {
	if profile.TotalLengthMM <= 0 {
		return decimal.Zero
	}
	return profile.WeightKG.
		Mul(decimal.NewFromInt(lengthMM)).
		Div(decimal.NewFromInt(profile.TotalLengthMM)).
		Round(3)
}

func remnantIDs(remnants []models.ProfileRemnant) dbtypes.UUIDArray {
	ids := make(dbtypes.UUIDArray, 0, len(remnants))
	for i := range remnants {
		ids = append(ids, remnants[i].ID)
	}
	return ids
}

func usageEventData(usageID uuid.UUID, plan AllocationPlan, input UsageInput) map[string]any {
	return map[string]any{
		"usage_id":         usageID.String(),
		"pieces_used":      input.PiecesUsed,
		"piece_length_mm":  input.PieceLengthMM,
		"used_length_mm":   plan.UsedLengthMM,
		"length_before_mm": plan.LengthBeforeMM,
		"length_after_mm":  plan.LengthAfterMM,
		"exhausted":        plan.Exhausted,
	}
}

func newUsageResult(usageID, profileID uuid.UUID, plan AllocationPlan, input UsageInput, remnants []models.ProfileRemnant, version int64) *UsageResult {
	result := &UsageResult{
		UsageID:           usageID,
		UsedLengthMM:      plan.UsedLengthMM,
		LengthBeforeMM:    plan.LengthBeforeMM,
		LengthAfterMM:     plan.LengthAfterMM,
		Exhausted:         plan.Exhausted,
		SourceVersion:     version,
		RecordedAt:        time.Now().UTC(),
		ProjectRef:        input.ProjectRef,
		OriginatingProfID: profileID,
	}
	for i := range remnants {
		result.CreatedRemnants = append(result.CreatedRemnants, *NewRemnantDTO(&remnants[i]))
	}
	return result
}

func lotAuditState(lot *models.InventoryLot) map[string]any {
	return map[string]any{
		"quantity": lot.Quantity.String(),
		"reserved": lot.Reserved,
		"version":  lot.Version,
	}
}

func profileAuditState(profile *models.Profile) map[string]any {
	return map[string]any{
		"available_length_mm": profile.AvailableLengthMM,
		"status":              profile.Status,
		"reserved":            profile.Reserved,
		"version":             profile.Version,
	}
}

func remnantAuditState(remnant *models.ProfileRemnant) map[string]any {
	return map[string]any{
		"length_mm": remnant.LengthMM,
		"status":    remnant.Status,
		"reserved":  remnant.Reserved,
		"version":   remnant.Version,
	}
}
