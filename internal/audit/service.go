package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/pagination"
)

// Service records stock mutations and exposes the audit trail.
type Service interface {
	Record(tx *gorm.DB, tc tenantctx.TenantContext, input RecordInput) error
	ListByEntity(ctx context.Context, tc tenantctx.TenantContext, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*EntryListResult, error)
	ListByDateRange(ctx context.Context, tc tenantctx.TenantContext, from, to time.Time, params pagination.Params) (*EntryListResult, error)
}

// RecordInput captures one mutation to be written alongside it.
type RecordInput struct {
	EntityType    enums.AuditEntityType
	EntityID      uuid.UUID
	Action        enums.AuditAction
	PreviousState any
	NewState      any
	Reason        *string
}

// EntryListResult is a page of audit entries plus the cursor for the next one.
type EntryListResult struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type service struct {
	repo *Repository
}

// NewService constructs the audit service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

// Record appends one entry inside the caller's transaction so the audit write
// commits or rolls back together with the mutation it describes.
func (s *service) Record(tx *gorm.DB, tc tenantctx.TenantContext, input RecordInput) error {
	if !input.EntityType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvariant, "audit entry requires a valid entity type")
	}
	if !input.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvariant, "audit entry requires a valid action")
	}
	if input.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInvariant, "audit entry requires an entity id")
	}

	previous, err := marshalState(input.PreviousState)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvariant, err, "marshal previous state")
	}
	next, err := marshalState(input.NewState)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvariant, err, "marshal new state")
	}

	entry := &models.AuditEntry{
		TenantID:      tc.TenantID(),
		EntityType:    input.EntityType,
		EntityID:      input.EntityID,
		Action:        input.Action,
		PreviousState: previous,
		NewState:      next,
		Reason:        input.Reason,
		ActorID:       tc.ActorID(),
	}
	if err := s.repo.InsertTx(tx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert audit entry")
	}
	return nil
}

func (s *service) ListByEntity(ctx context.Context, tc tenantctx.TenantContext, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) (*EntryListResult, error) {
	if !entityType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid entity type")
	}
	if entityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity id is required")
	}
	rows, next, err := s.repo.ListByEntity(ctx, tc, entityType, entityID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list audit entries")
	}
	return newEntryListResult(rows, next), nil
}

func (s *service) ListByDateRange(ctx context.Context, tc tenantctx.TenantContext, from, to time.Time, params pagination.Params) (*EntryListResult, error) {
	if from.IsZero() || to.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	rows, next, err := s.repo.ListByDateRange(ctx, tc, from, to, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list audit entries")
	}
	return newEntryListResult(rows, next), nil
}

func marshalState(state any) (json.RawMessage, error) {
	if state == nil {
		return nil, nil
	}
	if raw, ok := state.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return data, nil
}
