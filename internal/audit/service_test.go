package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/pagination"
)

func newAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:audit_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.AuditEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func mustTenantContext(t *testing.T) tenantctx.TenantContext {
	t.Helper()
	tc, err := tenantctx.New(uuid.New(), uuid.New(), enums.ActorRoleOperator)
	if err != nil {
		t.Fatalf("failed to build tenant context: %v", err)
	}
	return tc
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRecordWritesEntryWithActor(t *testing.T) {
	db := newAuditTestDB(t)
	tc := mustTenantContext(t)
	svc := newTestService(t, db)

	entityID := uuid.New()
	err := svc.Record(db, tc, RecordInput{
		EntityType:    enums.AuditEntityProfile,
		EntityID:      entityID,
		Action:        enums.AuditActionUpdate,
		PreviousState: map[string]any{"available_length_mm": 12000},
		NewState:      map[string]any{"available_length_mm": 4500},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var entry models.AuditEntry
	if err := db.First(&entry, "entity_id = ?", entityID).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.TenantID != tc.TenantID() {
		t.Fatalf("expected tenant %s, got %s", tc.TenantID(), entry.TenantID)
	}
	if entry.ActorID != tc.ActorID() {
		t.Fatalf("expected actor %s, got %s", tc.ActorID(), entry.ActorID)
	}
	if entry.Action != enums.AuditActionUpdate {
		t.Fatalf("unexpected action %s", entry.Action)
	}
	if len(entry.PreviousState) == 0 || len(entry.NewState) == 0 {
		t.Fatalf("expected both states captured")
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	db := newAuditTestDB(t)
	tc := mustTenantContext(t)
	svc := newTestService(t, db)

	err := svc.Record(db, tc, RecordInput{
		EntityType: "spaceship",
		EntityID:   uuid.New(),
		Action:     enums.AuditActionCreate,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}

	err = svc.Record(db, tc, RecordInput{
		EntityType: enums.AuditEntityProfile,
		EntityID:   uuid.Nil,
		Action:     enums.AuditActionCreate,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		t.Fatalf("expected invariant error for missing entity id, got %v", err)
	}
}

func TestListByEntityIsTenantScoped(t *testing.T) {
	db := newAuditTestDB(t)
	tc := mustTenantContext(t)
	other := mustTenantContext(t)
	svc := newTestService(t, db)

	entityID := uuid.New()
	for _, owner := range []tenantctx.TenantContext{tc, other} {
		if err := svc.Record(db, owner, RecordInput{
			EntityType: enums.AuditEntityInventoryLot,
			EntityID:   entityID,
			Action:     enums.AuditActionAdjust,
		}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	result, err := svc.ListByEntity(context.Background(), tc, enums.AuditEntityInventoryLot, entityID, pagination.Params{})
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected only own tenant's entry, got %d", len(result.Entries))
	}
	if result.Entries[0].ActorID != tc.ActorID() {
		t.Fatalf("wrong tenant's entry returned")
	}
}

func TestListByEntityPaginates(t *testing.T) {
	db := newAuditTestDB(t)
	tc := mustTenantContext(t)
	repo := NewRepository(db)
	svc := newTestService(t, db)

	entityID := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &models.AuditEntry{
			TenantID:   tc.TenantID(),
			EntityType: enums.AuditEntityProfile,
			EntityID:   entityID,
			Action:     enums.AuditActionUpdate,
			ActorID:    tc.ActorID(),
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.InsertTx(db, entry); err != nil {
			t.Fatalf("insert entry: %v", err)
		}
	}

	first, err := svc.ListByEntity(context.Background(), tc, enums.AuditEntityProfile, entityID, pagination.Params{Limit: 3})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(first.Entries))
	}
	if first.NextCursor == "" {
		t.Fatalf("expected next cursor")
	}
	if !first.Entries[0].RecordedAt.Before(first.Entries[2].RecordedAt) {
		t.Fatalf("expected ascending recording order")
	}

	second, err := svc.ListByEntity(context.Background(), tc, enums.AuditEntityProfile, entityID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Entries) != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", len(second.Entries))
	}
	if second.NextCursor != "" {
		t.Fatalf("expected no further pages")
	}
}

func TestListByDateRangeWindow(t *testing.T) {
	db := newAuditTestDB(t)
	tc := mustTenantContext(t)
	repo := NewRepository(db)
	svc := newTestService(t, db)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		entry := &models.AuditEntry{
			TenantID:   tc.TenantID(),
			EntityType: enums.AuditEntityGoodsReceipt,
			EntityID:   uuid.New(),
			Action:     enums.AuditActionCreate,
			ActorID:    tc.ActorID(),
			RecordedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		if err := repo.InsertTx(db, entry); err != nil {
			t.Fatalf("insert entry: %v", err)
		}
	}

	result, err := svc.ListByDateRange(context.Background(), tc, base.Add(24*time.Hour), base.Add(3*24*time.Hour), pagination.Params{})
	if err != nil {
		t.Fatalf("ListByDateRange: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected half-open window to match 2 entries, got %d", len(result.Entries))
	}

	if _, err := svc.ListByDateRange(context.Background(), tc, base.Add(time.Hour), base, pagination.Params{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inverted window, got %v", err)
	}
}
