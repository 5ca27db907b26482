package receipts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/audit"
	"github.com/skarvik/fabops-backend/internal/repo"
	"github.com/skarvik/fabops-backend/internal/stock"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/outbox"
)

type gormRunner struct {
	db *gorm.DB
}

func (r *gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newReceiptsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:receipts_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.PurchaseOrderLine{},
		&models.GoodsReceipt{},
		&models.InventoryLot{},
		&models.AuditEntry{},
		&models.OutboxEvent{},
	)
	if err != nil {
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

func newReceiptsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	auditSvc, err := audit.NewService(audit.NewRepository(db))
	if err != nil {
		t.Fatalf("audit.NewService: %v", err)
	}
	events := outbox.NewService(outbox.NewRepository(db), nil)
	svc, err := NewService(NewRepository(db), &gormRunner{db: db}, auditSvc, events, stock.NewRepository(db))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func mustCreatePOLine(t *testing.T, db *gorm.DB, tc tenantctx.TenantContext, unit enums.StockUnit) *models.PurchaseOrderLine {
	t.Helper()
	line := &models.PurchaseOrderLine{
		TenantScoped: models.TenantScoped{
			ID:       uuid.New(),
			TenantID: tc.TenantID(),
			Version:  1,
		},
		OrderNumber:     "PO-" + uuid.NewString()[:8],
		LineNumber:      1,
		ItemDescription: "HEA 200 S355J2 12m",
		OrderedQty:      decimal.RequireFromString("10"),
		Unit:            unit,
	}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("create po line: %v", err)
	}
	return line
}

func TestCreateReceiptBooksLots(t *testing.T) {
	db := newReceiptsTestDB(t)
	tc := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, tc, enums.StockUnitKG)

	result, err := svc.Create(context.Background(), tc, CreateInput{
		Lines: []LineInput{{
			POLineID: poLine.ID,
			Quantity: decimal.RequireFromString("250.5"),
			Unit:     enums.StockUnitKG,
		}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(result.Receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(result.Receipts))
	}
	receipt := result.Receipts[0]
	if len(receipt.Lots) != 1 {
		t.Fatalf("expected 1 lot, got %d", len(receipt.Lots))
	}
	if !receipt.Lots[0].Quantity.Equal(decimal.RequireFromString("250.5")) {
		t.Fatalf("unexpected lot quantity %s", receipt.Lots[0].Quantity)
	}
	if receipt.ReceivedBy != tc.ActorID() {
		t.Fatal("receipt must record the acting operator")
	}

	var eventCount int64
	if err := db.Model(&models.OutboxEvent{}).
		Where("tenant_id = ? AND event_type = ?", tc.TenantID(), enums.EventReceiptCreated).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 receipt_created event, got %d", eventCount)
	}
}

func TestCreateReceiptLotPerPiece(t *testing.T) {
	db := newReceiptsTestDB(t)
	tc := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, tc, enums.StockUnitPiece)

	length := int64(12000)
	result, err := svc.Create(context.Background(), tc, CreateInput{
		Lines: []LineInput{{
			POLineID:    poLine.ID,
			Quantity:    decimal.RequireFromString("3"),
			Unit:        enums.StockUnitPiece,
			LengthMM:    &length,
			LotPerPiece: true,
		}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(result.Receipts[0].Lots) != 3 {
		t.Fatalf("expected 3 single-piece lots, got %d", len(result.Receipts[0].Lots))
	}
	for _, lot := range result.Receipts[0].Lots {
		if !lot.Quantity.Equal(decimal.NewFromInt(1)) {
			t.Fatalf("expected quantity 1 per lot, got %s", lot.Quantity)
		}
		if lot.LengthMM == nil || *lot.LengthMM != 12000 {
			t.Fatal("expected lot length carried over")
		}
	}
}

func TestCreateReceiptMultiLineIsAtomic(t *testing.T) {
	db := newReceiptsTestDB(t)
	tc := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, tc, enums.StockUnitKG)

	_, err := svc.Create(context.Background(), tc, CreateInput{
		Lines: []LineInput{
			{POLineID: poLine.ID, Quantity: decimal.RequireFromString("100"), Unit: enums.StockUnitKG},
			{POLineID: uuid.New(), Quantity: decimal.RequireFromString("50"), Unit: enums.StockUnitKG},
		},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown po line, got %v", err)
	}

	var receiptCount, lotCount int64
	if err := db.Model(&models.GoodsReceipt{}).Count(&receiptCount).Error; err != nil {
		t.Fatalf("count receipts: %v", err)
	}
	if err := db.Model(&models.InventoryLot{}).Count(&lotCount).Error; err != nil {
		t.Fatalf("count lots: %v", err)
	}
	if receiptCount != 0 || lotCount != 0 {
		t.Fatalf("one invalid line must abort the whole booking, got %d receipts %d lots", receiptCount, lotCount)
	}
}

func TestCreateReceiptRejectsInvalidLines(t *testing.T) {
	db := newReceiptsTestDB(t)
	tc := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, tc, enums.StockUnitKG)

	cases := []LineInput{
		{POLineID: poLine.ID, Quantity: decimal.Zero, Unit: enums.StockUnitKG},
		{POLineID: poLine.ID, Quantity: decimal.RequireFromString("-1"), Unit: enums.StockUnitKG},
		{POLineID: uuid.Nil, Quantity: decimal.RequireFromString("1"), Unit: enums.StockUnitKG},
		{POLineID: poLine.ID, Quantity: decimal.RequireFromString("1"), Unit: "barrels"},
		{POLineID: poLine.ID, Quantity: decimal.RequireFromString("2.5"), Unit: enums.StockUnitPiece, LotPerPiece: true},
	}
	for i, line := range cases {
		_, err := svc.Create(context.Background(), tc, CreateInput{Lines: []LineInput{line}})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	_, err := svc.Create(context.Background(), tc, CreateInput{
		Lines: []LineInput{{POLineID: poLine.ID, Quantity: decimal.RequireFromString("1"), Unit: enums.StockUnitPiece}},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error on unit mismatch, got %v", err)
	}
}

func TestDeleteReceiptGuard(t *testing.T) {
	db := newReceiptsTestDB(t)
	tc := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, tc, enums.StockUnitKG)

	result, err := svc.Create(context.Background(), tc, CreateInput{
		Lines: []LineInput{{POLineID: poLine.ID, Quantity: decimal.RequireFromString("100"), Unit: enums.StockUnitKG}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	receipt := result.Receipts[0]

	// Reserve the lot, then the receipt must refuse to go away.
	if err := db.Model(&models.InventoryLot{}).
		Where("id = ?", receipt.Lots[0].ID).
		Update("reserved", true).Error; err != nil {
		t.Fatalf("reserve lot: %v", err)
	}
	err = svc.Delete(context.Background(), tc, receipt.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := db.Model(&models.InventoryLot{}).
		Where("id = ?", receipt.Lots[0].ID).
		Update("reserved", false).Error; err != nil {
		t.Fatalf("release lot: %v", err)
	}
	if err := svc.Delete(context.Background(), tc, receipt.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Default scope hides the deleted rows; the recovery scope still sees them.
	var visible models.GoodsReceipt
	err = db.Scopes(repo.TenantScope(tc)).First(&visible, "id = ?", receipt.ID).Error
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("expected deleted receipt hidden, got %v", err)
	}
	var recovered models.GoodsReceipt
	if err := db.Scopes(repo.TenantScopeIncludingDeleted(tc)).First(&recovered, "id = ?", receipt.ID).Error; err != nil {
		t.Fatalf("recovery scope must still see the row: %v", err)
	}
	if !recovered.IsDeleted {
		t.Fatal("expected soft-deleted receipt")
	}
}

func TestGetIncludingDeletedRecoversDeletedReceipt(t *testing.T) {
	db := newReceiptsTestDB(t)
	tc := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, tc, enums.StockUnitKG)

	result, err := svc.Create(context.Background(), tc, CreateInput{
		Lines: []LineInput{{POLineID: poLine.ID, Quantity: decimal.RequireFromString("75"), Unit: enums.StockUnitKG}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	receipt := result.Receipts[0]
	if err := svc.Delete(context.Background(), tc, receipt.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	recovered, err := svc.GetIncludingDeleted(context.Background(), tc, receipt.ID)
	if err != nil {
		t.Fatalf("GetIncludingDeleted: %v", err)
	}
	if !recovered.IsDeleted {
		t.Fatal("expected recovered receipt flagged deleted")
	}
	if recovered.ID != receipt.ID || recovered.POLineID != poLine.ID {
		t.Fatal("recovered receipt must keep its identity")
	}
	if len(recovered.Lots) != 1 {
		t.Fatalf("expected 1 recovered lot, got %d", len(recovered.Lots))
	}

	// The recovery read bypasses only the soft-delete filter, never the tenant.
	intruder := mustTenantContext(t)
	if _, err := svc.GetIncludingDeleted(context.Background(), intruder, receipt.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign tenant, got %v", err)
	}
}

func TestDeleteReceiptCrossTenantNotFound(t *testing.T) {
	db := newReceiptsTestDB(t)
	owner := mustTenantContext(t)
	intruder := mustTenantContext(t)
	svc := newReceiptsService(t, db)
	poLine := mustCreatePOLine(t, db, owner, enums.StockUnitKG)

	result, err := svc.Create(context.Background(), owner, CreateInput{
		Lines: []LineInput{{POLineID: poLine.ID, Quantity: decimal.RequireFromString("10"), Unit: enums.StockUnitKG}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Delete(context.Background(), intruder, result.Receipts[0].ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
