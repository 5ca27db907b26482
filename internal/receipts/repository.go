package receipts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/repo"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
)

// Repository persists goods receipts and the lots they create.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a receipts repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindReceipt loads one live receipt with its live lots.
func (r *Repository) FindReceipt(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.GoodsReceipt, error) {
	var receipt models.GoodsReceipt
	err := r.db.WithContext(ctx).Scopes(repo.TenantScope(tc)).First(&receipt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}
	err = r.db.WithContext(ctx).
		Scopes(repo.TenantScope(tc)).
		Where("receipt_id = ?", id).
		Find(&receipt.Lots).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt lots")
	}
	return &receipt, nil
}

// FindReceiptIncludingDeleted loads a receipt and its lots regardless of the
// soft-delete flag. Administrative recovery reads only; the tenant filter
// still applies.
func (r *Repository) FindReceiptIncludingDeleted(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.GoodsReceipt, error) {
	var receipt models.GoodsReceipt
	err := r.db.WithContext(ctx).Scopes(repo.TenantScopeIncludingDeleted(tc)).First(&receipt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}
	err = r.db.WithContext(ctx).
		Scopes(repo.TenantScopeIncludingDeleted(tc)).
		Where("receipt_id = ?", id).
		Find(&receipt.Lots).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt lots")
	}
	return &receipt, nil
}

// FindPOLine loads the purchase order line a receipt references.
func (r *Repository) FindPOLine(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.PurchaseOrderLine, error) {
	var line models.PurchaseOrderLine
	err := r.db.WithContext(ctx).Scopes(repo.TenantScope(tc)).First(&line, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase order line")
	}
	return &line, nil
}

// CreateReceiptTx inserts a receipt header inside the caller's transaction.
func (r *Repository) CreateReceiptTx(tx *gorm.DB, tc tenantctx.TenantContext, receipt *models.GoodsReceipt) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	receipt.TenantID = tc.TenantID()
	receipt.Version = 1
	return tx.Create(receipt).Error
}

// CreateLotsTx inserts the lots a receipt produced.
func (r *Repository) CreateLotsTx(tx *gorm.DB, tc tenantctx.TenantContext, lots []models.InventoryLot) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(lots) == 0 {
		return nil
	}
	for i := range lots {
		if lots[i].ID == uuid.Nil {
			lots[i].ID = uuid.New()
		}
		lots[i].TenantID = tc.TenantID()
		lots[i].Version = 1
	}
	return tx.Create(&lots).Error
}

// SoftDeleteReceiptTx marks the receipt deleted through the concurrency gate.
func (r *Repository) SoftDeleteReceiptTx(tx *gorm.DB, tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64) error {
	return repo.SoftDeleteVersioned(tx, &models.GoodsReceipt{}, tc, id, expectedVersion)
}

// SoftDeleteLotTx marks one lot deleted through the concurrency gate.
func (r *Repository) SoftDeleteLotTx(tx *gorm.DB, tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64) error {
	return repo.SoftDeleteVersioned(tx, &models.InventoryLot{}, tc, id, expectedVersion)
}
