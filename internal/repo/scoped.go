package repo

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/errors"
)

// TenantScope restricts a query to live rows owned by the calling tenant.
// Every read and mutation in the system goes through this predicate; rows of
// other tenants are indistinguishable from rows that do not exist.
func TenantScope(tc tenantctx.TenantContext) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ? AND is_deleted = ?", tc.TenantID(), false)
	}
}

// TenantScopeIncludingDeleted keeps the tenant predicate but admits
// soft-deleted rows. Used by administrative recovery reads only; the tenant
// filter is never bypassed.
func TenantScopeIncludingDeleted(tc tenantctx.TenantContext) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tc.TenantID())
	}
}

// UpdateVersioned commits a mutation through the optimistic concurrency gate.
// The row is matched on (id, tenant, expected version) in a single UPDATE and
// the version is advanced by one. A miss is classified by re-reading the row:
// a live row with a different version means a concurrent writer won, anything
// else is reported as not found.
func UpdateVersioned(db *gorm.DB, model any, tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64, updates map[string]any) error {
	if expectedVersion < 1 {
		return errors.New(errors.CodeValidation, "version token is required")
	}

	assign := make(map[string]any, len(updates)+1)
	for column, value := range updates {
		assign[column] = value
	}
	assign["version"] = expectedVersion + 1

	res := db.Model(model).
		Where("id = ? AND tenant_id = ? AND version = ? AND is_deleted = ?", id, tc.TenantID(), expectedVersion, false).
		Updates(assign)
	if res.Error != nil {
		return errors.Wrap(errors.CodeDependency, res.Error, "versioned update failed")
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return classifyVersionedMiss(db, model, tc, id)
}

// SoftDeleteVersioned marks the row deleted through the same
// compare-and-swap gate as any other mutation.
func SoftDeleteVersioned(db *gorm.DB, model any, tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64) error {
	return UpdateVersioned(db, model, tc, id, expectedVersion, map[string]any{"is_deleted": true})
}

func classifyVersionedMiss(db *gorm.DB, model any, tc tenantctx.TenantContext, id uuid.UUID) error {
	var count int64
	err := db.Model(model).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tc.TenantID(), false).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "classifying versioned update miss")
	}
	if count == 0 {
		return errors.New(errors.CodeNotFound, "resource not found")
	}
	return errors.New(errors.CodeConcurrency, "version token is stale")
}
