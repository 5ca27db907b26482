package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/cron"
	"github.com/skarvik/fabops-backend/internal/repo"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
)

// Repository reads and mutates the stock tables. All access is tenant-scoped;
// mutations go through the versioned compare-and-swap helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stock repository.
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

// FindLot loads one live lot owned by the calling tenant.
func (r *Repository) FindLot(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.InventoryLot, error) {
	var lot models.InventoryLot
	err := r.db.WithContext(ctx).Scopes(repo.TenantScope(tc)).First(&lot, "id = ?", id).Error
	if err != nil {
		return nil, classifyFind(err, "lot")
	}
	return &lot, nil
}

// FindProfile loads one live profile owned by the calling tenant.
func (r *Repository) FindProfile(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Scopes(repo.TenantScope(tc)).First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, classifyFind(err, "profile")
	}
	return &profile, nil
}

// FindProfileWithRemnants loads a profile and its live remnants.
func (r *Repository) FindProfileWithRemnants(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.Profile, error) {
	profile, err := r.FindProfile(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).
		Scopes(repo.TenantScope(tc)).
		Where("profile_id = ?", id).
		Order("created_at ASC").
		Find(&profile.Remnants).Error
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// FindRemnant loads one live remnant owned by the calling tenant.
func (r *Repository) FindRemnant(ctx context.Context, tc tenantctx.TenantContext, id uuid.UUID) (*models.ProfileRemnant, error) {
	var remnant models.ProfileRemnant
	err := r.db.WithContext(ctx).Scopes(repo.TenantScope(tc)).First(&remnant, "id = ?", id).Error
	if err != nil {
		return nil, classifyFind(err, "remnant")
	}
	return &remnant, nil
}

// CreateProfile inserts a profile row stamped with the caller's tenant.
func (r *Repository) CreateProfile(ctx context.Context, tc tenantctx.TenantContext, profile *models.Profile) (*models.Profile, error) {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.TenantID = tc.TenantID()
	profile.Version = 1
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateRemnantsTx inserts remnant rows inside the caller's transaction.
func (r *Repository) CreateRemnantsTx(tx *gorm.DB, tc tenantctx.TenantContext, remnants []models.ProfileRemnant) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if len(remnants) == 0 {
		return nil
	}
	for i := range remnants {
		if remnants[i].ID == uuid.Nil {
			remnants[i].ID = uuid.New()
		}
		remnants[i].TenantID = tc.TenantID()
		remnants[i].Version = 1
	}
	return tx.Create(&remnants).Error
}

// InsertProfileUsageTx appends one immutable profile usage fact.
func (r *Repository) InsertProfileUsageTx(tx *gorm.DB, usage *models.ProfileUsage) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return tx.Create(usage).Error
}

// InsertRemnantUsageTx appends one immutable remnant usage fact.
func (r *Repository) InsertRemnantUsageTx(tx *gorm.DB, usage *models.RemnantUsage) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return tx.Create(usage).Error
}

// UpdateLotVersioned commits a lot mutation through the concurrency gate.
func (r *Repository) UpdateLotVersioned(tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64, updates map[string]any) error {
	return repo.UpdateVersioned(r.db, &models.InventoryLot{}, tc, id, expectedVersion, updates)
}

// UpdateProfileVersioned commits a profile mutation through the concurrency gate.
func (r *Repository) UpdateProfileVersioned(tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64, updates map[string]any) error {
	return repo.UpdateVersioned(r.db, &models.Profile{}, tc, id, expectedVersion, updates)
}

// UpdateRemnantVersioned commits a remnant mutation through the concurrency gate.
func (r *Repository) UpdateRemnantVersioned(tc tenantctx.TenantContext, id uuid.UUID, expectedVersion int64, updates map[string]any) error {
	return repo.UpdateVersioned(r.db, &models.ProfileRemnant{}, tc, id, expectedVersion, updates)
}

// CountReservedOrConsumedLots reports how many of the receipt's lots are
// reserved or no longer hold their received quantity. Used by the receipt
// delete guard.
func (r *Repository) CountReservedOrConsumedLots(ctx context.Context, tc tenantctx.TenantContext, receiptID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryLot{}).
		Scopes(repo.TenantScope(tc)).
		Where("receipt_id = ?", receiptID).
		Where("reserved = ? OR version > ?", true, 1).
		Count(&count).Error
	return count, err
}

// CountStaleReservations aggregates reservations held since before olderThan
// across all tenants. Feeds the cron report job only.
func (r *Repository) CountStaleReservations(ctx context.Context, olderThan time.Time) (cron.StaleReservationCounts, error) {
	var counts cron.StaleReservationCounts

	var errs []error
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryLot{}).
		Where("reserved = ? AND reserved_at < ? AND is_deleted = ?", true, olderThan, false).
		Count(&counts.Lots).Error; err != nil {
		errs = append(errs, fmt.Errorf("count stale lots: %w", err))
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("reserved = ? AND reserved_at < ? AND is_deleted = ?", true, olderThan, false).
		Count(&counts.Profiles).Error; err != nil {
		errs = append(errs, fmt.Errorf("count stale profiles: %w", err))
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ProfileRemnant{}).
		Where("reserved = ? AND reserved_at < ? AND is_deleted = ?", true, olderThan, false).
		Count(&counts.Remnants).Error; err != nil {
		errs = append(errs, fmt.Errorf("count stale remnants: %w", err))
	}
	return counts, multierr.Combine(errs...)
}

func classifyFind(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
