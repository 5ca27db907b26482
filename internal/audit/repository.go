package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	"github.com/skarvik/fabops-backend/pkg/pagination"
)

// Repository persists and reads audit entries. The table is append-only;
// there is no update or delete method on purpose.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an audit repository.
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

// InsertTx appends one entry inside the caller's transaction. A failed insert
// must fail the surrounding mutation, so no error is swallowed here.
func (r *Repository) InsertTx(tx *gorm.DB, entry *models.AuditEntry) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	return tx.Create(entry).Error
}

// ListByEntity returns entries for one entity in recording order, cursor-paginated.
func (r *Repository) ListByEntity(ctx context.Context, tc tenantctx.TenantContext, entityType enums.AuditEntityType, entityID uuid.UUID, params pagination.Params) ([]models.AuditEntry, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditEntry{}).
		Where("tenant_id = ?", tc.TenantID()).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	return r.listPage(query, params)
}

// ListByDateRange returns entries recorded within [from, to) in recording order.
func (r *Repository) ListByDateRange(ctx context.Context, tc tenantctx.TenantContext, from, to time.Time, params pagination.Params) ([]models.AuditEntry, string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditEntry{}).
		Where("tenant_id = ?", tc.TenantID()).
		Where("recorded_at >= ? AND recorded_at < ?", from, to)
	return r.listPage(query, params)
}

func (r *Repository) listPage(query *gorm.DB, params pagination.Params) ([]models.AuditEntry, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"recorded_at > ? OR (recorded_at = ? AND id > ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.AuditEntry
	err = query.
		Order("recorded_at ASC, id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.RecordedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}
