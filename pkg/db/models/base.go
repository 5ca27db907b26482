package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantScoped is embedded by every row that belongs to a single tenant.
// IDs are assigned by the application before insert. Version starts at 1 and
// is bumped by exactly one on every successful write; writers must present the
// version they read or the write is rejected.
type TenantScoped struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	Version   int64     `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
