package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// ProfileRemnant is an offcut left over from cutting a profile. Its length is
// strictly shorter than the originating profile's stocked length.
type ProfileRemnant struct {
	TenantScoped

	ProfileID  uuid.UUID         `gorm:"column:profile_id;type:uuid;not null;index"`
	LengthMM   int64             `gorm:"column:length_mm;not null"`
	WeightKG   decimal.Decimal   `gorm:"column:weight_kg;type:numeric(14,3);not null"`
	Status     enums.StockStatus `gorm:"column:status;type:stock_status;not null;default:'available'"`
	Reserved   bool              `gorm:"column:reserved;not null;default:false"`
	ReservedBy *uuid.UUID        `gorm:"column:reserved_by;type:uuid"`
	ReservedAt *time.Time        `gorm:"column:reserved_at"`
}

// TableName overrides GORM's pluralization.
func (ProfileRemnant) TableName() string {
	return "profile_remnants"
}
