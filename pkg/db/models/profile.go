package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// Profile is a full-length structural steel member tracked by lot number.
// Available length only moves through recorded usage; remnants created by a
// cut are always owned by this profile, never by another remnant.
type Profile struct {
	TenantScoped

	// Uniqueness of (tenant_id, lot_number) is enforced in migrations.
	LotNumber         string                `gorm:"column:lot_number;not null;index"`
	Designation       string                `gorm:"column:designation;not null"`
	Grade             enums.SteelGrade      `gorm:"column:grade;type:steel_grade;not null"`
	Category          enums.ProfileCategory `gorm:"column:category;type:profile_category;not null"`
	TotalLengthMM     int64                 `gorm:"column:total_length_mm;not null"`
	AvailableLengthMM int64                 `gorm:"column:available_length_mm;not null"`
	WeightKG          decimal.Decimal       `gorm:"column:weight_kg;type:numeric(14,3);not null"`
	Status            enums.StockStatus     `gorm:"column:status;type:stock_status;not null;default:'available'"`
	Reserved          bool                  `gorm:"column:reserved;not null;default:false"`
	ReservedBy        *uuid.UUID            `gorm:"column:reserved_by;type:uuid"`
	ReservedAt        *time.Time            `gorm:"column:reserved_at"`
	ReceiptID         *uuid.UUID            `gorm:"column:receipt_id;type:uuid"`
	Remnants          []ProfileRemnant      `gorm:"foreignKey:ProfileID"`
}

// TableName overrides GORM's pluralization.
func (Profile) TableName() string {
	return "profiles"
}
