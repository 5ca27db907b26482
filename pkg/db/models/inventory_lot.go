package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// InventoryLot is one storable unit of received material. Quantity never goes
// below zero; reservation is a flag, not a decrement.
type InventoryLot struct {
	TenantScoped

	ReceiptID  uuid.UUID       `gorm:"column:receipt_id;type:uuid;not null;index"`
	POLineID   uuid.UUID       `gorm:"column:po_line_id;type:uuid;not null"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	Unit       enums.StockUnit `gorm:"column:unit;type:stock_unit;not null"`
	LengthMM   *int64          `gorm:"column:length_mm"`
	Location   *string         `gorm:"column:location"`
	Reserved   bool            `gorm:"column:reserved;not null;default:false"`
	ReservedBy *uuid.UUID      `gorm:"column:reserved_by;type:uuid"`
	ReservedAt *time.Time      `gorm:"column:reserved_at"`
}

// TableName overrides GORM's pluralization.
func (InventoryLot) TableName() string {
	return "inventory_lots"
}
