package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// GoodsReceipt records one delivery against a purchase order line. The lots it
// created stay linked for the delete guard.
type GoodsReceipt struct {
	TenantScoped

	POLineID        uuid.UUID       `gorm:"column:po_line_id;type:uuid;not null;index"`
	ReceivedQty     decimal.Decimal `gorm:"column:received_qty;type:numeric(14,3);not null"`
	Unit            enums.StockUnit `gorm:"column:unit;type:stock_unit;not null"`
	DeviationReason *string         `gorm:"column:deviation_reason"`
	ReceivedBy      uuid.UUID       `gorm:"column:received_by;type:uuid;not null"`
	ReceivedAt      time.Time       `gorm:"column:received_at;not null"`
	Lots            []InventoryLot  `gorm:"foreignKey:ReceiptID"`
}

// TableName overrides GORM's pluralization.
func (GoodsReceipt) TableName() string {
	return "goods_receipts"
}
