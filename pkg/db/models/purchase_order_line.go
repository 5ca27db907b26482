package models

import (
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// PurchaseOrderLine is the ordered-material reference a goods receipt points at.
type PurchaseOrderLine struct {
	TenantScoped

	// Uniqueness of (tenant_id, order_number, line_number) is enforced in
	// migrations.
	OrderNumber     string          `gorm:"column:order_number;not null;index"`
	LineNumber      int             `gorm:"column:line_number;not null"`
	ItemDescription string          `gorm:"column:item_description;not null"`
	OrderedQty      decimal.Decimal `gorm:"column:ordered_qty;type:numeric(14,3);not null"`
	Unit            enums.StockUnit `gorm:"column:unit;type:stock_unit;not null"`
}

// TableName overrides GORM's pluralization.
func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}
