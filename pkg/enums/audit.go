package enums

import "fmt"

// AuditAction maps to the audit_action enum in Postgres.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionAdjust AuditAction = "adjust"
)

var validAuditActions = []AuditAction{
	AuditActionCreate,
	AuditActionUpdate,
	AuditActionDelete,
	AuditActionAdjust,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditEntityType names the entity kinds an audit entry can reference.
type AuditEntityType string

const (
	AuditEntityTenant            AuditEntityType = "tenant"
	AuditEntityPurchaseOrderLine AuditEntityType = "purchase_order_line"
	AuditEntityGoodsReceipt      AuditEntityType = "goods_receipt"
	AuditEntityInventoryLot      AuditEntityType = "inventory_lot"
	AuditEntityProfile           AuditEntityType = "profile"
	AuditEntityProfileRemnant    AuditEntityType = "profile_remnant"
)

var validAuditEntityTypes = []AuditEntityType{
	AuditEntityTenant,
	AuditEntityPurchaseOrderLine,
	AuditEntityGoodsReceipt,
	AuditEntityInventoryLot,
	AuditEntityProfile,
	AuditEntityProfileRemnant,
}

// String implements fmt.Stringer.
func (t AuditEntityType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known AuditEntityType.
func (t AuditEntityType) IsValid() bool {
	for _, candidate := range validAuditEntityTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAuditEntityType converts raw input into an AuditEntityType.
func ParseAuditEntityType(value string) (AuditEntityType, error) {
	for _, candidate := range validAuditEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit entity type %q", value)
}
