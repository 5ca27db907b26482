package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// AuditEntry is an append-only record of one stock mutation. No code path
// updates or deletes rows in this table.
type AuditEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null;index:idx_audit_entries_tenant_recorded,priority:1"`
	EntityType    enums.AuditEntityType `gorm:"column:entity_type;type:audit_entity_type;not null"`
	EntityID      uuid.UUID             `gorm:"column:entity_id;type:uuid;not null;index"`
	Action        enums.AuditAction     `gorm:"column:action;type:audit_action;not null"`
	PreviousState json.RawMessage       `gorm:"column:previous_state;type:jsonb"`
	NewState      json.RawMessage       `gorm:"column:new_state;type:jsonb"`
	Reason        *string               `gorm:"column:reason"`
	ActorID       uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	RecordedAt    time.Time             `gorm:"column:recorded_at;autoCreateTime;index:idx_audit_entries_tenant_recorded,priority:2"`
}

// TableName overrides GORM's pluralization.
func (AuditEntry) TableName() string {
	return "audit_entries"
}
