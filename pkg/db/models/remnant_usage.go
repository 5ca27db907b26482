package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/skarvik/fabops-backend/pkg/db/types"
)

// RemnantUsage is an immutable consumption fact recorded when a remnant is cut.
// ProfileID keeps the originating profile so lineage stays reconstructable
// even though new offcuts attach to the profile, not to this remnant.
type RemnantUsage struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	RemnantID         uuid.UUID         `gorm:"column:remnant_id;type:uuid;not null;index"`
	ProfileID         uuid.UUID         `gorm:"column:profile_id;type:uuid;not null"`
	PiecesUsed        int               `gorm:"column:pieces_used;not null"`
	PieceLengthMM     int64             `gorm:"column:piece_length_mm;not null"`
	RemnantPieces     int               `gorm:"column:remnant_pieces;not null;default:0"`
	RemnantLengthMM   int64             `gorm:"column:remnant_length_mm;not null;default:0"`
	CreatedRemnantIDs dbtypes.UUIDArray `gorm:"column:created_remnant_ids;type:uuid[]"`
	LengthBeforeMM    int64             `gorm:"column:length_before_mm;not null"`
	LengthAfterMM     int64             `gorm:"column:length_after_mm;not null"`
	ProjectRef        *string           `gorm:"column:project_ref"`
	ActorID           uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides GORM's pluralization.
func (RemnantUsage) TableName() string {
	return "remnant_usages"
}
