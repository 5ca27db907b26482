package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
)

// LotDTO is the API shape of an inventory lot.
type LotDTO struct {
	ID         uuid.UUID       `json:"id"`
	ReceiptID  uuid.UUID       `json:"receiptId"`
	POLineID   uuid.UUID       `json:"poLineId"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       enums.StockUnit `json:"unit"`
	LengthMM   *int64          `json:"lengthMm,omitempty"`
	Location   *string         `json:"location,omitempty"`
	Reserved   bool            `json:"reserved"`
	ReservedBy *uuid.UUID      `json:"reservedBy,omitempty"`
	ReservedAt *time.Time      `json:"reservedAt,omitempty"`
	Version    int64           `json:"version"`
}

// ProfileDTO is the API shape of a stocked profile, remnants included when
// they were loaded.
type ProfileDTO struct {
	ID                uuid.UUID             `json:"id"`
	LotNumber         string                `json:"lotNumber"`
	Designation       string                `json:"designation"`
	Grade             enums.SteelGrade      `json:"grade"`
	Category          enums.ProfileCategory `json:"category"`
	TotalLengthMM     int64                 `json:"totalLengthMm"`
	AvailableLengthMM int64                 `json:"availableLengthMm"`
	WeightKG          decimal.Decimal       `json:"weightKg"`
	Status            enums.StockStatus     `json:"status"`
	Reserved          bool                  `json:"reserved"`
	ReservedBy        *uuid.UUID            `json:"reservedBy,omitempty"`
	ReservedAt        *time.Time            `json:"reservedAt,omitempty"`
	Version           int64                 `json:"version"`
	Remnants          []RemnantDTO          `json:"remnants,omitempty"`
}

// RemnantDTO is the API shape of a profile offcut.
type RemnantDTO struct {
	ID         uuid.UUID         `json:"id"`
	ProfileID  uuid.UUID         `json:"profileId"`
	LengthMM   int64             `json:"lengthMm"`
	WeightKG   decimal.Decimal   `json:"weightKg"`
	Status     enums.StockStatus `json:"status"`
	Reserved   bool              `json:"reserved"`
	ReservedBy *uuid.UUID        `json:"reservedBy,omitempty"`
	ReservedAt *time.Time        `json:"reservedAt,omitempty"`
	Version    int64             `json:"version"`
}

// UsageResult reports one recorded cut: the immutable usage fact, the offcuts
// it created, and where the source's availability landed.
type UsageResult struct {
	UsageID           uuid.UUID    `json:"usageId"`
	UsedLengthMM      int64        `json:"usedLengthMm"`
	LengthBeforeMM    int64        `json:"lengthBeforeMm"`
	LengthAfterMM     int64        `json:"lengthAfterMm"`
	Exhausted         bool         `json:"exhausted"`
	CreatedRemnants   []RemnantDTO `json:"createdRemnants,omitempty"`
	SourceVersion     int64        `json:"sourceVersion"`
	RecordedAt        time.Time    `json:"recordedAt"`
	ProjectRef        *string      `json:"projectRef,omitempty"`
	OriginatingProfID uuid.UUID    `json:"profileId"`
}

// NewLotDTO maps a lot row to its API shape.
func NewLotDTO(lot *models.InventoryLot) *LotDTO {
	return &LotDTO{
		ID:         lot.ID,
		ReceiptID:  lot.ReceiptID,
		POLineID:   lot.POLineID,
		Quantity:   lot.Quantity,
		Unit:       lot.Unit,
		LengthMM:   lot.LengthMM,
		Location:   lot.Location,
		Reserved:   lot.Reserved,
		ReservedBy: lot.ReservedBy,
		ReservedAt: lot.ReservedAt,
		Version:    lot.Version,
	}
}

// NewProfileDTO maps a profile row to its API shape.
func NewProfileDTO(profile *models.Profile) *ProfileDTO {
	dto := &ProfileDTO{
		ID:                profile.ID,
		LotNumber:         profile.LotNumber,
		Designation:       profile.Designation,
		Grade:             profile.Grade,
		Category:          profile.Category,
		TotalLengthMM:     profile.TotalLengthMM,
		AvailableLengthMM: profile.AvailableLengthMM,
		WeightKG:          profile.WeightKG,
		Status:            profile.Status,
		Reserved:          profile.Reserved,
		ReservedBy:        profile.ReservedBy,
		ReservedAt:        profile.ReservedAt,
		Version:           profile.Version,
	}
	for i := range profile.Remnants {
		dto.Remnants = append(dto.Remnants, *NewRemnantDTO(&profile.Remnants[i]))
	}
	return dto
}

// NewRemnantDTO maps a remnant row to its API shape.
func NewRemnantDTO(remnant *models.ProfileRemnant) *RemnantDTO {
	return &RemnantDTO{
		ID:         remnant.ID,
		ProfileID:  remnant.ProfileID,
		LengthMM:   remnant.LengthMM,
		WeightKG:   remnant.WeightKG,
		Status:     remnant.Status,
		Reserved:   remnant.Reserved,
		ReservedBy: remnant.ReservedBy,
		ReservedAt: remnant.ReservedAt,
		Version:    remnant.Version,
	}
}
