package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/pkg/enums"
)

// ReceiptCreatedEvent signals that a goods receipt and its lots were booked.
type ReceiptCreatedEvent struct {
	ReceiptID   uuid.UUID       `json:"receipt_id"`
	POLineID    uuid.UUID       `json:"po_line_id"`
	ReceivedQty decimal.Decimal `json:"received_qty"`
	Unit        enums.StockUnit `json:"unit"`
	LotIDs      []uuid.UUID     `json:"lot_ids"`
	ReceivedAt  time.Time       `json:"received_at"`
}

// ReceiptDeletedEvent signals that an untouched receipt was withdrawn.
type ReceiptDeletedEvent struct {
	ReceiptID uuid.UUID   `json:"receipt_id"`
	LotIDs    []uuid.UUID `json:"lot_ids"`
	Reason    string      `json:"reason,omitempty"`
}

// StockReservedEvent is emitted when a lot, profile, or remnant is claimed.
type StockReservedEvent struct {
	EntityType enums.OutboxAggregateType `json:"entity_type"`
	EntityID   uuid.UUID                 `json:"entity_id"`
	ReservedBy uuid.UUID                 `json:"reserved_by"`
	ReservedAt time.Time                 `json:"reserved_at"`
}

// StockReleasedEvent is emitted when a reservation is lifted.
type StockReleasedEvent struct {
	EntityType enums.OutboxAggregateType `json:"entity_type"`
	EntityID   uuid.UUID                 `json:"entity_id"`
	ReleasedBy uuid.UUID                 `json:"released_by"`
}

// StockConsumedEvent reports a lot quantity decrement.
type StockConsumedEvent struct {
	LotID          uuid.UUID       `json:"lot_id"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	Consumed       decimal.Decimal `json:"consumed"`
}

// ProfileUsageRecordedEvent mirrors one immutable profile usage fact.
type ProfileUsageRecordedEvent struct {
	UsageID           uuid.UUID   `json:"usage_id"`
	ProfileID         uuid.UUID   `json:"profile_id"`
	PiecesUsed        int         `json:"pieces_used"`
	PieceLengthMM     int64       `json:"piece_length_mm"`
	RemnantPieces     int         `json:"remnant_pieces"`
	RemnantLengthMM   int64       `json:"remnant_length_mm"`
	CreatedRemnantIDs []uuid.UUID `json:"created_remnant_ids,omitempty"`
	LengthBeforeMM    int64       `json:"length_before_mm"`
	LengthAfterMM     int64       `json:"length_after_mm"`
	ProjectRef        string      `json:"project_ref,omitempty"`
}

// RemnantUsageRecordedEvent mirrors one immutable remnant usage fact.
type RemnantUsageRecordedEvent struct {
	UsageID           uuid.UUID   `json:"usage_id"`
	RemnantID         uuid.UUID   `json:"remnant_id"`
	ProfileID         uuid.UUID   `json:"profile_id"`
	PiecesUsed        int         `json:"pieces_used"`
	PieceLengthMM     int64       `json:"piece_length_mm"`
	RemnantPieces     int         `json:"remnant_pieces"`
	RemnantLengthMM   int64       `json:"remnant_length_mm"`
	CreatedRemnantIDs []uuid.UUID `json:"created_remnant_ids,omitempty"`
	LengthBeforeMM    int64       `json:"length_before_mm"`
	LengthAfterMM     int64       `json:"length_after_mm"`
	ProjectRef        string      `json:"project_ref,omitempty"`
}

// RemnantCreatedEvent announces a new offcut attached to its profile.
type RemnantCreatedEvent struct {
	RemnantID uuid.UUID       `json:"remnant_id"`
	ProfileID uuid.UUID       `json:"profile_id"`
	LengthMM  int64           `json:"length_mm"`
	WeightKG  decimal.Decimal `json:"weight_kg"`
}
