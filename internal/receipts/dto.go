package receipts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/internal/stock"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
)

// ReceiptDTO is the API shape of a goods receipt and the lots it created.
type ReceiptDTO struct {
	ID              uuid.UUID       `json:"id"`
	POLineID        uuid.UUID       `json:"poLineId"`
	ReceivedQty     decimal.Decimal `json:"receivedQty"`
	Unit            enums.StockUnit `json:"unit"`
	DeviationReason *string         `json:"deviationReason,omitempty"`
	ReceivedBy      uuid.UUID       `json:"receivedBy"`
	ReceivedAt      time.Time       `json:"receivedAt"`
	Version         int64           `json:"version"`
	IsDeleted       bool            `json:"isDeleted"`
	Lots            []stock.LotDTO  `json:"lots"`
}

// CreateResult is the outcome of one atomic multi-line receipt creation.
type CreateResult struct {
	Receipts []ReceiptDTO `json:"receipts"`
}

// NewReceiptDTO maps a receipt row to its API shape.
func NewReceiptDTO(receipt *models.GoodsReceipt) *ReceiptDTO {
	dto := &ReceiptDTO{
		ID:              receipt.ID,
		POLineID:        receipt.POLineID,
		ReceivedQty:     receipt.ReceivedQty,
		Unit:            receipt.Unit,
		DeviationReason: receipt.DeviationReason,
		ReceivedBy:      receipt.ReceivedBy,
		ReceivedAt:      receipt.ReceivedAt,
		Version:         receipt.Version,
		IsDeleted:       receipt.IsDeleted,
	}
	for i := range receipt.Lots {
		dto.Lots = append(dto.Lots, *stock.NewLotDTO(&receipt.Lots[i]))
	}
	return dto
}
