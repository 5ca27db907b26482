package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/api/validators"
	receiptsvc "github.com/skarvik/fabops-backend/internal/receipts"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

// CreateReceipt books a delivery as goods receipts with their inventory lots.
func CreateReceipt(svc receiptsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		tc, err := tenantctx.From(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createReceiptRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), tc, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// DeleteReceipt reverses a booking. Receipts whose lots were reserved or
// consumed cannot be deleted.
func DeleteReceipt(svc receiptsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		tc, err := tenantctx.From(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receiptID, err := uuid.Parse(chi.URLParam(r, "receiptId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receipt id"))
			return
		}

		if err := svc.Delete(r.Context(), tc, receiptID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GetReceiptAdmin returns a receipt even after it was soft-deleted. Recovery
// read for operators untangling a mistaken delete; tenant scoping still holds.
func GetReceiptAdmin(svc receiptsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipt service unavailable"))
			return
		}

		tc, err := tenantctx.From(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receiptID, err := uuid.Parse(chi.URLParam(r, "receiptId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receipt id"))
			return
		}

		receipt, err := svc.GetIncludingDeleted(r.Context(), tc, receiptID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, receipt)
	}
}

type createReceiptRequest struct {
	Lines []createReceiptLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createReceiptLineRequest struct {
	POLineID        string          `json:"po_line_id" validate:"required,uuid"`
	Quantity        decimal.Decimal `json:"quantity" validate:"required"`
	Unit            string          `json:"unit" validate:"required"`
	LengthMM        *int64          `json:"length_mm,omitempty" validate:"omitempty,min=1"`
	Location        *string         `json:"location,omitempty"`
	DeviationReason *string         `json:"deviation_reason,omitempty"`
	LotPerPiece     bool            `json:"lot_per_piece"`
}

func (r createReceiptRequest) toInput() (receiptsvc.CreateInput, error) {
	lines := make([]receiptsvc.LineInput, 0, len(r.Lines))
	for _, line := range r.Lines {
		poLineID, err := uuid.Parse(strings.TrimSpace(line.POLineID))
		if err != nil {
			return receiptsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid po_line_id")
		}

		unit, err := enums.ParseStockUnit(strings.TrimSpace(line.Unit))
		if err != nil {
			return receiptsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}

		lines = append(lines, receiptsvc.LineInput{
			POLineID:        poLineID,
			Quantity:        line.Quantity,
			Unit:            unit,
			LengthMM:        line.LengthMM,
			Location:        sanitizeOptional(line.Location, 120),
			DeviationReason: sanitizeOptional(line.DeviationReason, 500),
			LotPerPiece:     line.LotPerPiece,
		})
	}
	return receiptsvc.CreateInput{Lines: lines}, nil
}

func sanitizeOptional(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
