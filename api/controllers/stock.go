package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/api/validators"
	stocksvc "github.com/skarvik/fabops-backend/internal/stock"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

type reserveLotRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Version  int64           `json:"version" validate:"required,min=1"`
}

type consumeLotRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"required"`
	Version  int64           `json:"version" validate:"required,min=1"`
}

type versionedRequest struct {
	Version int64 `json:"version" validate:"required,min=1"`
}

type usageRequest struct {
	PiecesUsed      int     `json:"pieces_used" validate:"required,min=1"`
	PieceLengthMM   int64   `json:"piece_length_mm" validate:"required,min=1"`
	RemnantPieces   int     `json:"remnant_pieces" validate:"omitempty,min=0"`
	RemnantLengthMM int64   `json:"remnant_length_mm" validate:"omitempty,min=0"`
	ProjectRef      *string `json:"project_ref,omitempty"`
	Version         int64   `json:"version" validate:"required,min=1"`
}

func (r usageRequest) toInput() stocksvc.UsageInput {
	return stocksvc.UsageInput{
		PiecesUsed:      r.PiecesUsed,
		PieceLengthMM:   r.PieceLengthMM,
		RemnantPieces:   r.RemnantPieces,
		RemnantLengthMM: r.RemnantLengthMM,
		ProjectRef:      sanitizeOptional(r.ProjectRef, 120),
		Version:         r.Version,
	}
}

// ReserveLot claims quantity from an inventory lot.
func ReserveLot(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, lotID, ok := stockRequestContext(w, r, svc, logg, "lotId")
		if !ok {
			return
		}

		var payload reserveLotRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lot, err := svc.ReserveLot(r.Context(), tc, lotID, stocksvc.ReserveLotInput{
			Quantity: payload.Quantity,
			Version:  payload.Version,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lot)
	}
}

// ReleaseLot drops a lot reservation.
func ReleaseLot(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, lotID, ok := stockRequestContext(w, r, svc, logg, "lotId")
		if !ok {
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lot, err := svc.ReleaseLot(r.Context(), tc, lotID, stocksvc.ReleaseInput{Version: payload.Version})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lot)
	}
}

// ConsumeLot permanently removes quantity from a lot.
func ConsumeLot(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, lotID, ok := stockRequestContext(w, r, svc, logg, "lotId")
		if !ok {
			return
		}

		var payload consumeLotRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lot, err := svc.ConsumeLot(r.Context(), tc, lotID, stocksvc.ConsumeLotInput{
			Quantity: payload.Quantity,
			Version:  payload.Version,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, lot)
	}
}

// GetProfile returns one profile with its live remnants.
func GetProfile(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, profileID, ok := stockRequestContext(w, r, svc, logg, "profileId")
		if !ok {
			return
		}

		profile, err := svc.GetProfile(r.Context(), tc, profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ReserveProfile claims a whole profile for one actor.
func ReserveProfile(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, profileID, ok := stockRequestContext(w, r, svc, logg, "profileId")
		if !ok {
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.ReserveProfile(r.Context(), tc, profileID, stocksvc.ReserveInput{Version: payload.Version})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ReleaseProfile drops a profile reservation.
func ReleaseProfile(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, profileID, ok := stockRequestContext(w, r, svc, logg, "profileId")
		if !ok {
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.ReleaseProfile(r.Context(), tc, profileID, stocksvc.ReleaseInput{Version: payload.Version})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// RecordProfileUsage cuts pieces from a profile and books any offcuts as
// remnants in the same transaction.
func RecordProfileUsage(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, profileID, ok := stockRequestContext(w, r, svc, logg, "profileId")
		if !ok {
			return
		}

		var payload usageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordProfileUsage(r.Context(), tc, profileID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ReserveRemnant claims a whole remnant for one actor.
func ReserveRemnant(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, remnantID, ok := stockRequestContext(w, r, svc, logg, "remnantId")
		if !ok {
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remnant, err := svc.ReserveRemnant(r.Context(), tc, remnantID, stocksvc.ReserveInput{Version: payload.Version})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, remnant)
	}
}

// ReleaseRemnant drops a remnant reservation.
func ReleaseRemnant(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, remnantID, ok := stockRequestContext(w, r, svc, logg, "remnantId")
		if !ok {
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remnant, err := svc.ReleaseRemnant(r.Context(), tc, remnantID, stocksvc.ReleaseInput{Version: payload.Version})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, remnant)
	}
}

// RecordRemnantUsage cuts pieces from a remnant. Offcuts attach to the
// remnant's originating profile.
func RecordRemnantUsage(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, remnantID, ok := stockRequestContext(w, r, svc, logg, "remnantId")
		if !ok {
			return
		}

		var payload usageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordRemnantUsage(r.Context(), tc, remnantID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// stockRequestContext pulls the tenant context and the path id every stock
// handler needs. It writes the error response itself when either is missing.
func stockRequestContext(w http.ResponseWriter, r *http.Request, svc stocksvc.Service, logg *logger.Logger, param string) (tenantctx.TenantContext, uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
		return tenantctx.TenantContext{}, uuid.Nil, false
	}

	tc, err := tenantctx.From(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return tenantctx.TenantContext{}, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resource id"))
		return tenantctx.TenantContext{}, uuid.Nil, false
	}

	return tc, id, true
}
