package stock

import (
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
)

// AllocationRequest describes one cut against a profile or remnant. All
// lengths are millimetres.
type AllocationRequest struct {
	PiecesUsed      int
	PieceLengthMM   int64
	RemnantPieces   int
	RemnantLengthMM int64
}

// AllocationPlan is the computed outcome of an accepted allocation. The plan
// is pure arithmetic; persisting it is the ledger's job.
type AllocationPlan struct {
	UsedLengthMM   int64
	RemnantTotalMM int64
	LengthBeforeMM int64
	LengthAfterMM  int64
	Exhausted      bool
}

// PlanAllocation validates a cut against the source's available length and
// returns the resulting accounting. parentTotalMM is the originating
// profile's stocked length; every remnant piece must be strictly shorter than
// it, because a remnant is by definition an offcut.
//
// Mass conservation holds for every accepted plan:
//
//	UsedLengthMM + RemnantTotalMM + LengthAfterMM == LengthBeforeMM
func PlanAllocation(availableMM, parentTotalMM int64, req AllocationRequest) (AllocationPlan, error) {
	if req.PiecesUsed <= 0 {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInvalidAllocation, "pieces_used must be positive").
			WithDetails(map[string]any{"pieces_used": req.PiecesUsed})
	}
	if req.PieceLengthMM <= 0 {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInvalidAllocation, "piece_length_mm must be positive").
			WithDetails(map[string]any{"piece_length_mm": req.PieceLengthMM})
	}
	if req.RemnantPieces < 0 || req.RemnantLengthMM < 0 {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInvalidAllocation, "remnant values must be non-negative")
	}
	if (req.RemnantPieces > 0) != (req.RemnantLengthMM > 0) {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInvalidAllocation, "remnant_pieces and remnant_length_mm must be provided together")
	}
	if req.RemnantPieces > 0 && req.RemnantLengthMM >= parentTotalMM {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInvalidAllocation, "remnant must be shorter than the originating profile").
			WithDetails(map[string]any{
				"remnant_length_mm": req.RemnantLengthMM,
				"profile_total_mm":  parentTotalMM,
			})
	}

	used := int64(req.PiecesUsed) * req.PieceLengthMM
	if used > availableMM {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested length exceeds available stock").
			WithDetails(map[string]any{
				"requested_mm": used,
				"available_mm": availableMM,
			})
	}

	remnantTotal := int64(req.RemnantPieces) * req.RemnantLengthMM
	if used+remnantTotal > availableMM {
		return AllocationPlan{}, pkgerrors.New(pkgerrors.CodeInvalidAllocation, "used and remnant lengths together exceed available stock").
			WithDetails(map[string]any{
				"used_mm":      used,
				"remnant_mm":   remnantTotal,
				"available_mm": availableMM,
			})
	}

	after := availableMM - used - remnantTotal
	return AllocationPlan{
		UsedLengthMM:   used,
		RemnantTotalMM: remnantTotal,
		LengthBeforeMM: availableMM,
		LengthAfterMM:  after,
		Exhausted:      after == 0,
	}, nil
}
