package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/skarvik/fabops-backend/pkg/logger"
)

const defaultStaleThreshold = 72 * time.Hour

// StaleReservationCounts aggregates how many reservations exceeded the
// threshold per entity kind.
type StaleReservationCounts struct {
	Lots     int64
	Profiles int64
	Remnants int64
}

func (c StaleReservationCounts) Total() int64 {
	return c.Lots + c.Profiles + c.Remnants
}

type staleReservationRepo interface {
	CountStaleReservations(ctx context.Context, olderThan time.Time) (StaleReservationCounts, error)
}

type StaleReservationJobParams struct {
	Logger     *logger.Logger
	Repository staleReservationRepo
	Threshold  time.Duration
}

// NewStaleReservationJob builds a report job that flags reservations held
// longer than the threshold. It never releases anything on its own.
func NewStaleReservationJob(params StaleReservationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultStaleThreshold
	}
	return &staleReservationJob{
		logg:      params.Logger,
		repo:      params.Repository,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

type staleReservationJob struct {
	logg      *logger.Logger
	repo      staleReservationRepo
	threshold time.Duration
	now       func() time.Time
}

func (j *staleReservationJob) Name() string { return "stale-reservation-report" }

func (j *staleReservationJob) Run(ctx context.Context) error {
	olderThan := j.now().UTC().Add(-j.threshold)
	counts, err := j.repo.CountStaleReservations(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("stale reservation report: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"older_than":     olderThan,
		"threshold":      j.threshold.String(),
		"stale_lots":     counts.Lots,
		"stale_profiles": counts.Profiles,
		"stale_remnants": counts.Remnants,
	})
	if counts.Total() > 0 {
		j.logg.Warn(logCtx, "reservations held past threshold")
		return nil
	}
	j.logg.Info(logCtx, "no stale reservations found")
	return nil
}
