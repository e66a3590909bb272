package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
)

type GuardUseCase interface {
	Reserve(ctx context.Context, spotID, claimID string) (*domain.ParkingSpot, error)
	Release(ctx context.Context, spotID, claimID string) (bool, error)
	ReleaseBooked(ctx context.Context, spotID string) (bool, error)
	Retire(ctx context.Context, spotID string) (bool, error)
}

// Guard owns every status write on parking spots. Reserve is the only
// atomic step of a checkout.
type Guard struct {
	spots   repository.SpotRepository
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewGuard(spots repository.SpotRepository, timeout time.Duration, log *slog.Logger) *Guard {
	return &Guard{spots: spots, timeout: timeout, log: log, now: time.Now}
}

// Reserve claims an available spot for claimID. It returns
// domain.ErrConflict when the spot is not available, including when a
// concurrent claim won, and domain.ErrNotFound for an unknown spot.
func (g *Guard) Reserve(ctx context.Context, spotID, claimID string) (*domain.ParkingSpot, error) {
	const op = "reservation.Guard.Reserve"
	log := g.log.With(slog.String("op", op), slog.String("spot_id", spotID))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	spot, err := g.spots.Claim(ctx, spotID, claimID, g.now())
	if err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			log.Info("spot not reserved", sl.Err(err))
		} else {
			log.Error("failed to claim spot", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("spot reserved", slog.String("claim_id", claimID))
	return spot, nil
}

// Release undoes a claim that never produced a booking. A spot held by
// another claim or referenced by an active booking is left alone.
func (g *Guard) Release(ctx context.Context, spotID, claimID string) (bool, error) {
	const op = "reservation.Guard.Release"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	released, err := g.spots.Release(ctx, spotID, claimID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !released {
		g.log.Warn("spot not released", slog.String("op", op), slog.String("spot_id", spotID), slog.String("claim_id", claimID))
	}
	return released, nil
}

func (g *Guard) ReleaseBooked(ctx context.Context, spotID string) (bool, error) {
	const op = "reservation.Guard.ReleaseBooked"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	released, err := g.spots.ReleaseBooked(ctx, spotID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return released, nil
}

func (g *Guard) Retire(ctx context.Context, spotID string) (bool, error) {
	const op = "reservation.Guard.Retire"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	retired, err := g.spots.Retire(ctx, spotID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return retired, nil
}

var _ GuardUseCase = (*Guard)(nil)
