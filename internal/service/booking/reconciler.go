package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/kafka"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
)

// Reconciler frees spots left booked by checkouts that died between the
// claim and the booking write, and by cancels whose release failed.
type Reconciler struct {
	spots    repository.SpotRepository
	sagas    repository.SagaRepository
	guard    Guard
	producer Producer
	topic    string
	// notificationsTopic also receives compensations so renters hear
	// their claim was dropped.
	notificationsTopic string
	claimTimeout       time.Duration
	log                *slog.Logger
	now                func() time.Time
}

type ReconcilerOption func(*Reconciler)

func WithCompensationNotices(topic string) ReconcilerOption {
	return func(r *Reconciler) {
		r.notificationsTopic = topic
	}
}

func NewReconciler(
	spots repository.SpotRepository,
	sagas repository.SagaRepository,
	guard Guard,
	producer Producer,
	topic string,
	claimTimeout time.Duration,
	log *slog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		spots:        spots,
		sagas:        sagas,
		guard:        guard,
		producer:     producer,
		topic:        topic,
		claimTimeout: claimTimeout,
		log:          log,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep releases every orphaned claim older than the claim timeout and
// returns how many spots it freed.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	const op = "booking.Reconciler.Sweep"
	log := r.log.With(slog.String("op", op))

	orphans, err := r.spots.ListOrphanedClaims(ctx, r.now().Add(-r.claimTimeout))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	freed := 0
	for _, spot := range orphans {
		var released bool
		if spot.ClaimID == nil {
			released, err = r.guard.ReleaseBooked(ctx, spot.ID)
		} else {
			released, err = r.guard.Release(ctx, spot.ID, *spot.ClaimID)
		}
		if err != nil {
			log.Error("failed to release orphaned spot", slog.String("spot_id", spot.ID), sl.Err(err))
			continue
		}
		if !released {
			continue
		}
		freed++
		log.Warn("released orphaned claim", slog.String("spot_id", spot.ID))

		if spot.ClaimID != nil {
			r.compensate(ctx, log, spot, *spot.ClaimID)
		}
	}
	return freed, nil
}

func (r *Reconciler) compensate(ctx context.Context, log *slog.Logger, spot domain.ParkingSpot, sagaID string) {
	saga, err := r.sagas.GetByID(ctx, sagaID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error("failed to load saga", slog.String("saga_id", sagaID), sl.Err(err))
		}
		return
	}

	switch saga.State {
	case domain.SagaStateStarted, domain.SagaStateClaimed, domain.SagaStatePaid:
		if saga.State == domain.SagaStatePaid {
			log.Error("payment captured for a checkout that never booked", slog.String("saga_id", sagaID))
		}
		if err := r.sagas.Advance(ctx, sagaID, domain.SagaStateCompensated, "", "claim expired"); err != nil {
			log.Error("failed to mark saga compensated", slog.String("saga_id", sagaID), sl.Err(err))
		}
	}

	if r.producer == nil || r.topic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:       kafka.EventReservationCompensated,
		SagaID:     sagaID,
		SpotID:     spot.ID,
		RenterID:   saga.RenterID,
		HostID:     saga.HostID,
		OccurredAt: r.now(),
	}
	if err := r.producer.Publish(ctx, r.topic, event.Key(), event); err != nil {
		log.Warn("failed to publish compensation event", sl.Err(err))
		return
	}
	if r.notificationsTopic != "" {
		if err := r.producer.Publish(ctx, r.notificationsTopic, event.Key(), event); err != nil {
			log.Warn("failed to publish compensation notice", sl.Err(err))
		}
	}
}
