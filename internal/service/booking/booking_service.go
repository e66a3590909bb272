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
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	Rollback(ctx context.Context, spotID, claimID string) error
	CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	GetBookingByID(ctx context.Context, bookingID string) (*domain.Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]domain.Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]domain.Booking, error)
	CompleteEndedBookings(ctx context.Context) ([]domain.Booking, error)
}

// Guard is the part of the reservation guard the lifecycle writes through.
type Guard interface {
	Release(ctx context.Context, spotID, claimID string) (bool, error)
	ReleaseBooked(ctx context.Context, spotID string) (bool, error)
	Retire(ctx context.Context, spotID string) (bool, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	spots              repository.SpotRepository
	guard              Guard
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	timeout            time.Duration
	completeBatch      int
	validate           *validator.Validate
	log                *slog.Logger
	now                func() time.Time
}

type CreateBookingInput struct {
	SpotID      string             `json:"spot_id" validate:"required"`
	ClaimID     string             `json:"claim_id" validate:"required"`
	RenterID    string             `json:"renter_id" validate:"required,nefield=HostID"`
	HostID      string             `json:"host_id" validate:"required"`
	StartTime   time.Time          `json:"start_time" validate:"required"`
	EndTime     time.Time          `json:"end_time" validate:"required,gtfield=StartTime"`
	TotalPrice  float64            `json:"total_price" validate:"gt=0"`
	VehicleInfo domain.VehicleInfo `json:"vehicle_info"`
	PaymentRef  string             `json:"payment_ref"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithCompleteBatch(n int) BookingServiceOption {
	return func(s *BookingService) {
		s.completeBatch = n
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	spots repository.SpotRepository,
	guard Guard,
	producer Producer,
	bookingTopic string,
	timeout time.Duration,
	log *slog.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:      bookings,
		spots:         spots,
		guard:         guard,
		producer:      producer,
		bookingTopic:  bookingTopic,
		timeout:       timeout,
		completeBatch: 100,
		validate:      validator.New(),
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking persists a confirmed booking for a spot this flow has
// already claimed. Any failure releases the claim before returning.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	const op = "booking.BookingService.CreateBooking"
	log := s.log.With(slog.String("op", op), slog.String("spot_id", input.SpotID))

	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, err.Error())
	}

	booking, err := s.persist(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrInconsistency) {
			log.Error("reservation state is inconsistent", sl.Err(err), slog.String("claim_id", input.ClaimID))
		}
		if rbErr := s.Rollback(ctx, input.SpotID, input.ClaimID); rbErr != nil {
			log.Error("failed to release claim after booking failure", sl.Err(rbErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("booking created", slog.String("booking_id", booking.ID))
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) persist(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	spot, err := s.spots.GetByID(ctx, input.SpotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("spot %s vanished after claim: %w", input.SpotID, domain.ErrInconsistency)
		}
		return nil, err
	}
	if !spot.HeldBy(input.ClaimID) {
		return nil, fmt.Errorf("spot %s is %s and not held by claim %s: %w", spot.ID, spot.Status, input.ClaimID, domain.ErrInconsistency)
	}

	booking := &domain.Booking{
		ID:            uuid.NewString(),
		ParkingSpotID: input.SpotID,
		RenterID:      input.RenterID,
		HostID:        input.HostID,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		TotalPrice:    input.TotalPrice,
		Status:        domain.BookingStatusConfirmed,
		VehicleInfo:   input.VehicleInfo,
		PaymentRef:    input.PaymentRef,
		SagaID:        input.ClaimID,
	}
	if err := s.bookings.CreateForClaim(ctx, booking, input.ClaimID); err != nil {
		return nil, err
	}
	return booking, nil
}

// Rollback releases a claim that will not become a booking. It still runs
// when ctx is already cancelled, since an abandoned checkout is the usual
// reason to roll back.
func (s *BookingService) Rollback(ctx context.Context, spotID, claimID string) error {
	const op = "booking.BookingService.Rollback"

	released, err := s.guard.Release(context.WithoutCancel(ctx), spotID, claimID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("claim rolled back", slog.String("op", op), slog.String("spot_id", spotID), slog.Bool("released", released))
	return nil
}

// CancelBooking cancels the booking, then frees its spot in a second write.
// Cancelling an already cancelled booking returns it without writing.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	const op = "booking.BookingService.CancelBooking"
	log := s.log.With(slog.String("op", op), slog.String("booking_id", bookingID))

	current, err := s.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	if !current.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		return nil, fmt.Errorf("%s: %s booking: %w", op, current.Status, domain.ErrInvalidTransition)
	}

	updated, err := s.transition(ctx, bookingID, domain.BookingStatusCancelled, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		// Lost a race; a concurrent cancel counts as success.
		latest, getErr := s.GetBookingByID(ctx, bookingID)
		if getErr == nil && latest.Status == domain.BookingStatusCancelled {
			return latest, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.guard.ReleaseBooked(ctx, updated.ParkingSpotID); err != nil {
		// The reconciler frees booked spots without an active booking.
		log.Error("booking cancelled but spot not released", slog.String("spot_id", updated.ParkingSpotID), sl.Err(err))
		return nil, fmt.Errorf("%s: release spot: %w", op, err)
	}

	log.Info("booking cancelled")
	s.publish(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}

func (s *BookingService) GetBookingByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *BookingService) ListByRenter(ctx context.Context, renterID string) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.bookings.ListByRenter(ctx, renterID)
}

func (s *BookingService) ListByHost(ctx context.Context, hostID string) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.bookings.ListByHost(ctx, hostID)
}

// CompleteEndedBookings moves confirmed bookings whose window has passed to
// completed and retires their spots.
func (s *BookingService) CompleteEndedBookings(ctx context.Context) ([]domain.Booking, error) {
	const op = "booking.BookingService.CompleteEndedBookings"
	log := s.log.With(slog.String("op", op))

	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	ended, err := s.bookings.ListEndedConfirmed(listCtx, s.now(), s.completeBatch)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	completed := make([]domain.Booking, 0, len(ended))
	for _, b := range ended {
		updated, err := s.transition(ctx, b.ID, domain.BookingStatusCompleted, domain.BookingStatusConfirmed)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidTransition) {
				log.Error("failed to complete booking", slog.String("booking_id", b.ID), sl.Err(err))
			}
			continue
		}
		if _, err := s.guard.Retire(ctx, updated.ParkingSpotID); err != nil {
			log.Error("failed to retire spot", slog.String("spot_id", updated.ParkingSpotID), sl.Err(err))
		}
		s.publish(ctx, kafka.EventBookingCompleted, updated)
		completed = append(completed, *updated)
	}
	return completed, nil
}

func (s *BookingService) transition(ctx context.Context, id string, to domain.BookingStatus, from ...domain.BookingStatus) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.bookings.Transition(ctx, id, from, to)
}

// publish is best effort; a lost event never fails the booking operation.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	event := kafka.NewBookingEvent(eventType, booking, s.now())
	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		s.log.Warn("failed to publish booking event", slog.String("type", eventType), slog.String("booking_id", booking.ID), sl.Err(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
			s.log.Warn("failed to publish notification", slog.String("type", eventType), sl.Err(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
