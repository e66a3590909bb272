package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/ParkPal-co/parking-app-sub000/internal/payment"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/booking"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type CheckoutUseCase interface {
	ReserveAndBook(ctx context.Context, input ReserveInput) (*Result, error)
}

type SpotReader interface {
	GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error)
}

type Guard interface {
	Reserve(ctx context.Context, spotID, claimID string) (*domain.ParkingSpot, error)
}

type Payments interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error)
	Confirm(ctx context.Context, clientSecret string, details payment.Details) (*payment.Receipt, error)
}

type Bookings interface {
	CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error)
	Rollback(ctx context.Context, spotID, claimID string) error
}

type Conversations interface {
	StartConversation(ctx context.Context, bookingID, userID string) (*domain.Conversation, error)
}

type ReserveInput struct {
	SpotID   string `json:"spot_id" validate:"required"`
	RenterID string `json:"renter_id" validate:"required"`
	// HostID and Price default to the spot's owner and price; when given
	// they must match the spot.
	HostID      string             `json:"host_id"`
	Price       float64            `json:"price" validate:"gte=0"`
	Currency    string             `json:"currency"`
	StartTime   time.Time          `json:"start_time" validate:"required"`
	EndTime     time.Time          `json:"end_time" validate:"required,gtfield=StartTime"`
	VehicleInfo domain.VehicleInfo `json:"vehicle_info"`
	Payment     payment.Details    `json:"payment"`
}

type Result struct {
	Booking      *domain.Booking      `json:"booking"`
	Conversation *domain.Conversation `json:"conversation,omitempty"`
	Receipt      *payment.Receipt     `json:"receipt"`
}

// CheckoutService runs reserve -> pay -> book -> converse. Only the
// reservation is atomic; each later failure undoes the claim, and every
// step is recorded on a checkout saga so the reconciler can finish what a
// crashed run left behind.
type CheckoutService struct {
	spots           SpotReader
	guard           Guard
	payments        Payments
	bookings        Bookings
	conversations   Conversations
	sagas           repository.SagaRepository
	defaultCurrency string
	timeout         time.Duration
	validate        *validator.Validate
	log             *slog.Logger
}

func NewCheckoutService(
	spots SpotReader,
	guard Guard,
	payments Payments,
	bookings Bookings,
	conversations Conversations,
	sagas repository.SagaRepository,
	defaultCurrency string,
	timeout time.Duration,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		spots:           spots,
		guard:           guard,
		payments:        payments,
		bookings:        bookings,
		conversations:   conversations,
		sagas:           sagas,
		defaultCurrency: defaultCurrency,
		timeout:         timeout,
		validate:        validator.New(),
		log:             log,
	}
}

// ReserveAndBook returns domain.ErrConflict when the spot is taken and a
// *domain.PaymentError when the charge fails; in both cases the spot is
// left as it was found.
func (s *CheckoutService) ReserveAndBook(ctx context.Context, input ReserveInput) (*Result, error) {
	const op = "checkout.CheckoutService.ReserveAndBook"
	log := s.log.With(slog.String("op", op), slog.String("spot_id", input.SpotID), slog.String("renter_id", input.RenterID))

	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, err.Error())
	}

	spot, err := s.getSpot(ctx, input.SpotID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.fillFromSpot(&input, spot); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if spot.Status != domain.SpotStatusAvailable {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}

	saga := &domain.CheckoutSaga{
		ID:          uuid.NewString(),
		SpotID:      spot.ID,
		RenterID:    input.RenterID,
		HostID:      input.HostID,
		AmountCents: domain.ToCents(input.Price),
		Currency:    input.Currency,
		State:       domain.SagaStateStarted,
	}
	if err := s.createSaga(ctx, saga); err != nil {
		return nil, fmt.Errorf("%s: start saga: %w", op, err)
	}
	log = log.With(slog.String("saga_id", saga.ID))

	if _, err := s.guard.Reserve(ctx, spot.ID, saga.ID); err != nil {
		s.advance(ctx, log, saga.ID, domain.SagaStateFailed, "", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.advance(ctx, log, saga.ID, domain.SagaStateClaimed, "", nil)

	receipt, err := s.pay(ctx, saga, input.Payment)
	if err != nil {
		if rbErr := s.bookings.Rollback(ctx, spot.ID, saga.ID); rbErr != nil {
			// The reconciler releases the claim once it times out.
			log.Error("failed to roll back claim", sl.Err(rbErr))
		}
		s.advance(ctx, log, saga.ID, domain.SagaStateCompensated, "", err)
		if domain.IsPaymentError(err) {
			log.Info("payment declined, claim released", sl.Err(err))
		} else {
			log.Warn("payment step failed, claim released", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.advance(ctx, log, saga.ID, domain.SagaStatePaid, "", nil)

	created, err := s.bookings.CreateBooking(ctx, booking.CreateBookingInput{
		SpotID:      spot.ID,
		ClaimID:     saga.ID,
		RenterID:    input.RenterID,
		HostID:      input.HostID,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		TotalPrice:  input.Price,
		VehicleInfo: input.VehicleInfo,
		PaymentRef:  receipt.Reference,
	})
	if err != nil {
		// The claim is already released; the charge is not refunded here.
		log.Error("payment captured but booking failed",
			slog.String("payment_ref", receipt.Reference), slog.Int64("amount_cents", receipt.AmountCents), sl.Err(err))
		s.advance(ctx, log, saga.ID, domain.SagaStateFailed, "", fmt.Errorf("payment %s captured: %w", receipt.Reference, err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.advance(ctx, log, saga.ID, domain.SagaStateCompleted, created.ID, nil)

	result := &Result{Booking: created, Receipt: receipt}
	conv, err := s.conversations.StartConversation(ctx, created.ID, input.RenterID)
	if err != nil {
		// The booking stands; the conversation can be opened later.
		log.Warn("booking created without conversation", slog.String("booking_id", created.ID), sl.Err(err))
	} else {
		result.Conversation = conv
	}

	log.Info("checkout completed", slog.String("booking_id", created.ID))
	return result, nil
}

func (s *CheckoutService) fillFromSpot(input *ReserveInput, spot *domain.ParkingSpot) error {
	if input.HostID == "" {
		input.HostID = spot.OwnerID
	} else if input.HostID != spot.OwnerID {
		return fmt.Errorf("host does not own spot %s: %w", spot.ID, domain.ErrValidation)
	}
	if input.HostID == input.RenterID {
		return fmt.Errorf("host cannot rent their own spot: %w", domain.ErrValidation)
	}
	if input.Price == 0 {
		input.Price = spot.Price
	} else if domain.ToCents(input.Price) != domain.ToCents(spot.Price) {
		return fmt.Errorf("price %.2f does not match spot price %.2f: %w", input.Price, spot.Price, domain.ErrValidation)
	}
	if !spot.Availability.Covers(input.StartTime, input.EndTime) {
		return fmt.Errorf("window %s-%s is outside spot %s availability: %w",
			input.StartTime.Format(time.RFC3339), input.EndTime.Format(time.RFC3339), spot.ID, domain.ErrValidation)
	}
	if input.Currency == "" {
		input.Currency = s.defaultCurrency
	}
	return nil
}

// pay creates the intent lazily, after the claim, and confirms it once.
func (s *CheckoutService) pay(ctx context.Context, saga *domain.CheckoutSaga, details payment.Details) (*payment.Receipt, error) {
	secret, err := s.payments.CreateIntent(ctx, saga.AmountCents, saga.Currency)
	if err != nil {
		return nil, err
	}
	return s.payments.Confirm(ctx, secret, details)
}

func (s *CheckoutService) getSpot(ctx context.Context, id string) (*domain.ParkingSpot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.spots.GetByID(ctx, id)
}

func (s *CheckoutService) createSaga(ctx context.Context, saga *domain.CheckoutSaga) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.sagas.Create(ctx, saga)
}

// advance records progress, even for a caller that has gone away. A lost
// update only delays reconciliation, so it is logged rather than returned.
func (s *CheckoutService) advance(ctx context.Context, log *slog.Logger, sagaID string, state domain.SagaState, bookingID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var lastError string
	if cause != nil {
		lastError = cause.Error()
	}
	if err := s.sagas.Advance(ctx, sagaID, state, bookingID, lastError); err != nil {
		log.Error("failed to record saga state", slog.String("state", string(state)), sl.Err(err))
	}
}

var _ CheckoutUseCase = (*CheckoutService)(nil)
