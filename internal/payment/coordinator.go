package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	CodeTimeout        = "timeout"
	CodeIntentNotFound = "intent_not_found"
	CodeInvalidDetails = "invalid_payment_details"
	CodeProviderError  = "provider_error"
	CodeCardDeclined   = "card_declined"
)

// Details is what the renter submits to confirm an intent.
type Details struct {
	CardToken string `json:"card_token" validate:"required"`
}

type Receipt struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Provider charges a confirmed intent. Implementations return a
// *domain.PaymentError for declines.
type Provider interface {
	Charge(ctx context.Context, intent domain.PaymentIntent, details Details) (Receipt, error)
}

type IntentStore interface {
	SaveIntent(ctx context.Context, intent domain.PaymentIntent) error
	GetIntent(ctx context.Context, clientSecret string) (*domain.PaymentIntent, error)
	DeleteIntent(ctx context.Context, clientSecret string) error
}

type Coordinator struct {
	provider Provider
	intents  IntentStore
	timeout  time.Duration
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

func NewCoordinator(provider Provider, intents IntentStore, timeout time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		provider: provider,
		intents:  intents,
		timeout:  timeout,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// CreateIntent registers a transient intent and returns its client secret.
// It is called only once the renter has committed and the spot is claimed.
func (c *Coordinator) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	const op = "payment.Coordinator.CreateIntent"

	if amountCents <= 0 || currency == "" {
		return "", fmt.Errorf("%s: amount and currency are required: %w", op, domain.ErrValidation)
	}

	intent := domain.PaymentIntent{
		ClientSecret: "pi_" + uuid.NewString(),
		AmountCents:  amountCents,
		Currency:     currency,
		CreatedAt:    c.now(),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.intents.SaveIntent(ctx, intent); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return intent.ClientSecret, nil
}

// Confirm charges the intent. Every failure comes back as a
// *domain.PaymentError; the intent survives failures so the caller may
// resubmit with other details. Nothing here retries.
func (c *Coordinator) Confirm(ctx context.Context, clientSecret string, details Details) (*Receipt, error) {
	const op = "payment.Coordinator.Confirm"
	log := c.log.With(slog.String("op", op))

	if err := c.validate.Struct(details); err != nil {
		return nil, &domain.PaymentError{Code: CodeInvalidDetails, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	intent, err := c.intents.GetIntent(ctx, clientSecret)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.PaymentError{Code: CodeIntentNotFound, Message: "payment intent is unknown or expired"}
		}
		return nil, asPaymentError(ctx, err)
	}

	receipt, err := c.provider.Charge(ctx, *intent, details)
	if err != nil {
		perr := asPaymentError(ctx, err)
		log.Info("payment declined", slog.String("code", perr.Code))
		return nil, perr
	}

	if err := c.intents.DeleteIntent(ctx, clientSecret); err != nil {
		log.Warn("failed to drop confirmed intent", sl.Err(err))
	}
	return &receipt, nil
}

func asPaymentError(ctx context.Context, err error) *domain.PaymentError {
	var perr *domain.PaymentError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.PaymentError{Code: CodeTimeout, Message: "payment provider did not answer in time"}
	}
	return &domain.PaymentError{Code: CodeProviderError, Message: err.Error()}
}
