package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/handlers/slogdiscard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Charge(ctx context.Context, intent domain.PaymentIntent, details Details) (Receipt, error) {
	args := m.Called(ctx, intent, details)
	return args.Get(0).(Receipt), args.Error(1)
}

func newCoordinator(p Provider, store IntentStore) *Coordinator {
	return NewCoordinator(p, store, time.Second, slogdiscard.NewDiscardLogger())
}

func TestCreateIntent(t *testing.T) {
	store := NewMemoryIntentStore(time.Minute)
	c := newCoordinator(NewSandboxProvider(), store)

	secret, err := c.CreateIntent(context.Background(), 4000, "usd")
	require.NoError(t, err)
	assert.Contains(t, secret, "pi_")

	intent, err := store.GetIntent(context.Background(), secret)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), intent.AmountCents)
	assert.Equal(t, "usd", intent.Currency)
}

func TestCreateIntent_Invalid(t *testing.T) {
	c := newCoordinator(NewSandboxProvider(), NewMemoryIntentStore(time.Minute))

	_, err := c.CreateIntent(context.Background(), 0, "usd")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.CreateIntent(context.Background(), 100, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConfirm_Success(t *testing.T) {
	store := NewMemoryIntentStore(time.Minute)
	provider := &MockProvider{}
	c := newCoordinator(provider, store)

	secret, err := c.CreateIntent(context.Background(), 4000, "usd")
	require.NoError(t, err)

	details := Details{CardToken: "tok_visa"}
	provider.On("Charge", mock.Anything, mock.MatchedBy(func(i domain.PaymentIntent) bool {
		return i.ClientSecret == secret && i.AmountCents == 4000
	}), details).Return(Receipt{Reference: "chrg_1", AmountCents: 4000, Currency: "usd"}, nil).Once()

	receipt, err := c.Confirm(context.Background(), secret, details)
	require.NoError(t, err)
	assert.Equal(t, "chrg_1", receipt.Reference)

	_, err = store.GetIntent(context.Background(), secret)
	assert.ErrorIs(t, err, domain.ErrNotFound, "confirmed intent must be dropped")
	provider.AssertExpectations(t)
}

func TestConfirm_DeclineKeepsIntent(t *testing.T) {
	store := NewMemoryIntentStore(time.Minute)
	provider := &MockProvider{}
	c := newCoordinator(provider, store)

	secret, err := c.CreateIntent(context.Background(), 4000, "usd")
	require.NoError(t, err)

	provider.On("Charge", mock.Anything, mock.Anything, mock.Anything).
		Return(Receipt{}, &domain.PaymentError{Code: "insufficient_fund", Message: "no money"}).Once()

	_, err = c.Confirm(context.Background(), secret, Details{CardToken: "tok_poor"})
	var perr *domain.PaymentError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "insufficient_fund", perr.Code)
	assert.Equal(t, "no money", perr.Message)

	_, err = store.GetIntent(context.Background(), secret)
	assert.NoError(t, err, "declined intent stays for a resubmit")
	provider.AssertNumberOfCalls(t, "Charge", 1)
}

func TestConfirm_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		token    string
		secret   func(c *Coordinator) string
		wantCode string
	}{
		{
			name:     "missing card token",
			token:    "",
			secret:   func(c *Coordinator) string { return "pi_any" },
			wantCode: CodeInvalidDetails,
		},
		{
			name:     "unknown intent",
			token:    "tok_visa",
			secret:   func(c *Coordinator) string { return "pi_missing" },
			wantCode: CodeIntentNotFound,
		},
		{
			name:  "declined card",
			token: "tok_fail_declined",
			secret: func(c *Coordinator) string {
				s, _ := c.CreateIntent(context.Background(), 100, "usd")
				return s
			},
			wantCode: CodeCardDeclined,
		},
		{
			name:  "provider timeout",
			token: "tok_timeout",
			secret: func(c *Coordinator) string {
				s, _ := c.CreateIntent(context.Background(), 100, "usd")
				return s
			},
			wantCode: CodeTimeout,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCoordinator(NewSandboxProvider(), NewMemoryIntentStore(time.Minute), 50*time.Millisecond, slogdiscard.NewDiscardLogger())

			_, err := c.Confirm(context.Background(), tc.secret(c), Details{CardToken: tc.token})

			var perr *domain.PaymentError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.wantCode, perr.Code)
		})
	}
}

func TestConfirm_ProviderErrorWrapped(t *testing.T) {
	provider := &MockProvider{}
	c := newCoordinator(provider, NewMemoryIntentStore(time.Minute))
	secret, err := c.CreateIntent(context.Background(), 100, "usd")
	require.NoError(t, err)

	provider.On("Charge", mock.Anything, mock.Anything, mock.Anything).Return(Receipt{}, errors.New("connection reset")).Once()

	_, err = c.Confirm(context.Background(), secret, Details{CardToken: "tok"})
	var perr *domain.PaymentError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodeProviderError, perr.Code)
	assert.Equal(t, "connection reset", perr.Message)
}

func TestMemoryIntentStore_Expiry(t *testing.T) {
	store := NewMemoryIntentStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.SaveIntent(context.Background(), domain.PaymentIntent{ClientSecret: "pi", CreatedAt: now.Add(-2 * time.Minute)}))

	_, err := store.GetIntent(context.Background(), "pi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
