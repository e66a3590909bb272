package domain

import "time"

type SagaState string

const (
	SagaStateStarted     SagaState = "started"
	SagaStateClaimed     SagaState = "claimed"
	SagaStatePaid        SagaState = "paid"
	SagaStateCompleted   SagaState = "completed"
	SagaStateCompensated SagaState = "compensated"
	SagaStateFailed      SagaState = "failed"
)

// CheckoutSaga is the persisted record of one reserve -> pay -> book flow.
// Its ID doubles as the claim id written on the spot.
type CheckoutSaga struct {
	ID          string    `json:"id"`
	SpotID      string    `json:"spot_id"`
	RenterID    string    `json:"renter_id"`
	HostID      string    `json:"host_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	State       SagaState `json:"state"`
	BookingID   string    `json:"booking_id,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaymentIntent is the transient provider-side intent. It lives in the
// intent store until it is confirmed or expires.
type PaymentIntent struct {
	ClientSecret string    `json:"client_secret"`
	AmountCents  int64     `json:"amount_cents"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
}
