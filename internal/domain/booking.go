package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Active bookings are the ones that keep their spot booked.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// CanTransitionTo encodes the lifecycle: pending -> confirmed -> completed,
// and pending|confirmed -> cancelled.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch next {
	case BookingStatusConfirmed:
		return s == BookingStatusPending
	case BookingStatusCompleted:
		return s == BookingStatusConfirmed
	case BookingStatusCancelled:
		return s.Active()
	default:
		return false
	}
}

type VehicleInfo struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate" validate:"required"`
}

type Booking struct {
	ID            string        `json:"id"`
	ParkingSpotID string        `json:"parking_spot_id"`
	RenterID      string        `json:"renter_id"`
	HostID        string        `json:"host_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	TotalPrice    float64       `json:"total_price"`
	Status        BookingStatus `json:"status"`
	VehicleInfo   VehicleInfo   `json:"vehicle_info"`
	PaymentRef    string        `json:"payment_ref,omitempty"`
	SagaID        string        `json:"saga_id,omitempty"`
	PaidOut       bool          `json:"paid_out"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HasParticipant reports whether userID is the renter or the host.
func (b *Booking) HasParticipant(userID string) bool {
	return b.RenterID == userID || b.HostID == userID
}
