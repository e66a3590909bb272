package domain

import (
	"math"
	"time"
)

type SpotStatus string

const (
	SpotStatusAvailable   SpotStatus = "available"
	SpotStatusBooked      SpotStatus = "booked"
	SpotStatusUnavailable SpotStatus = "unavailable"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Availability struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Covers reports whether [start, end] lies inside the window. A zero bound
// is open.
func (a Availability) Covers(start, end time.Time) bool {
	if !a.Start.IsZero() && start.Before(a.Start) {
		return false
	}
	if !a.End.IsZero() && end.After(a.End) {
		return false
	}
	return true
}

// ParkingSpot is a host's spot for a single event. ClaimID is the id of the
// checkout saga currently holding the spot; it is set together with
// status=booked by a reservation and cleared by a release.
type ParkingSpot struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	EventID      string       `json:"event_id"`
	Price        float64      `json:"price"`
	Availability Availability `json:"availability"`
	Coordinates  Coordinates  `json:"coordinates"`
	Images       []string     `json:"images"`
	Status       SpotStatus   `json:"status"`
	ClaimID      *string      `json:"claim_id,omitempty"`
	ClaimedAt    *time.Time   `json:"claimed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HeldBy reports whether the spot is booked under the given claim.
func (s *ParkingSpot) HeldBy(claimID string) bool {
	return s.Status == SpotStatusBooked && s.ClaimID != nil && *s.ClaimID == claimID
}

// ToCents converts a price in major currency units to minor units.
func ToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}
