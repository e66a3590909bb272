// Package memstore keeps every repository in process memory. A single mutex
// serializes all writes, which gives the spot claim the same all-or-nothing
// behaviour as the serializable transaction in Postgres.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
)

type Store struct {
	mu            sync.Mutex
	spots         map[string]domain.ParkingSpot
	bookings      map[string]domain.Booking
	conversations map[string]domain.Conversation
	messages      []domain.Message
	sagas         map[string]domain.CheckoutSaga
	now           func() time.Time
}

func New() *Store {
	return &Store{
		spots:         make(map[string]domain.ParkingSpot),
		bookings:      make(map[string]domain.Booking),
		conversations: make(map[string]domain.Conversation),
		sagas:         make(map[string]domain.CheckoutSaga),
		now:           time.Now,
	}
}

func (s *Store) Spots() repository.SpotRepository                 { return &spotRepo{s} }
func (s *Store) Bookings() repository.BookingRepository           { return &bookingRepo{s} }
func (s *Store) Conversations() repository.ConversationRepository { return &conversationRepo{s} }
func (s *Store) Messages() repository.MessageRepository           { return &messageRepo{s} }
func (s *Store) Sagas() repository.SagaRepository                 { return &sagaRepo{s} }

func (s *Store) activeBookingFor(spotID string) bool {
	for _, b := range s.bookings {
		if b.ParkingSpotID == spotID && b.Status.Active() {
			return true
		}
	}
	return false
}

type spotRepo struct{ s *Store }

func (r *spotRepo) Create(_ context.Context, spot *domain.ParkingSpot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.spots[spot.ID]; ok {
		return nil
	}
	now := r.s.now()
	if spot.Status == "" {
		spot.Status = domain.SpotStatusAvailable
	}
	spot.CreatedAt, spot.UpdatedAt = now, now
	r.s.spots[spot.ID] = cloneSpot(*spot)
	return nil
}

func (r *spotRepo) GetByID(_ context.Context, id string) (*domain.ParkingSpot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	spot, ok := r.s.spots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneSpot(spot)
	return &out, nil
}

func (r *spotRepo) Claim(_ context.Context, id, claimID string, at time.Time) (*domain.ParkingSpot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	spot, ok := r.s.spots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if spot.Status != domain.SpotStatusAvailable {
		return nil, domain.ErrConflict
	}
	spot.Status = domain.SpotStatusBooked
	spot.ClaimID = &claimID
	spot.ClaimedAt = &at
	spot.UpdatedAt = r.s.now()
	r.s.spots[id] = spot

	out := cloneSpot(spot)
	return &out, nil
}

func (r *spotRepo) Release(_ context.Context, id, claimID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	spot, ok := r.s.spots[id]
	if !ok || !spot.HeldBy(claimID) || r.s.activeBookingFor(id) {
		return false, nil
	}
	r.s.spots[id] = r.s.withStatus(spot, domain.SpotStatusAvailable)
	return true, nil
}

func (r *spotRepo) ReleaseBooked(_ context.Context, id string) (bool, error) {
	return r.move(id, domain.SpotStatusAvailable)
}

func (r *spotRepo) Retire(_ context.Context, id string) (bool, error) {
	return r.move(id, domain.SpotStatusUnavailable)
}

func (r *spotRepo) move(id string, to domain.SpotStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	spot, ok := r.s.spots[id]
	if !ok || spot.Status != domain.SpotStatusBooked {
		return false, nil
	}
	r.s.spots[id] = r.s.withStatus(spot, to)
	return true, nil
}

func (r *spotRepo) ListOrphanedClaims(_ context.Context, claimedBefore time.Time) ([]domain.ParkingSpot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	spots := make([]domain.ParkingSpot, 0)
	for id, spot := range r.s.spots {
		if spot.Status != domain.SpotStatusBooked || r.s.activeBookingFor(id) {
			continue
		}
		if spot.ClaimedAt != nil && !spot.ClaimedAt.Before(claimedBefore) {
			continue
		}
		spots = append(spots, cloneSpot(spot))
	}
	sort.Slice(spots, func(i, j int) bool {
		return claimedAt(spots[i]).Before(claimedAt(spots[j]))
	})
	return spots, nil
}

// withStatus clears the claim, mirroring every non-claim status write.
func (s *Store) withStatus(spot domain.ParkingSpot, status domain.SpotStatus) domain.ParkingSpot {
	spot.Status = status
	spot.ClaimID = nil
	spot.ClaimedAt = nil
	spot.UpdatedAt = s.now()
	return spot
}

type bookingRepo struct{ s *Store }

func (r *bookingRepo) CreateForClaim(_ context.Context, booking *domain.Booking, claimID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	spot, ok := r.s.spots[booking.ParkingSpotID]
	if !ok {
		return fmt.Errorf("spot %s vanished: %w", booking.ParkingSpotID, domain.ErrInconsistency)
	}
	if !spot.HeldBy(claimID) {
		return fmt.Errorf("spot %s not held by claim %s: %w", booking.ParkingSpotID, claimID, domain.ErrInconsistency)
	}
	if r.s.activeBookingFor(spot.ID) {
		return fmt.Errorf("spot %s already has an active booking: %w", booking.ParkingSpotID, domain.ErrInconsistency)
	}
	if _, dup := r.s.bookings[booking.ID]; dup {
		return fmt.Errorf("booking %s already exists", booking.ID)
	}

	now := r.s.now()
	booking.CreatedAt, booking.UpdatedAt = now, now
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *bookingRepo) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r *bookingRepo) ListByRenter(_ context.Context, renterID string) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.RenterID == renterID }, byStartDesc, 0), nil
}

func (r *bookingRepo) ListByHost(_ context.Context, hostID string) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.HostID == hostID }, byStartDesc, 0), nil
}

func (r *bookingRepo) Transition(_ context.Context, id string, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	for _, status := range from {
		if b.Status == status {
			b.Status = to
			b.UpdatedAt = r.s.now()
			r.s.bookings[id] = b
			return &b, nil
		}
	}
	return nil, domain.ErrInvalidTransition
}

func (r *bookingRepo) ListEndedConfirmed(_ context.Context, endedBefore time.Time, limit int) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusConfirmed && !b.EndTime.After(endedBefore)
	}, byEndAsc, limit), nil
}

func (r *bookingRepo) filter(keep func(domain.Booking) bool, less func(a, b domain.Booking) bool, limit int) []domain.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func byStartDesc(a, b domain.Booking) bool { return a.StartTime.After(b.StartTime) }
func byEndAsc(a, b domain.Booking) bool    { return a.EndTime.Before(b.EndTime) }

type sagaRepo struct{ s *Store }

func (r *sagaRepo) Create(_ context.Context, saga *domain.CheckoutSaga) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, dup := r.s.sagas[saga.ID]; dup {
		return fmt.Errorf("saga %s already exists", saga.ID)
	}
	now := r.s.now()
	saga.CreatedAt, saga.UpdatedAt = now, now
	r.s.sagas[saga.ID] = *saga
	return nil
}

func (r *sagaRepo) GetByID(_ context.Context, id string) (*domain.CheckoutSaga, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	saga, ok := r.s.sagas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &saga, nil
}

func (r *sagaRepo) Advance(_ context.Context, id string, state domain.SagaState, bookingID, lastError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	saga, ok := r.s.sagas[id]
	if !ok {
		return domain.ErrNotFound
	}
	saga.State = state
	if bookingID != "" {
		saga.BookingID = bookingID
	}
	if lastError != "" {
		saga.LastError = lastError
	}
	saga.UpdatedAt = r.s.now()
	r.s.sagas[id] = saga
	return nil
}

func cloneSpot(s domain.ParkingSpot) domain.ParkingSpot {
	if s.Images != nil {
		s.Images = append([]string(nil), s.Images...)
	}
	if s.ClaimID != nil {
		id := *s.ClaimID
		s.ClaimID = &id
	}
	if s.ClaimedAt != nil {
		at := *s.ClaimedAt
		s.ClaimedAt = &at
	}
	return s
}

func claimedAt(s domain.ParkingSpot) time.Time {
	if s.ClaimedAt == nil {
		return time.Time{}
	}
	return *s.ClaimedAt
}

var (
	_ repository.SpotRepository    = (*spotRepo)(nil)
	_ repository.BookingRepository = (*bookingRepo)(nil)
	_ repository.SagaRepository    = (*sagaRepo)(nil)
)
