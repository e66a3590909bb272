package booking

import (
	"context"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateForClaim(ctx context.Context, booking *domain.Booking, claimID string) error {
	args := m.Called(ctx, booking, claimID)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByRenter(ctx context.Context, renterID string) ([]domain.Booking, error) {
	args := m.Called(ctx, renterID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByHost(ctx context.Context, hostID string) ([]domain.Booking, error) {
	args := m.Called(ctx, hostID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Transition(ctx context.Context, id string, from []domain.BookingStatus, to domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListEndedConfirmed(ctx context.Context, endedBefore time.Time, limit int) ([]domain.Booking, error) {
	args := m.Called(ctx, endedBefore, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockSpotRepository struct {
	mock.Mock
}

func (m *MockSpotRepository) Create(ctx context.Context, spot *domain.ParkingSpot) error {
	args := m.Called(ctx, spot)
	return args.Error(0)
}

func (m *MockSpotRepository) GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingSpot), args.Error(1)
}

func (m *MockSpotRepository) Claim(ctx context.Context, id, claimID string, at time.Time) (*domain.ParkingSpot, error) {
	args := m.Called(ctx, id, claimID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingSpot), args.Error(1)
}

func (m *MockSpotRepository) Release(ctx context.Context, id, claimID string) (bool, error) {
	args := m.Called(ctx, id, claimID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSpotRepository) ReleaseBooked(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSpotRepository) Retire(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSpotRepository) ListOrphanedClaims(ctx context.Context, claimedBefore time.Time) ([]domain.ParkingSpot, error) {
	args := m.Called(ctx, claimedBefore)
	return args.Get(0).([]domain.ParkingSpot), args.Error(1)
}

type MockSagaRepository struct {
	mock.Mock
}

func (m *MockSagaRepository) Create(ctx context.Context, saga *domain.CheckoutSaga) error {
	args := m.Called(ctx, saga)
	return args.Error(0)
}

func (m *MockSagaRepository) GetByID(ctx context.Context, id string) (*domain.CheckoutSaga, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSaga), args.Error(1)
}

func (m *MockSagaRepository) Advance(ctx context.Context, id string, state domain.SagaState, bookingID, lastError string) error {
	args := m.Called(ctx, id, state, bookingID, lastError)
	return args.Error(0)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Release(ctx context.Context, spotID, claimID string) (bool, error) {
	args := m.Called(ctx, spotID, claimID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) ReleaseBooked(ctx context.Context, spotID string) (bool, error) {
	args := m.Called(ctx, spotID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) Retire(ctx context.Context, spotID string) (bool, error) {
	args := m.Called(ctx, spotID)
	return args.Bool(0), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}
