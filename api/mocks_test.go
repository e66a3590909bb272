package api

import (
	"context"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/live"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/booking"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/checkout"
	"github.com/ParkPal-co/parking-app-sub000/internal/service/conversation"
	"github.com/stretchr/testify/mock"
)

type MockCheckoutUseCase struct {
	mock.Mock
}

func (m *MockCheckoutUseCase) ReserveAndBook(ctx context.Context, input checkout.ReserveInput) (*checkout.Result, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Result), args.Error(1)
}

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Rollback(ctx context.Context, spotID, claimID string) error {
	return m.Called(ctx, spotID, claimID).Error(0)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBookingByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListByRenter(ctx context.Context, renterID string) ([]domain.Booking, error) {
	args := m.Called(ctx, renterID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListByHost(ctx context.Context, hostID string) ([]domain.Booking, error) {
	args := m.Called(ctx, hostID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CompleteEndedBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockConversationUseCase struct {
	mock.Mock
}

func (m *MockConversationUseCase) EnsureConversation(ctx context.Context, renterID, hostID, bookingID, initialMessage string) (*domain.Conversation, error) {
	args := m.Called(ctx, renterID, hostID, bookingID, initialMessage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationUseCase) StartConversation(ctx context.Context, bookingID, userID string) (*domain.Conversation, error) {
	args := m.Called(ctx, bookingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationUseCase) SendMessage(ctx context.Context, input conversation.SendMessageInput) (*domain.Message, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockConversationUseCase) MarkConversationAsRead(ctx context.Context, conversationID, userID string) error {
	return m.Called(ctx, conversationID, userID).Error(0)
}

func (m *MockConversationUseCase) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationUseCase) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Conversation), args.Error(1)
}

func (m *MockConversationUseCase) ListMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockConversationUseCase) SubscribeConversations(ctx context.Context, userID string, onUpdate func([]domain.Conversation)) (*live.Subscription, error) {
	args := m.Called(ctx, userID, onUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*live.Subscription), args.Error(1)
}

func (m *MockConversationUseCase) SubscribeMessages(ctx context.Context, conversationID, userID string, onUpdate func([]domain.Message)) (*live.Subscription, error) {
	args := m.Called(ctx, conversationID, userID, onUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*live.Subscription), args.Error(1)
}
