package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
	"github.com/ParkPal-co/parking-app-sub000/internal/live"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ConversationUseCase interface {
	EnsureConversation(ctx context.Context, renterID, hostID, bookingID, initialMessage string) (*domain.Conversation, error)
	StartConversation(ctx context.Context, bookingID, userID string) (*domain.Conversation, error)
	SendMessage(ctx context.Context, input SendMessageInput) (*domain.Message, error)
	MarkConversationAsRead(ctx context.Context, conversationID, userID string) error
	GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error)
	SubscribeConversations(ctx context.Context, userID string, onUpdate func([]domain.Conversation)) (*live.Subscription, error)
	SubscribeMessages(ctx context.Context, conversationID, userID string, onUpdate func([]domain.Message)) (*live.Subscription, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

// Live announces changes to subscribers and registers new ones.
type Live interface {
	ConversationsChanged(ctx context.Context, userIDs ...string)
	MessagesChanged(ctx context.Context, conversationID string)
	SubscribeConversations(ctx context.Context, userID string, onUpdate func([]domain.Conversation)) (*live.Subscription, error)
	SubscribeMessages(ctx context.Context, conversationID string, onUpdate func([]domain.Message)) (*live.Subscription, error)
}

type ConversationService struct {
	conversations  repository.ConversationRepository
	messages       repository.MessageRepository
	bookings       BookingReader
	live           Live
	welcomeMessage string
	timeout        time.Duration
	validate       *validator.Validate
	log            *slog.Logger
	now            func() time.Time
}

type SendMessageInput struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	SenderID       string `json:"sender_id" validate:"required"`
	ReceiverID     string `json:"receiver_id" validate:"required,nefield=SenderID"`
	Content        string `json:"content" validate:"required,max=2000"`
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	bookings BookingReader,
	hub Live,
	welcomeMessage string,
	timeout time.Duration,
	log *slog.Logger,
) *ConversationService {
	return &ConversationService{
		conversations:  conversations,
		messages:       messages,
		bookings:       bookings,
		live:           hub,
		welcomeMessage: welcomeMessage,
		timeout:        timeout,
		validate:       validator.New(),
		log:            log,
		now:            time.Now,
	}
}

// EnsureConversation returns the renter/host conversation of a booking,
// creating it with a seed message from the renter when none exists. The
// conversation and the seed are two separate writes; two racing calls can
// produce a duplicate conversation, never a corrupt one.
func (s *ConversationService) EnsureConversation(ctx context.Context, renterID, hostID, bookingID, initialMessage string) (*domain.Conversation, error) {
	const op = "conversation.ConversationService.EnsureConversation"
	log := s.log.With(slog.String("op", op), slog.String("booking_id", bookingID))

	if renterID == "" || hostID == "" || bookingID == "" || renterID == hostID {
		return nil, fmt.Errorf("%s: renter, host and booking are required: %w", op, domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	candidates, err := s.conversations.FindByParticipantAndBooking(ctx, renterID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range candidates {
		if candidates[i].IsBetween(renterID, hostID) {
			return &candidates[i], nil
		}
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{renterID, hostID},
		BookingID:    bookingID,
		CreatedAt:    now,
	}
	if initialMessage != "" {
		conv.LastMessage = &domain.LastMessage{Content: initialMessage, Timestamp: now, SenderID: renterID}
		conv.UnreadCount = 1
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("%s: create conversation: %w", op, err)
	}

	if initialMessage != "" {
		seed := &domain.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			SenderID:       renterID,
			ReceiverID:     hostID,
			Content:        initialMessage,
			Timestamp:      now,
			BookingID:      &bookingID,
		}
		if err := s.messages.Create(ctx, seed); err != nil {
			log.Error("conversation created without seed message", slog.String("conversation_id", conv.ID), sl.Err(err))
			return nil, fmt.Errorf("%s: create seed message: %w", op, err)
		}
	}

	log.Info("conversation created", slog.String("conversation_id", conv.ID))
	s.live.ConversationsChanged(ctx, renterID, hostID)
	return conv, nil
}

// StartConversation opens the conversation of a booking on behalf of one of
// its participants.
func (s *ConversationService) StartConversation(ctx context.Context, bookingID, userID string) (*domain.Conversation, error) {
	const op = "conversation.ConversationService.StartConversation"

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !booking.HasParticipant(userID) {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrForbidden)
	}
	return s.EnsureConversation(ctx, booking.RenterID, booking.HostID, booking.ID, s.welcomeMessage)
}

func (s *ConversationService) getBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.bookings.GetByID(ctx, bookingID)
}

// SendMessage appends a message, then records it as the conversation's last
// message and bumps the unread counter by one.
func (s *ConversationService) SendMessage(ctx context.Context, input SendMessageInput) (*domain.Message, error) {
	const op = "conversation.ConversationService.SendMessage"

	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, err.Error())
	}

	conv, err := s.GetConversation(ctx, input.ConversationID, input.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !conv.HasParticipant(input.ReceiverID) {
		return nil, fmt.Errorf("%s: receiver is not in the conversation: %w", op, domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	bookingID := conv.BookingID
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       input.SenderID,
		ReceiverID:     input.ReceiverID,
		Content:        input.Content,
		Timestamp:      s.now(),
		BookingID:      &bookingID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	last := domain.LastMessage{Content: msg.Content, Timestamp: msg.Timestamp, SenderID: msg.SenderID}
	if err := s.conversations.RecordMessage(ctx, conv.ID, last); err != nil {
		return nil, fmt.Errorf("%s: record last message: %w", op, err)
	}

	s.live.MessagesChanged(ctx, conv.ID)
	s.live.ConversationsChanged(ctx, conv.Participants...)
	return msg, nil
}

// MarkConversationAsRead flags every unread message addressed to userID and
// then zeroes the counter. The writes are independent: a failure part way
// leaves earlier messages read and the counter untouched.
func (s *ConversationService) MarkConversationAsRead(ctx context.Context, conversationID, userID string) error {
	const op = "conversation.ConversationService.MarkConversationAsRead"

	conv, err := s.GetConversation(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	unread, err := s.messages.ListUnreadFor(ctx, conv.ID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, m := range unread {
		if err := s.messages.MarkRead(ctx, m.ID); err != nil {
			return fmt.Errorf("%s: mark message %s: %w", op, m.ID, err)
		}
	}
	if err := s.conversations.ResetUnread(ctx, conv.ID); err != nil {
		return fmt.Errorf("%s: reset unread: %w", op, err)
	}

	s.live.MessagesChanged(ctx, conv.ID)
	s.live.ConversationsChanged(ctx, conv.Participants...)
	return nil
}

// GetConversation returns domain.ErrForbidden when userID is not a participant.
func (s *ConversationService) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.conversations.ListByParticipant(ctx, userID)
}

func (s *ConversationService) ListMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.messages.ListByConversation(ctx, conversationID)
}

func (s *ConversationService) SubscribeConversations(ctx context.Context, userID string, onUpdate func([]domain.Conversation)) (*live.Subscription, error) {
	return s.live.SubscribeConversations(ctx, userID, onUpdate)
}

func (s *ConversationService) SubscribeMessages(ctx context.Context, conversationID, userID string, onUpdate func([]domain.Message)) (*live.Subscription, error) {
	if _, err := s.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.live.SubscribeMessages(ctx, conversationID, onUpdate)
}

var (
	_ ConversationUseCase = (*ConversationService)(nil)
	_ Live                = (*live.Hub)(nil)
)
