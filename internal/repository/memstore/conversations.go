package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/repository"
)

type conversationRepo struct{ s *Store }

func (r *conversationRepo) Create(_ context.Context, c *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.conversations[c.ID] = cloneConversation(*c)
	return nil
}

func (r *conversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneConversation(c)
	return &out, nil
}

func (r *conversationRepo) FindByParticipantAndBooking(_ context.Context, participantID, bookingID string) ([]domain.Conversation, error) {
	out := r.filter(func(c domain.Conversation) bool {
		return c.BookingID == bookingID && c.HasParticipant(participantID)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *conversationRepo) ListByParticipant(_ context.Context, participantID string) ([]domain.Conversation, error) {
	out := r.filter(func(c domain.Conversation) bool { return c.HasParticipant(participantID) })
	sort.Slice(out, func(i, j int) bool { return activity(out[i]).After(activity(out[j])) })
	return out, nil
}

func (r *conversationRepo) RecordMessage(_ context.Context, id string, last domain.LastMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.LastMessage = &last
	c.UnreadCount++
	r.s.conversations[id] = c
	return nil
}

func (r *conversationRepo) ResetUnread(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.UnreadCount = 0
	r.s.conversations[id] = c
	return nil
}

func (r *conversationRepo) filter(keep func(domain.Conversation) bool) []domain.Conversation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Conversation, 0)
	for _, c := range r.s.conversations {
		if keep(c) {
			out = append(out, cloneConversation(c))
		}
	}
	return out
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.messages = append(r.s.messages, *m)
	return nil
}

func (r *messageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	return r.filter(func(m domain.Message) bool { return m.ConversationID == conversationID }), nil
}

func (r *messageRepo) ListUnreadFor(_ context.Context, conversationID, receiverID string) ([]domain.Message, error) {
	return r.filter(func(m domain.Message) bool {
		return m.ConversationID == conversationID && m.ReceiverID == receiverID && !m.Read
	}), nil
}

func (r *messageRepo) MarkRead(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.messages {
		if r.s.messages[i].ID == id {
			r.s.messages[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

// filter returns matches in insertion order, stable on equal timestamps.
func (r *messageRepo) filter(keep func(domain.Message) bool) []domain.Message {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Message, 0)
	for _, m := range r.s.messages {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func cloneConversation(c domain.Conversation) domain.Conversation {
	c.Participants = append([]string(nil), c.Participants...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		c.LastMessage = &last
	}
	return c
}

func activity(c domain.Conversation) time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.Timestamp
	}
	return c.CreatedAt
}

var (
	_ repository.ConversationRepository = (*conversationRepo)(nil)
	_ repository.MessageRepository      = (*messageRepo)(nil)
)
