// Package live pushes conversation and message snapshots to subscribers.
// Writers announce a change on a broker channel; every subscriber on that
// channel reloads its view from the store and receives the full list.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/lib/logger/sl"
)

// Broker fans change notices out to subscribers. Redis pub/sub in
// production, MemoryBroker in tests and local runs.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Stream, error)
}

// Stream is one broker subscription. Messages is closed when the underlying
// connection drops or the stream is closed.
type Stream interface {
	Messages() <-chan []byte
	Close() error
}

type ConversationLister interface {
	ListByParticipant(ctx context.Context, participantID string) ([]domain.Conversation, error)
}

type MessageLister interface {
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

type Hub struct {
	broker        Broker
	conversations ConversationLister
	messages      MessageLister
	log           *slog.Logger
	loadTimeout   time.Duration
	minBackoff    time.Duration
	maxBackoff    time.Duration
}

type HubOption func(*Hub)

func WithLoadTimeout(d time.Duration) HubOption {
	return func(h *Hub) { h.loadTimeout = d }
}

func WithBackoff(min, max time.Duration) HubOption {
	return func(h *Hub) {
		h.minBackoff = min
		h.maxBackoff = max
	}
}

func NewHub(broker Broker, conversations ConversationLister, messages MessageLister, log *slog.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		broker:        broker,
		conversations: conversations,
		messages:      messages,
		log:           log,
		loadTimeout:   5 * time.Second,
		minBackoff:    100 * time.Millisecond,
		maxBackoff:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func userChannel(userID string) string {
	return "live:user:" + userID + ":conversations"
}

func conversationChannel(conversationID string) string {
	return "live:conversation:" + conversationID + ":messages"
}

// ConversationsChanged tells every subscriber of the given users to reload
// their conversation lists. Failures are logged; the write that triggered
// the notice has already happened.
func (h *Hub) ConversationsChanged(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		h.publish(ctx, userChannel(id))
	}
}

func (h *Hub) MessagesChanged(ctx context.Context, conversationID string) {
	h.publish(ctx, conversationChannel(conversationID))
}

func (h *Hub) publish(ctx context.Context, channel string) {
	if err := h.broker.Publish(ctx, channel, []byte(channel)); err != nil {
		h.log.Warn("failed to publish change notice",
			slog.String("op", "live.Hub.publish"), slog.String("channel", channel), sl.Err(err))
	}
}

// SubscribeConversations delivers userID's conversations now and after
// every change until the subscription is cancelled or ctx ends.
func (h *Hub) SubscribeConversations(ctx context.Context, userID string, onUpdate func([]domain.Conversation)) (*Subscription, error) {
	return h.subscribe(ctx, userChannel(userID), func(ctx context.Context) error {
		conversations, err := h.conversations.ListByParticipant(ctx, userID)
		if err != nil {
			return err
		}
		onUpdate(conversations)
		return nil
	})
}

func (h *Hub) SubscribeMessages(ctx context.Context, conversationID string, onUpdate func([]domain.Message)) (*Subscription, error) {
	return h.subscribe(ctx, conversationChannel(conversationID), func(ctx context.Context) error {
		messages, err := h.messages.ListByConversation(ctx, conversationID)
		if err != nil {
			return err
		}
		onUpdate(messages)
		return nil
	})
}

func (h *Hub) subscribe(ctx context.Context, channel string, deliver func(context.Context) error) (*Subscription, error) {
	const op = "live.Hub.subscribe"

	// Subscribe before the first load so no change between them is lost.
	stream, err := h.broker.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	log := h.log.With(slog.String("op", op), slog.String("channel", channel))

	go func() {
		defer close(sub.done)
		h.run(runCtx, log, channel, stream, deliver)
	}()
	return sub, nil
}

func (h *Hub) run(ctx context.Context, log *slog.Logger, channel string, stream Stream, deliver func(context.Context) error) {
	load := func() {
		if ctx.Err() != nil {
			return
		}
		loadCtx, cancel := context.WithTimeout(ctx, h.loadTimeout)
		defer cancel()
		if err := deliver(loadCtx); err != nil && ctx.Err() == nil {
			log.Error("failed to load snapshot", sl.Err(err))
		}
	}

	load()
	backoff := h.minBackoff
	for {
		dropped := h.drain(ctx, stream, load)
		_ = stream.Close()
		if !dropped {
			return
		}

		log.Warn("stream dropped, resubscribing")
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			next, err := h.broker.Subscribe(ctx, channel)
			if err == nil {
				stream = next
				backoff = h.minBackoff
				break
			}
			log.Warn("resubscribe failed", sl.Err(err), slog.Duration("backoff", backoff))
			backoff = min(backoff*2, h.maxBackoff)
		}
		// Changes may have been missed while disconnected.
		load()
	}
}

// drain delivers a fresh snapshot per notice. It reports true when the
// stream closed underneath a live subscription.
func (h *Hub) drain(ctx context.Context, stream Stream, load func()) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-stream.Messages():
			if !ok {
				return ctx.Err() == nil
			}
			load()
		}
	}
}

// Subscription is the cancel handle of a live subscription.
type Subscription struct {
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Cancel stops delivery and releases the broker subscription. It is safe to
// call more than once and from inside the update callback.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Done is closed once the subscription has released its stream.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
