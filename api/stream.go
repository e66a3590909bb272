package api

import (
	"net/http"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/ParkPal-co/parking-app-sub000/internal/live"
	"github.com/gin-gonic/gin"
)

// latest is a one-slot mailbox. A newer snapshot replaces one the client
// has not been sent yet.
type latest[T any] struct {
	ch chan T
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{ch: make(chan T, 1)}
}

// put is only called from the subscription's delivery goroutine.
func (l *latest[T]) put(v T) {
	select {
	case <-l.ch:
	default:
	}
	l.ch <- v
}

func (h *ConversationHandler) streamConversations(c *gin.Context) {
	box := newLatest[[]domain.Conversation]()
	sub, err := h.conversations.SubscribeConversations(c.Request.Context(), currentUser(c), box.put)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	serveEvents(c, sub, "conversations", box)
}

func (h *ConversationHandler) streamMessages(c *gin.Context) {
	box := newLatest[[]domain.Message]()
	sub, err := h.conversations.SubscribeMessages(c.Request.Context(), c.Param("id"), currentUser(c), box.put)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	serveEvents(c, sub, "messages", box)
}

// serveEvents writes every snapshot as a server-sent event until the
// client goes away. The subscription is cancelled on return.
func serveEvents[T any](c *gin.Context, sub *live.Subscription, event string, box *latest[T]) {
	defer sub.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case v := <-box.ch:
			c.SSEvent(event, v)
			c.Writer.Flush()
		}
	}
}
