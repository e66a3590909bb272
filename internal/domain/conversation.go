package domain

import "time"

type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SenderID  string    `json:"sender_id"`
}

// Conversation is the host/renter channel of one booking. Participants
// always holds exactly two user ids.
type Conversation struct {
	ID           string       `json:"id"`
	Participants []string     `json:"participants"`
	BookingID    string       `json:"booking_id"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// IsBetween reports whether the participants are exactly a and b, in any order.
func (c *Conversation) IsBetween(a, b string) bool {
	if len(c.Participants) != 2 {
		return false
	}
	p0, p1 := c.Participants[0], c.Participants[1]
	return (p0 == a && p1 == b) || (p0 == b && p1 == a)
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
	BookingID      *string   `json:"booking_id,omitempty"`
}
