package repository

import (
	"context"
	"time"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// FindByParticipantAndBooking narrows by a single participant only; the
	// caller filters for the exact pair.
	FindByParticipantAndBooking(ctx context.Context, participantID, bookingID string) ([]domain.Conversation, error)
	ListByParticipant(ctx context.Context, participantID string) ([]domain.Conversation, error)
	// RecordMessage replaces lastMessage and increments unreadCount by one.
	RecordMessage(ctx context.Context, id string, last domain.LastMessage) error
	ResetUnread(ctx context.Context, id string) error
}

type PGConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) ConversationRepository {
	return &PGConversationRepository{db: db}
}

const conversationColumns = `id, participants, booking_id, last_message_content, last_message_at, last_message_sender, unread_count, created_at`

func scanConversation(row scanner) (*domain.Conversation, error) {
	var (
		c       domain.Conversation
		content *string
		at      *time.Time
		sender  *string
	)
	if err := row.Scan(&c.ID, &c.Participants, &c.BookingID, &content, &at, &sender, &c.UnreadCount, &c.CreatedAt); err != nil {
		return nil, err
	}
	if content != nil && at != nil && sender != nil {
		c.LastMessage = &domain.LastMessage{Content: *content, Timestamp: *at, SenderID: *sender}
	}
	return &c, nil
}

func (r *PGConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	var (
		content *string
		at      *time.Time
		sender  *string
	)
	if c.LastMessage != nil {
		content, at, sender = &c.LastMessage.Content, &c.LastMessage.Timestamp, &c.LastMessage.SenderID
	}
	_, err := r.db.Exec(ctx, `INSERT INTO conversations
		(id, participants, booking_id, last_message_content, last_message_at, last_message_sender, unread_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Participants, c.BookingID, content, at, sender, c.UnreadCount, c.CreatedAt)
	return err
}

func (r *PGConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *PGConversationRepository) FindByParticipantAndBooking(ctx context.Context, participantID, bookingID string) ([]domain.Conversation, error) {
	return r.list(ctx, `SELECT `+conversationColumns+` FROM conversations
		WHERE participants @> ARRAY[$1::text] AND booking_id=$2
		ORDER BY created_at`, participantID, bookingID)
}

func (r *PGConversationRepository) ListByParticipant(ctx context.Context, participantID string) ([]domain.Conversation, error) {
	return r.list(ctx, `SELECT `+conversationColumns+` FROM conversations
		WHERE participants @> ARRAY[$1::text]
		ORDER BY COALESCE(last_message_at, created_at) DESC`, participantID)
}

func (r *PGConversationRepository) RecordMessage(ctx context.Context, id string, last domain.LastMessage) error {
	cmd, err := r.db.Exec(ctx, `UPDATE conversations
		SET last_message_content=$2, last_message_at=$3, last_message_sender=$4, unread_count=unread_count+1
		WHERE id=$1`, id, last.Content, last.Timestamp, last.SenderID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGConversationRepository) ResetUnread(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE conversations SET unread_count=0 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGConversationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Conversation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]domain.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *c)
	}
	return conversations, rows.Err()
}

var _ ConversationRepository = (*PGConversationRepository)(nil)
