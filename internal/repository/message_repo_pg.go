package repository

import (
	"context"

	"github.com/ParkPal-co/parking-app-sub000/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListUnreadFor(ctx context.Context, conversationID, receiverID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, id string) error
}

type PGMessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) MessageRepository {
	return &PGMessageRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_id, receiver_id, content, sent_at, read, booking_id`

func (r *PGMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx, `INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Content, m.Timestamp, m.Read, m.BookingID)
	return err
}

func (r *PGMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	return r.list(ctx, `SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY sent_at`, conversationID)
}

func (r *PGMessageRepository) ListUnreadFor(ctx context.Context, conversationID, receiverID string) ([]domain.Message, error) {
	return r.list(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE conversation_id=$1 AND receiver_id=$2 AND NOT read
		ORDER BY sent_at`, conversationID, receiverID)
}

func (r *PGMessageRepository) MarkRead(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE messages SET read=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGMessageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp, &m.Read, &m.BookingID); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

var _ MessageRepository = (*PGMessageRepository)(nil)
