package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trade-service/internal/models"
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	CreateChatMessage(ctx context.Context, chatID int, senderID int, content string) (models.Message, error)
	ListChatMessages(ctx context.Context, chatID int) ([]models.Message, error)
	LastMessage(ctx context.Context, chatID int) (*models.MessagePreview, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateChatMessage appends a message to a chat.
func (r *MessageRepo) CreateChatMessage(ctx context.Context, chatID int, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (chat_id, sender_id, content)
        VALUES ($1, $2, $3) RETURNING id, chat_id, sender_id, content, created_at`,
		chatID, senderID, content).StructScan(&msg)
	return msg, err
}

// ListChatMessages returns a chat's messages in creation order.
func (r *MessageRepo) ListChatMessages(ctx context.Context, chatID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, chat_id, sender_id, content, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at ASC`, chatID)
	return msgs, err
}

// LastMessage returns the newest message of a chat, or nil when the chat
// has no messages yet.
func (r *MessageRepo) LastMessage(ctx context.Context, chatID int) (*models.MessagePreview, error) {
	var preview models.MessagePreview
	err := r.db.GetContext(ctx, &preview, `SELECT sender_id, content, created_at
        FROM messages WHERE chat_id=$1 ORDER BY created_at DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &preview, nil
}
