package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"trade-service/internal/models"
)

var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrOwnChatListing = errors.New("cannot open a chat with your own listing")
)

// ChatRepository abstracts chat persistence outside the transactional
// trade state machine.
type ChatRepository interface {
	StartChat(ctx context.Context, listingID int, counterpartyID int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID int, userID int) (bool, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `id, listing_id, participant1_id, participant2_id,
    participant1_locked_in, participant2_locked_in, status, created_at, updated_at`

// StartChat opens a negotiation chat between the listing owner and the
// counterparty, or returns the existing one for the same pair.
func (r *ChatRepo) StartChat(ctx context.Context, listingID int, counterpartyID int) (models.Chat, error) {
	var ownerID int
	err := r.db.GetContext(ctx, &ownerID, `SELECT user_id FROM listings WHERE id=$1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrListingNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}
	if ownerID == counterpartyID {
		return models.Chat{}, ErrOwnChatListing
	}

	var chat models.Chat
	err = r.db.QueryRowxContext(ctx, `INSERT INTO chats (listing_id, participant1_id, participant2_id)
        VALUES ($1, $2, $3) RETURNING `+chatColumns, listingID, ownerID, counterpartyID).
		StructScan(&chat)
	if err != nil {
		var pqErr *pq.Error
		// unique_violation: a chat for this pair already exists, reuse it
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats
                WHERE listing_id=$1 AND participant2_id=$2`, listingID, counterpartyID)
		}
	}
	return chat, err
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID int, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chats
        WHERE id=$1 AND (participant1_id=$2 OR participant2_id=$2))`, chatID, userID)
	return exists, err
}
