package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"trade-service/internal/models"
)

var (
	// ErrNotOwner: caller is a participant but not the listing owner.
	ErrNotOwner = errors.New("caller is not the listing owner")
	// ErrChatNotActive: the operation requires an ACTIVE chat.
	ErrChatNotActive = errors.New("chat is not active")
	// ErrChatCancelled: the chat is terminal.
	ErrChatCancelled = errors.New("chat is cancelled")
	// ErrTraderConflict: another chat already holds the active-trader slot.
	ErrTraderConflict = errors.New("another chat is already the active trader")
	// ErrNotActiveTrader: the chat does not hold the slot it tries to release.
	ErrNotActiveTrader = errors.New("chat is not the active trader")
)

// TradeRepository is the trade-negotiation state machine. Every mutating
// method runs as a single transaction holding the listing row lock, so the
// store's isolation is the only mutual-exclusion mechanism; callers
// broadcast strictly after these methods return.
type TradeRepository interface {
	SelectTrader(ctx context.Context, chatID int, callerID int) (models.TradeSelection, error)
	LockIn(ctx context.Context, chatID int, callerID int) (models.LockInResult, error)
	ReleaseTrader(ctx context.Context, chatID int, callerID int) (models.TradeRelease, error)
	LeaveChat(ctx context.Context, chatID int, callerID int) (models.LeaveResult, error)
	GroupedChats(ctx context.Context, userID int) (models.GroupedChats, error)
}

// TradeRepo is the sqlx implementation of TradeRepository. The user,
// message, and rating repositories serve the grouped-view enrichment;
// in-transaction reads go through the shared tx directly.
type TradeRepo struct {
	db       *sqlx.DB
	users    UserRepository
	messages MessageRepository
	ratings  RatingRepository
}

// NewTradeRepo constructs a TradeRepo.
func NewTradeRepo(db *sqlx.DB, users UserRepository, messages MessageRepository, ratings RatingRepository) *TradeRepo {
	return &TradeRepo{db: db, users: users, messages: messages, ratings: ratings}
}

// lockChatAndListing loads the chat, takes the listing row lock, and
// re-reads the chat under the lock. All chat/listing mutations happen while
// holding this lock, so the returned state cannot change mid-transaction.
func lockChatAndListing(ctx context.Context, tx *sqlx.Tx, chatID int) (models.Chat, models.Listing, error) {
	var chat models.Chat
	err := tx.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, models.Listing{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, models.Listing{}, err
	}

	var listing models.Listing
	err = tx.GetContext(ctx, &listing, `SELECT `+listingColumns+` FROM listings
        WHERE id=$1 FOR UPDATE`, chat.ListingID)
	if err != nil {
		return models.Chat{}, models.Listing{}, fmt.Errorf("lock listing %d: %w", chat.ListingID, err)
	}

	err = tx.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if err != nil {
		return models.Chat{}, models.Listing{}, err
	}
	return chat, listing, nil
}

// reassignActiveTrader is the single writer of the listing trade-lock
// fields. With a chat it claims the slot and demotes its ACTIVE siblings to
// OWNER_TRADING; with nil it clears the slot and reactivates every
// OWNER_TRADING chat on the listing. Returns the chats it transitioned.
func reassignActiveTrader(ctx context.Context, tx *sqlx.Tx, listingID int, active *models.Chat) ([]models.ChatRef, error) {
	if active != nil {
		_, err := tx.ExecContext(ctx, `UPDATE listings
            SET active_trader_chat_id=$1, active_trader_user_id=$2, updated_at=NOW()
            WHERE id=$3`, active.ID, active.Participant2ID, listingID)
		if err != nil {
			return nil, err
		}
		var demoted []models.ChatRef
		err = tx.SelectContext(ctx, &demoted, `UPDATE chats
            SET status=$1, updated_at=NOW()
            WHERE listing_id=$2 AND id<>$3 AND status=$4
            RETURNING id, participant2_id`,
			models.StatusOwnerTrading, listingID, active.ID, models.StatusActive)
		return demoted, err
	}

	_, err := tx.ExecContext(ctx, `UPDATE listings
        SET active_trader_chat_id=NULL, active_trader_user_id=NULL, updated_at=NOW()
        WHERE id=$1`, listingID)
	if err != nil {
		return nil, err
	}
	var reactivated []models.ChatRef
	err = tx.SelectContext(ctx, &reactivated, `UPDATE chats
        SET status=$1, updated_at=NOW()
        WHERE listing_id=$2 AND status=$3
        RETURNING id, participant2_id`,
		models.StatusActive, listingID, models.StatusOwnerTrading)
	return reactivated, err
}

func cancelChat(ctx context.Context, tx *sqlx.Tx, chatID int) error {
	_, err := tx.ExecContext(ctx, `UPDATE chats SET status=$1, updated_at=NOW() WHERE id=$2`,
		models.StatusCancelled, chatID)
	return err
}

// SelectTrader designates the chat as the listing's active trade.
func (r *TradeRepo) SelectTrader(ctx context.Context, chatID int, callerID int) (models.TradeSelection, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.TradeSelection{}, err
	}
	defer tx.Rollback()

	chat, listing, err := lockChatAndListing(ctx, tx, chatID)
	if err != nil {
		return models.TradeSelection{}, err
	}
	alreadySelected, err := decideSelect(chat, listing, callerID)
	if err != nil {
		return models.TradeSelection{}, err
	}
	if alreadySelected {
		return models.TradeSelection{
			ListingID:       listing.ID,
			ChatID:          chat.ID,
			SelectedUserID:  chat.Participant2ID,
			AlreadySelected: true,
		}, nil
	}

	demoted, err := reassignActiveTrader(ctx, tx, listing.ID, &chat)
	if err != nil {
		return models.TradeSelection{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.TradeSelection{}, err
	}

	return models.TradeSelection{
		ListingID:      listing.ID,
		ChatID:         chat.ID,
		SelectedUserID: chat.Participant2ID,
		Demoted:        demoted,
	}, nil
}

// LockIn records the caller's commitment. When the owner locks in on an
// ACTIVE chat while the slot is free, the lock-in doubles as the selection
// signal and claims the slot in the same transaction.
func (r *TradeRepo) LockIn(ctx context.Context, chatID int, callerID int) (models.LockInResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.LockInResult{}, err
	}
	defer tx.Rollback()

	chat, listing, err := lockChatAndListing(ctx, tx, chatID)
	if err != nil {
		return models.LockInResult{}, err
	}
	plan, err := decideLockIn(chat, listing, callerID)
	if err != nil {
		return models.LockInResult{}, err
	}

	err = tx.QueryRowxContext(ctx, `UPDATE chats SET `+plan.column+`=TRUE, updated_at=NOW()
        WHERE id=$1 RETURNING `+chatColumns, chat.ID).StructScan(&chat)
	if err != nil {
		return models.LockInResult{}, err
	}

	var selection *models.TradeSelection
	if plan.autoSelect {
		demoted, err := reassignActiveTrader(ctx, tx, listing.ID, &chat)
		if err != nil {
			return models.LockInResult{}, err
		}
		selection = &models.TradeSelection{
			ListingID:      listing.ID,
			ChatID:         chat.ID,
			SelectedUserID: chat.Participant2ID,
			Demoted:        demoted,
		}
	}

	p1, p2, err := chatParticipants(ctx, tx, chat)
	if err != nil {
		return models.LockInResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.LockInResult{}, err
	}

	selected := listing.IsActiveTrader(chat.ID) || selection != nil
	view := buildChatView(chat, selected, p1, p2)
	return models.LockInResult{Chat: view, Selection: selection}, nil
}

// ReleaseTrader releases the current active trade: the released chat is
// cancelled and every queued chat on the listing returns to ACTIVE.
func (r *TradeRepo) ReleaseTrader(ctx context.Context, chatID int, callerID int) (models.TradeRelease, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.TradeRelease{}, err
	}
	defer tx.Rollback()

	chat, listing, err := lockChatAndListing(ctx, tx, chatID)
	if err != nil {
		return models.TradeRelease{}, err
	}
	if err := decideRelease(chat, listing, callerID); err != nil {
		return models.TradeRelease{}, err
	}

	release, err := releaseLocked(ctx, tx, listing.ID, chat.ID)
	if err != nil {
		return models.TradeRelease{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.TradeRelease{}, err
	}
	return release, nil
}

// LeaveChat cancels the caller's chat. Leaving the active trade performs
// the full release effect in the same transaction.
func (r *TradeRepo) LeaveChat(ctx context.Context, chatID int, callerID int) (models.LeaveResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.LeaveResult{}, err
	}
	defer tx.Rollback()

	chat, listing, err := lockChatAndListing(ctx, tx, chatID)
	if err != nil {
		return models.LeaveResult{}, err
	}
	effect, err := decideLeave(chat, listing, callerID)
	if err != nil {
		return models.LeaveResult{}, err
	}
	if effect == leaveNoop {
		return models.LeaveResult{ChatID: chat.ID, ListingID: listing.ID, AlreadyCancelled: true}, nil
	}

	result := models.LeaveResult{ChatID: chat.ID, ListingID: listing.ID}
	if effect == leaveRelease {
		release, err := releaseLocked(ctx, tx, listing.ID, chat.ID)
		if err != nil {
			return models.LeaveResult{}, err
		}
		result.Release = &release
	} else if err := cancelChat(ctx, tx, chat.ID); err != nil {
		return models.LeaveResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.LeaveResult{}, err
	}
	return result, nil
}

// releaseLocked runs the shared release effect under an already-held
// listing lock: cancel the released chat, clear the slot, reactivate the
// whole queue.
func releaseLocked(ctx context.Context, tx *sqlx.Tx, listingID int, chatID int) (models.TradeRelease, error) {
	if err := cancelChat(ctx, tx, chatID); err != nil {
		return models.TradeRelease{}, err
	}
	reactivated, err := reassignActiveTrader(ctx, tx, listingID, nil)
	if err != nil {
		return models.TradeRelease{}, err
	}
	return models.TradeRelease{
		ListingID:      listingID,
		ReleasedChatID: chatID,
		Reactivated:    reactivated,
	}, nil
}

// GroupedChats builds the two read-only projections for a user: their own
// listings with live chats, and the chats where they are the counterparty.
// Enrichment failures degrade to zero values; the data is advisory.
func (r *TradeRepo) GroupedChats(ctx context.Context, userID int) (models.GroupedChats, error) {
	grouped := models.GroupedChats{
		OwnedListings: []models.ListingGroup{},
		IncomingChats: []models.ChatOverview{},
	}

	var listings []models.Listing
	err := r.db.SelectContext(ctx, &listings, `SELECT `+listingColumns+` FROM listings l
        WHERE l.user_id=$1 AND EXISTS (
            SELECT 1 FROM chats c WHERE c.listing_id=l.id AND c.status<>$2
        ) ORDER BY l.created_at DESC`, userID, models.StatusCancelled)
	if err != nil {
		return grouped, err
	}

	for _, listing := range listings {
		var chats []models.Chat
		err := r.db.SelectContext(ctx, &chats, `SELECT `+chatColumns+` FROM chats
            WHERE listing_id=$1 AND status<>$2 ORDER BY created_at ASC`,
			listing.ID, models.StatusCancelled)
		if err != nil {
			return grouped, err
		}
		group := models.ListingGroup{Listing: listing, Chats: []models.ChatOverview{}}
		for _, chat := range chats {
			group.Chats = append(group.Chats, r.enrichChat(ctx, chat, listing, chat.Participant2ID))
		}
		grouped.OwnedListings = append(grouped.OwnedListings, group)
	}

	var incoming []models.Chat
	err = r.db.SelectContext(ctx, &incoming, `SELECT c.id, c.listing_id, c.participant1_id,
        c.participant2_id, c.participant1_locked_in, c.participant2_locked_in,
        c.status, c.created_at, c.updated_at
        FROM chats c
        WHERE c.participant2_id=$1 AND c.status<>$2
        ORDER BY c.created_at DESC`, userID, models.StatusCancelled)
	if err != nil {
		return grouped, err
	}

	for _, chat := range incoming {
		var listing models.Listing
		if err := r.db.GetContext(ctx, &listing, `SELECT `+listingColumns+` FROM listings WHERE id=$1`, chat.ListingID); err != nil {
			log.Printf("grouped view: load listing %d: %v", chat.ListingID, err)
			continue
		}
		grouped.IncomingChats = append(grouped.IncomingChats, r.enrichChat(ctx, chat, listing, chat.Participant1ID))
	}

	return grouped, nil
}

// enrichChat attaches profiles, the other party's rating aggregate, and
// the last message preview. ratedUserID is the party the viewer trades
// against in this chat.
func (r *TradeRepo) enrichChat(ctx context.Context, chat models.Chat, listing models.Listing, ratedUserID int) models.ChatOverview {
	overview := models.ChatOverview{}

	p1, err := r.users.GetUser(ctx, chat.Participant1ID)
	if err != nil {
		log.Printf("grouped view: load user %d: %v", chat.Participant1ID, err)
	}
	p2, err := r.users.GetUser(ctx, chat.Participant2ID)
	if err != nil {
		log.Printf("grouped view: load user %d: %v", chat.Participant2ID, err)
	}
	overview.ChatView = buildChatView(chat, listing.IsActiveTrader(chat.ID), p1, p2)

	rating, err := r.ratings.AverageForUser(ctx, ratedUserID)
	if err != nil {
		log.Printf("grouped view: rating aggregate for user %d: %v", ratedUserID, err)
	}
	overview.CounterpartyRating = rating

	preview, err := r.messages.LastMessage(ctx, chat.ID)
	if err != nil {
		log.Printf("grouped view: last message for chat %d: %v", chat.ID, err)
	}
	overview.LastMessage = preview

	return overview
}

func chatParticipants(ctx context.Context, tx *sqlx.Tx, chat models.Chat) (models.User, models.User, error) {
	var p1, p2 models.User
	if err := tx.GetContext(ctx, &p1, `SELECT `+userColumns+` FROM users WHERE id=$1`, chat.Participant1ID); err != nil {
		return models.User{}, models.User{}, err
	}
	if err := tx.GetContext(ctx, &p2, `SELECT `+userColumns+` FROM users WHERE id=$1`, chat.Participant2ID); err != nil {
		return models.User{}, models.User{}, err
	}
	return p1, p2, nil
}

// buildChatView assembles the gated API view of a chat.
func buildChatView(chat models.Chat, isSelectedTrader bool, p1, p2 models.User) models.ChatView {
	view := models.ChatView{
		ID:               chat.ID,
		ListingID:        chat.ListingID,
		Status:           chat.Status,
		BothLockedIn:     chat.BothLockedIn(),
		IsSelectedTrader: isSelectedTrader,
		Participant1:     models.NewParticipant(p1, chat.Participant1LockedIn),
		Participant2:     models.NewParticipant(p2, chat.Participant2LockedIn),
		CreatedAt:        chat.CreatedAt,
		UpdatedAt:        chat.UpdatedAt,
	}
	return view.GateContacts()
}
