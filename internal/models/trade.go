package models

import "time"

// ChatView is the API payload for a chat, carried both in HTTP responses
// and in chat-updated broadcasts. GateContacts must be applied before it
// leaves the process.
type ChatView struct {
	ID               int         `json:"id"`
	ListingID        int         `json:"listing_id"`
	Status           ChatStatus  `json:"status"`
	BothLockedIn     bool        `json:"both_locked_in"`
	IsSelectedTrader bool        `json:"is_selected_trader"`
	Participant1     Participant `json:"participant1"`
	Participant2     Participant `json:"participant2"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// GateContacts enforces the privacy gate: contact fields are disclosed
// only once both participants have locked in.
func (v ChatView) GateContacts() ChatView {
	if v.BothLockedIn {
		return v
	}
	v.Participant1 = v.Participant1.WithoutContacts()
	v.Participant2 = v.Participant2.WithoutContacts()
	return v
}

// TradeSelection is the outcome of assigning the active-trader slot.
type TradeSelection struct {
	ListingID       int
	ChatID          int
	SelectedUserID  int
	Demoted         []ChatRef
	AlreadySelected bool
}

// LockInResult is the outcome of a lock-in, including the auto-selection
// side effect when the owner's lock-in doubled as the selection signal.
type LockInResult struct {
	Chat      ChatView
	Selection *TradeSelection
}

// TradeRelease is the outcome of releasing the active trader.
type TradeRelease struct {
	ListingID      int
	ReleasedChatID int
	Reactivated    []ChatRef
}

// LeaveResult is the outcome of a participant leaving a chat. Release is
// set when the leaving chat held the active-trader slot.
type LeaveResult struct {
	ChatID           int
	ListingID        int
	AlreadyCancelled bool
	Release          *TradeRelease
}

// ChatOverview is one enriched chat row in the grouped view.
type ChatOverview struct {
	ChatView
	CounterpartyRating float64         `json:"counterparty_rating"`
	LastMessage        *MessagePreview `json:"last_message,omitempty"`
}

// ListingGroup is an owned listing together with its live chats.
type ListingGroup struct {
	Listing Listing        `json:"listing"`
	Chats   []ChatOverview `json:"chats"`
}

// GroupedChats is the two-projection read model for a user's trades.
type GroupedChats struct {
	OwnedListings []ListingGroup `json:"owned_listings"`
	IncomingChats []ChatOverview `json:"incoming_chats"`
}
