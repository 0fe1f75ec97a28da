package models

import "time"

// Payment types accepted on a listing.
const (
	PaymentCurrency = "currency"
	PaymentItems    = "items"
)

// Listing represents an offer to trade an item for currency or other items.
// The two active_trader columns are the trade-lock fields: at most one chat
// per listing ever holds the slot, and only the trade repository writes them.
type Listing struct {
	ID                 int       `db:"id" json:"id"`
	UserID             int       `db:"user_id" json:"user_id"`
	ItemName           string    `db:"item_name" json:"item_name"`
	Quantity           int       `db:"quantity" json:"quantity"`
	PaymentType        string    `db:"payment_type" json:"payment_type"`
	Price              *float64  `db:"price" json:"price,omitempty"`
	PaymentItems       *string   `db:"payment_items" json:"payment_items,omitempty"`
	Description        string    `db:"description" json:"description"`
	Status             string    `db:"status" json:"status"`
	ActiveTraderChatID *int      `db:"active_trader_chat_id" json:"active_trader_chat_id,omitempty"`
	ActiveTraderUserID *int      `db:"active_trader_user_id" json:"active_trader_user_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// HasActiveTrader reports whether some chat currently holds the trade lock.
func (l Listing) HasActiveTrader() bool {
	return l.ActiveTraderChatID != nil
}

// IsActiveTrader reports whether the given chat holds the trade lock.
func (l Listing) IsActiveTrader(chatID int) bool {
	return l.ActiveTraderChatID != nil && *l.ActiveTraderChatID == chatID
}
