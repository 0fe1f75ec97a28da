package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ChatStatus is the lifecycle state of a negotiation chat. The set is
// closed; scanning an unknown value out of the store is a hard error.
type ChatStatus string

const (
	StatusActive       ChatStatus = "ACTIVE"
	StatusOwnerTrading ChatStatus = "OWNER_TRADING"
	StatusCancelled    ChatStatus = "CANCELLED"
)

// ParseChatStatus validates a raw status string.
func ParseChatStatus(s string) (ChatStatus, error) {
	switch ChatStatus(s) {
	case StatusActive, StatusOwnerTrading, StatusCancelled:
		return ChatStatus(s), nil
	}
	return "", fmt.Errorf("unknown chat status %q", s)
}

// Scan implements sql.Scanner.
func (s *ChatStatus) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ChatStatus", value)
	}
	parsed, err := ParseChatStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s ChatStatus) Value() (driver.Value, error) {
	if _, err := ParseChatStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

// Terminal reports whether the status admits no further transitions.
func (s ChatStatus) Terminal() bool {
	return s == StatusCancelled
}

// Chat represents a negotiation thread between a listing owner and one
// counterparty. Participant1 is always the listing owner, participant2 the
// counterparty; the pair is immutable after creation.
type Chat struct {
	ID                   int        `db:"id" json:"id"`
	ListingID            int        `db:"listing_id" json:"listing_id"`
	Participant1ID       int        `db:"participant1_id" json:"participant1_id"`
	Participant2ID       int        `db:"participant2_id" json:"participant2_id"`
	Participant1LockedIn bool       `db:"participant1_locked_in" json:"participant1_locked_in"`
	Participant2LockedIn bool       `db:"participant2_locked_in" json:"participant2_locked_in"`
	Status               ChatStatus `db:"status" json:"status"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user is one of the chat's two sides.
func (c Chat) HasParticipant(userID int) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// BothLockedIn reports mutual commitment; contact fields stay redacted
// until this is true.
func (c Chat) BothLockedIn() bool {
	return c.Participant1LockedIn && c.Participant2LockedIn
}

// ChatSide is one participant's view of the lock-in state.
type ChatSide struct {
	UserID   int
	LockedIn bool
}

// Sides resolves the owner/counterparty pair once, instead of repeating
// participant-equality checks at every call site.
func (c Chat) Sides(ownerID int) (owner ChatSide, counterparty ChatSide, err error) {
	switch ownerID {
	case c.Participant1ID:
		return ChatSide{c.Participant1ID, c.Participant1LockedIn},
			ChatSide{c.Participant2ID, c.Participant2LockedIn}, nil
	case c.Participant2ID:
		return ChatSide{c.Participant2ID, c.Participant2LockedIn},
			ChatSide{c.Participant1ID, c.Participant1LockedIn}, nil
	}
	return ChatSide{}, ChatSide{}, fmt.Errorf("chat %d has no participant %d", c.ID, ownerID)
}

// ChatRef is the minimal handle the broadcast fan-out needs for a chat
// whose status just changed.
type ChatRef struct {
	ID             int `db:"id" json:"id"`
	CounterpartyID int `db:"participant2_id" json:"counterparty_id"`
}
