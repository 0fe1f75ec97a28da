package models

import "time"

// User is the locally stored profile for an account provisioned by the
// external auth provider. EmbarkID and DiscordUsername are the contact
// fields gated behind mutual lock-in.
type User struct {
	ID              int       `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	AvatarURL       *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	EmbarkID        *string   `db:"embark_id" json:"embark_id,omitempty"`
	DiscordUsername *string   `db:"discord_username" json:"discord_username,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Participant is the API view of one chat side.
type Participant struct {
	UserID          int     `json:"user_id"`
	Username        string  `json:"username"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	EmbarkID        *string `json:"embark_id"`
	DiscordUsername *string `json:"discord_username"`
	LockedIn        bool    `json:"locked_in"`
}

// NewParticipant combines a profile with the chat-side lock-in flag.
func NewParticipant(u User, lockedIn bool) Participant {
	return Participant{
		UserID:          u.ID,
		Username:        u.Username,
		AvatarURL:       u.AvatarURL,
		EmbarkID:        u.EmbarkID,
		DiscordUsername: u.DiscordUsername,
		LockedIn:        lockedIn,
	}
}

// WithoutContacts strips the gated contact fields.
func (p Participant) WithoutContacts() Participant {
	p.EmbarkID = nil
	p.DiscordUsername = nil
	return p
}
