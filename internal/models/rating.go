package models

import "time"

// Rating is one entry in the append-only rating log. Aggregates are
// computed on read; a user with no ratings averages to 0.
type Rating struct {
	ID          int       `db:"id" json:"id"`
	RatedUserID int       `db:"rated_user_id" json:"rated_user_id"`
	RaterUserID int       `db:"rater_user_id" json:"rater_user_id"`
	ListingID   *int      `db:"listing_id" json:"listing_id,omitempty"`
	Score       int       `db:"score" json:"score"`
	Comment     string    `db:"comment" json:"comment"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
