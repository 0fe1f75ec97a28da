package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"trade-service/internal/models"
)

// RatingRepository is the append-only rating log.
type RatingRepository interface {
	CreateRating(ctx context.Context, rating models.Rating) (models.Rating, error)
	AverageForUser(ctx context.Context, userID int) (float64, error)
}

// RatingRepo is a sqlx implementation of RatingRepository.
type RatingRepo struct {
	db *sqlx.DB
}

// NewRatingRepo constructs a RatingRepo.
func NewRatingRepo(db *sqlx.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

// CreateRating appends a rating entry.
func (r *RatingRepo) CreateRating(ctx context.Context, rating models.Rating) (models.Rating, error) {
	var created models.Rating
	err := r.db.QueryRowxContext(ctx, `INSERT INTO ratings
        (rated_user_id, rater_user_id, listing_id, score, comment)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, rated_user_id, rater_user_id, listing_id, score, comment, created_at`,
		rating.RatedUserID, rating.RaterUserID, rating.ListingID, rating.Score, rating.Comment).
		StructScan(&created)
	return created, err
}

// AverageForUser returns the mean score for a user, 0 when unrated.
func (r *RatingRepo) AverageForUser(ctx context.Context, userID int) (float64, error) {
	var avg float64
	err := r.db.GetContext(ctx, &avg, `SELECT COALESCE(AVG(score), 0)
        FROM ratings WHERE rated_user_id=$1`, userID)
	return avg, err
}
