package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"trade-service/internal/models"
)

var ErrListingNotFound = errors.New("listing not found")

// ListingRepository abstracts listing persistence. The trade-lock columns
// are read here but written only by the trade repository.
type ListingRepository interface {
	CreateListing(ctx context.Context, listing models.Listing) (models.Listing, error)
	GetListing(ctx context.Context, listingID int) (models.Listing, error)
}

// ListingRepo is a sqlx implementation of ListingRepository.
type ListingRepo struct {
	db *sqlx.DB
}

// NewListingRepo constructs a ListingRepo.
func NewListingRepo(db *sqlx.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

const listingColumns = `id, user_id, item_name, quantity, payment_type, price, payment_items,
    description, status, active_trader_chat_id, active_trader_user_id, created_at, updated_at`

// CreateListing inserts a new listing owned by listing.UserID.
func (r *ListingRepo) CreateListing(ctx context.Context, listing models.Listing) (models.Listing, error) {
	var created models.Listing
	err := r.db.QueryRowxContext(ctx, `INSERT INTO listings
        (user_id, item_name, quantity, payment_type, price, payment_items, description)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING `+listingColumns,
		listing.UserID, listing.ItemName, listing.Quantity, listing.PaymentType,
		listing.Price, listing.PaymentItems, listing.Description).
		StructScan(&created)
	return created, err
}

// GetListing fetches a listing by id.
func (r *ListingRepo) GetListing(ctx context.Context, listingID int) (models.Listing, error) {
	var listing models.Listing
	err := r.db.GetContext(ctx, &listing, `SELECT `+listingColumns+` FROM listings WHERE id=$1`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Listing{}, ErrListingNotFound
	}
	return listing, err
}
