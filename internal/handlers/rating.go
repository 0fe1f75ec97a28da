package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-service/internal/models"
	"trade-service/internal/repositories"
)

// RatingHandler appends entries to the rating log.
type RatingHandler struct {
	ratingRepo repositories.RatingRepository
}

// NewRatingHandler builds a RatingHandler.
func NewRatingHandler(ratingRepo repositories.RatingRepository) *RatingHandler {
	return &RatingHandler{ratingRepo: ratingRepo}
}

// CreateRating records a rating for a trade counterparty.
func (h *RatingHandler) CreateRating(c *gin.Context) {
	var req struct {
		RatedUserID int    `json:"rated_user_id" binding:"required"`
		ListingID   *int   `json:"listing_id"`
		Score       int    `json:"score" binding:"required,min=1,max=5"`
		Comment     string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if req.RatedUserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot rate yourself"})
		return
	}

	rating, err := h.ratingRepo.CreateRating(c.Request.Context(), models.Rating{
		RatedUserID: req.RatedUserID,
		RaterUserID: userID,
		ListingID:   req.ListingID,
		Score:       req.Score,
		Comment:     req.Comment,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store rating"})
		return
	}

	c.JSON(http.StatusCreated, rating)
}
