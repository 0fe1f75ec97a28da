package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trade-service/internal/models"
	"trade-service/internal/repositories"
)

// ListingHandler covers the minimal listing endpoints the negotiation flow
// needs; catalog management lives elsewhere.
type ListingHandler struct {
	listingRepo repositories.ListingRepository
}

// NewListingHandler builds a ListingHandler.
func NewListingHandler(listingRepo repositories.ListingRepository) *ListingHandler {
	return &ListingHandler{listingRepo: listingRepo}
}

// CreateListing posts a new trade offer.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req struct {
		ItemName     string   `json:"item_name" binding:"required"`
		Quantity     int      `json:"quantity"`
		PaymentType  string   `json:"payment_type"`
		Price        *float64 `json:"price"`
		PaymentItems *string  `json:"payment_items"`
		Description  string   `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	switch req.PaymentType {
	case "":
		req.PaymentType = models.PaymentCurrency
	case models.PaymentCurrency, models.PaymentItems:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment type"})
		return
	}

	listing, err := h.listingRepo.CreateListing(c.Request.Context(), models.Listing{
		UserID:       c.GetInt("userID"),
		ItemName:     req.ItemName,
		Quantity:     req.Quantity,
		PaymentType:  req.PaymentType,
		Price:        req.Price,
		PaymentItems: req.PaymentItems,
		Description:  req.Description,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create listing"})
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// GetListing fetches a listing by id.
func (h *ListingHandler) GetListing(c *gin.Context) {
	listingID, err := strconv.Atoi(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	listing, err := h.listingRepo.GetListing(c.Request.Context(), listingID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrListingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "listing not found"})
		return
	}

	c.JSON(http.StatusOK, listing)
}
