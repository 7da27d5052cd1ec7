package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-service/internal/database"
	"github.com/kosarica/price-service/internal/store"
)

// ListShopsResponse wraps the merchant list (spec §6 `GET /shops`).
type ListShopsResponse struct {
	Shops []store.Merchant `json:"shops"`
}

// ListShops returns every registered merchant.
// @Summary List shops
// @Tags shops
// @Accept json
// @Produce json
// @Success 200 {object} ListShopsResponse
// @Router /shops [get]
func ListShops(c *gin.Context) {
	st := store.New(database.Pool())
	merchants, err := st.ListEnabledMerchants(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListShopsResponse{Shops: merchants})
}

// CreateShopRequest is the payload for registering a new merchant feed.
type CreateShopRequest struct {
	Name    string `json:"name" binding:"required"`
	FeedURL string `json:"feed_url" binding:"required"`
}

// CreateShop registers a merchant feed, creating it if absent (spec §6
// `POST /shops`).
// @Summary Register a shop feed
// @Tags shops
// @Accept json
// @Produce json
// @Param body body CreateShopRequest true "Shop feed"
// @Success 201 {object} store.Merchant
// @Failure 400 {object} map[string]string "Bad request"
// @Router /shops [post]
func CreateShop(c *gin.Context) {
	var req CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st := store.New(database.Pool())
	merchant, err := st.GetOrCreateMerchant(c.Request.Context(), req.Name, req.FeedURL)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, merchant)
}

// DeleteShop removes a merchant and its products (spec §6
// `DELETE /shops/{id}`).
// @Summary Remove a shop
// @Tags shops
// @Accept json
// @Produce json
// @Param id path string true "Merchant ID"
// @Success 204 "No content"
// @Failure 404 {object} map[string]string "Not found"
// @Router /shops/{id} [delete]
func DeleteShop(c *gin.Context) {
	st := store.New(database.Pool())
	if err := st.DeleteMerchant(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
