package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-service/internal/apperr"
	"github.com/kosarica/price-service/internal/database"
	"github.com/kosarica/price-service/internal/store"
)

// statusForError maps an apperr.Category to the HTTP status the response
// policy calls for (spec §7: typed errors drive the HTTP layer's status
// code instead of string-matching).
func statusForError(err error) int {
	switch apperr.CategoryOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.TransientExternal:
		return http.StatusBadGateway
	case apperr.DataQuality:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// GetProduct returns a single product by id.
// @Summary Get product by id
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} store.Product
// @Failure 404 {object} map[string]string "Not found"
// @Router /product/{id} [get]
func GetProduct(c *gin.Context) {
	st := store.New(database.Pool())
	p, err := st.GetProductByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetProductByEAN returns a single product carrying the given EAN.
// @Summary Get product by EAN
// @Tags products
// @Accept json
// @Produce json
// @Param ean path string true "Product EAN"
// @Success 200 {object} store.Product
// @Failure 404 {object} map[string]string "Not found"
// @Router /product/ean/{ean} [get]
func GetProductByEAN(c *gin.Context) {
	st := store.New(database.Pool())
	p, err := st.GetProductByEAN(c.Request.Context(), c.Param("ean"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetProductComparison returns one entry per distinct merchant carrying the
// same product (spec §8 scenario 5).
// @Summary Compare a product's price across merchants
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {array} store.ComparisonEntry
// @Failure 404 {object} map[string]string "Not found"
// @Router /product/{id}/comparison [get]
func GetProductComparison(c *gin.Context) {
	st := store.New(database.Pool())
	entries, err := st.ProductComparison(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}
