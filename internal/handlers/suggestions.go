package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-service/internal/database"
	"github.com/kosarica/price-service/internal/suggest"
)

// Suggestions handles autocomplete requests (spec §4.6).
// @Summary Autocomplete suggestions
// @Tags search
// @Accept json
// @Produce json
// @Param q query string true "Partial query"
// @Param limit query int false "Max suggestions" default(10)
// @Param fuzzy query bool false "Enable the pg_trgm fuzzy pass" default(false)
// @Success 200 {array} suggest.Suggestion
// @Failure 400 {object} map[string]string "Bad request"
// @Router /suggestions [get]
func Suggestions(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := suggest.DefaultLimit
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	fuzzy := c.Query("fuzzy") == "true"

	svc := suggest.New(database.Pool())
	out := svc.Suggest(c.Request.Context(), q, limit, fuzzy)
	c.JSON(http.StatusOK, out)
}
