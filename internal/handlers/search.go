package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-service/internal/database"
	"github.com/kosarica/price-service/internal/rewrite"
	"github.com/kosarica/price-service/internal/search"
)

// Rewriter is the process-wide Query Rewriter instance; wired up once in
// cmd/server/main.go (nil LLM tier until an API key is configured), so
// Search remains usable even before main.go sets it (degrades to no
// rewriting, same as an always-empty rewriter).
var Rewriter = rewrite.New(nil)

// SearchRequest mirrors the closed filter set from spec §4.5/§6.
type SearchRequest struct {
	Q            string   `form:"q"`
	Title        string   `form:"title"`
	Brand        string   `form:"brand"`
	Brands       []string `form:"brands[]"`
	Category     string   `form:"category"`
	Categories   []string `form:"categories[]"`
	MinPrice     *float64 `form:"min_price"`
	MaxPrice     *float64 `form:"max_price"`
	Availability *bool    `form:"availability"`
	EAN          string   `form:"ean"`
	MPN          string   `form:"mpn"`
	Shops        []string `form:"shops[]"`
	Sort         string   `form:"sort"`
	Type         string   `form:"type"` // all | products | categories
	Page         int      `form:"page"`
	PerPage      int      `form:"per_page"`
}

// Search handles product search, aggregated by default (spec §4.5).
// @Summary Search products
// @Description Full-text and filtered product search, aggregated across merchants by default
// @Tags search
// @Accept json
// @Produce json
// @Param q query string false "Free-text query, passed through the Query Rewriter"
// @Param title query string false "Case-insensitive title substring filter"
// @Param brand query string false "Brand name filter"
// @Param category query string false "Category name filter"
// @Param min_price query number false "Minimum price"
// @Param max_price query number false "Maximum price"
// @Param availability query bool false "Filter by availability"
// @Param ean query string false "EAN filter"
// @Param mpn query string false "MPN filter"
// @Param sort query string false "Sort mode" Enums(relevance, price_asc, price_desc, availability, newest)
// @Param type query string false "Result shape" Enums(all, products, categories)
// @Param page query int false "Page number, 1-based" default(1)
// @Param per_page query int false "Results per page, max 100" default(20)
// @Success 200 {object} search.Response
// @Failure 400 {object} map[string]string "Bad request"
// @Router /search [get]
func Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f := search.Filters{
		Title:        req.Title,
		Brand:        req.Brand,
		Brands:       req.Brands,
		Category:     req.Category,
		Categories:   req.Categories,
		MinPrice:     req.MinPrice,
		MaxPrice:     req.MaxPrice,
		Availability: req.Availability,
		EAN:          req.EAN,
		MPN:          req.MPN,
		Shops:        req.Shops,
		Sort:         search.Sort(req.Sort),
	}

	if req.Q != "" {
		rewritten := Rewriter.Rewrite(c.Request.Context(), req.Q)
		if f.Title == "" {
			f.Title = rewritten.CorrectedQuery
		}
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PerPage == 0 {
		req.PerPage = 20
	}
	if req.Page < 1 || req.PerPage < 1 || req.PerPage > search.MaxPerPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1 and per_page between 1 and 100"})
		return
	}

	engine := search.New(database.Pool())

	var resp search.Response
	if req.Type == "products" {
		resp = engine.SearchFlat(c.Request.Context(), f, req.Page, req.PerPage)
	} else {
		resp = engine.SearchAggregated(c.Request.Context(), f, req.Page, req.PerPage)
	}

	c.JSON(http.StatusOK, resp)
}

// Facets returns the best-effort category distribution for a query, without
// paginating through results (spec §4.5: `category_distribution`).
// @Summary Category facets for a query
// @Tags search
// @Accept json
// @Produce json
// @Param q query string false "Free-text query"
// @Param limit query int false "Max categories to return" default(10)
// @Success 200 {array} search.CategoryCount
// @Router /facets [get]
func Facets(c *gin.Context) {
	q := c.Query("q")
	limit := 10
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	engine := search.New(database.Pool())
	dist, err := engine.CategoryDistribution(c.Request.Context(), search.Filters{Title: q}, limit)
	if err != nil {
		c.JSON(http.StatusOK, []search.CategoryCount{})
		return
	}
	c.JSON(http.StatusOK, dist)
}
