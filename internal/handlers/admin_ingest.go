package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/price-service/internal/database"
	"github.com/kosarica/price-service/internal/fetch"
	"github.com/kosarica/price-service/internal/ingest"
	"github.com/kosarica/price-service/internal/storage"
	"github.com/kosarica/price-service/internal/store"
)

// ProcessFeedsResponse reports per-merchant sync outcomes.
type ProcessFeedsResponse struct {
	Results []ingest.SyncResult `json:"results"`
}

// ProcessFeeds triggers one ingestion pass across every registered merchant
// (spec §6 `POST /admin/process-feeds`).
// @Summary Trigger feed ingestion across all shops
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} ProcessFeedsResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/admin/process-feeds [post]
func ProcessFeeds(c *gin.Context) {
	st := store.New(database.Pool())
	fetcher := newDefaultFetcher()
	if fetcher == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initialize fetcher"})
		return
	}

	coord := ingest.New(st, fetcher, ingest.DefaultConfig())
	results, err := coord.SyncOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ProcessFeedsResponse{Results: results})
}

// AdminStats reports aggregate catalog counts (spec §6 `GET /admin/stats`).
// @Summary Catalog statistics
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /internal/admin/stats [get]
func AdminStats(c *gin.Context) {
	pool := database.Pool()
	ctx := c.Request.Context()

	stats := map[string]int64{}
	queries := map[string]string{
		"merchants":  `SELECT COUNT(*) FROM merchants`,
		"products":   `SELECT COUNT(*) FROM products`,
		"brands":     `SELECT COUNT(*) FROM brands`,
		"categories": `SELECT COUNT(*) FROM categories`,
		"available":  `SELECT COUNT(*) FROM products WHERE availability = true`,
	}
	for key, q := range queries {
		var n int64
		if err := pool.QueryRow(ctx, q).Scan(&n); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		stats[key] = n
	}
	c.JSON(http.StatusOK, stats)
}

// newDefaultFetcher builds a Fetcher against local on-disk cache storage at
// ./data/feed-cache with fetch.DefaultConfig(). It does not read the
// configured storage base path or fetch settings that cmd/server/main.go
// uses for the scheduler's fetcher.
func newDefaultFetcher() *fetch.Fetcher {
	st, err := storage.NewLocalStorage("./data/feed-cache")
	if err != nil {
		return nil
	}
	return fetch.New(st, fetch.DefaultConfig())
}
