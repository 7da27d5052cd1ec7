package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kosarica/price-service/internal/store"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	schema, err := os.ReadFile(filepath.Join("..", "database", "migrations", "0001_search_schema.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		testcontainers.TerminateContainer(container)
	}
	return pool, cleanup
}

// seedProduct inserts one product for one merchant, creating the merchant,
// brand, and category on first use.
func seedProduct(t *testing.T, ctx context.Context, st *store.Store, cache *store.RunCache, merchantName, title, brand, category string, price float64, available bool, ean string) {
	t.Helper()
	merchant, err := st.GetOrCreateMerchant(ctx, merchantName, "https://example.com/"+merchantName+".xml")
	require.NoError(t, err)

	err = pgx.BeginFunc(ctx, st.Pool(), func(tx pgx.Tx) error {
		brandID, err := st.GetOrCreateBrand(ctx, cache, brand)
		if err != nil {
			return err
		}
		categoryID, err := st.GetOrCreateCategory(ctx, cache, category, []string{category}, nil)
		if err != nil {
			return err
		}
		var eanPtr *string
		if ean != "" {
			eanPtr = &ean
		}
		_, err = store.UpsertProduct(ctx, tx, store.UpsertProductInput{
			MerchantID:          merchant.ID,
			MerchantProductCode: title + "-" + merchantName,
			Title:               title,
			EAN:                 eanPtr,
			Price:               price,
			Availability:        available,
			SearchText:          title + " " + brand + " " + category,
			BrandID:             &brandID,
			CategoryID:          &categoryID,
		})
		return err
	})
	require.NoError(t, err)
}

func TestSearchFlatFiltersAndPaginates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)
	cache := store.NewRunCache()

	seedProduct(t, ctx, st, cache, "ShopA", "Samsung Galaxy S24", "Samsung", "Phones", 899.00, true, "")
	seedProduct(t, ctx, st, cache, "ShopB", "Samsung Galaxy S23", "Samsung", "Phones", 699.00, true, "")
	seedProduct(t, ctx, st, cache, "ShopA", "Apple iPhone 15", "Apple", "Phones", 999.00, true, "")

	engine := New(pool)

	resp := engine.SearchFlat(ctx, Filters{Brand: "Samsung", Sort: SortPriceAsc}, 1, 1)
	require.Equal(t, "flat", resp.SearchType)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Samsung Galaxy S23", resp.Products[0].Title)

	resp2 := engine.SearchFlat(ctx, Filters{Brand: "Samsung", Sort: SortPriceAsc}, 2, 1)
	require.Len(t, resp2.Products, 1)
	assert.Equal(t, "Samsung Galaxy S24", resp2.Products[0].Title)
}

func TestSearchAggregatedGroupsAcrossMerchants(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)
	cache := store.NewRunCache()

	const ean = "9999999999999"
	seedProduct(t, ctx, st, cache, "ShopA", "Generic Widget", "Acme", "Tools", 20.00, true, ean)
	seedProduct(t, ctx, st, cache, "ShopB", "Generic Widget", "Acme", "Tools", 15.00, false, ean)

	engine := New(pool)
	resp := engine.SearchAggregated(ctx, Filters{Title: "Widget", Sort: SortPriceAsc}, 1, 20)

	require.Equal(t, "aggregated", resp.SearchType)
	require.Len(t, resp.Groups, 1)
	g := resp.Groups[0]
	assert.Equal(t, 2, g.ShopCount)
	assert.Equal(t, 1, g.AvailableShops)
	assert.InDelta(t, 15.00, g.MinPrice, 0.001)
	assert.InDelta(t, 20.00, g.MaxPrice, 0.001)
	require.NotNil(t, g.BestAvailablePrice)
	assert.InDelta(t, 20.00, *g.BestAvailablePrice, 0.001)
}

func TestSearchDegradesGracefullyOnClosedPool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	cleanup() // close the pool up front to force every query to fail

	engine := New(pool)
	resp := engine.SearchFlat(context.Background(), Filters{Title: "anything"}, 1, 20)

	assert.Equal(t, "fallback", resp.SearchType)
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Products)
}

func TestSearchFlatClampsOversizedPageSize(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)
	cache := store.NewRunCache()
	seedProduct(t, ctx, st, cache, "ShopA", "Any Product", "Brand", "Category", 1.00, true, "")

	engine := New(pool)
	resp := engine.SearchFlat(ctx, Filters{}, 1, 10000)
	assert.LessOrEqual(t, resp.PerPage, MaxPerPage)
}
