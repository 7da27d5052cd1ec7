package suggest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
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

func seedProduct(t *testing.T, ctx context.Context, st *store.Store, cache *store.RunCache, title, brand, category string) {
	t.Helper()
	merchant, err := st.GetOrCreateMerchant(ctx, "Shop "+title, "https://example.com/"+title+".xml")
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
		_, err = store.UpsertProduct(ctx, tx, store.UpsertProductInput{
			MerchantID:          merchant.ID,
			MerchantProductCode: title,
			Title:               title,
			Price:               1.0,
			Availability:        true,
			SearchText:          title + " " + brand + " " + category,
			BrandID:             &brandID,
			CategoryID:          &categoryID,
		})
		return err
	})
	require.NoError(t, err)
}

func TestSuggestTypoTierComesFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	svc := New(pool)
	out := svc.Suggest(context.Background(), "aple", 5, false)
	require.NotEmpty(t, out)
	assert.Equal(t, "typo", out[0].Source)
	assert.Equal(t, "apple", out[0].Text)
}

func TestSuggestDedupsCaseInsensitively(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)
	cache := store.NewRunCache()
	seedProduct(t, ctx, st, cache, "Wireless Mouse", "Logitech", "Accessories")

	svc := New(pool)
	out := svc.Suggest(ctx, "wireless", 10, false)

	seen := make(map[string]bool)
	for _, s := range out {
		norm := strings.ToLower(s.Text)
		require.False(t, seen[norm], "suggestion %q appeared more than once", norm)
		seen[norm] = true
	}
}

func TestSuggestRespectsLimit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)
	cache := store.NewRunCache()
	seedProduct(t, ctx, st, cache, "Blue Widget One", "Acme", "Tools")
	seedProduct(t, ctx, st, cache, "Blue Widget Two", "Acme", "Tools")
	seedProduct(t, ctx, st, cache, "Blue Widget Three", "Acme", "Tools")

	svc := New(pool)
	out := svc.Suggest(ctx, "Blue Widget", 2, false)
	assert.LessOrEqual(t, len(out), 2)
}

func TestSuggestNeverErrorsOnClosedPool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	cleanup()

	svc := New(pool)
	out := svc.Suggest(context.Background(), "anything", 5, true)
	assert.Empty(t, out)
}
