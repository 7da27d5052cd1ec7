package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kosarica/price-service/internal/fetch"
	"github.com/kosarica/price-service/internal/storage"
	"github.com/kosarica/price-service/internal/store"
)

const feedV1 = `<?xml version="1.0"?>
<products>
	<product><id>A1</id><name>Widget One</name><brand>Acme</brand><category>Tools</category><ean>5901234123457</ean><price>10.00</price><instock>true</instock></product>
	<product><id>A2</id><name>Widget Two</name><brand>Acme</brand><category>Tools</category><ean>3850012345678</ean><price>20.00</price><instock>true</instock></product>
</products>`

// feedV2 drops A2, simulating it falling out of the merchant's catalog.
const feedV2 = `<?xml version="1.0"?>
<products>
	<product><id>A1</id><name>Widget One</name><brand>Acme</brand><category>Tools</category><ean>5901234123457</ean><price>12.00</price><instock>true</instock></product>
</products>`

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

func TestSyncMerchantInsertsUpdatesAndMarksGone(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)

	body := feedV1
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	st2, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	// A 1ns CacheTTL forces every TriggerNow to refetch (fetch.New replaces
	// a zero TTL with one hour), so the second sync below actually observes
	// feedV2 instead of a cached feedV1 body.
	fetcher := fetch.New(st2, fetch.Config{CacheTTL: time.Nanosecond, Timeout: 5 * time.Second})
	coord := New(st, fetcher, DefaultConfig())

	merchant, err := st.GetOrCreateMerchant(ctx, "Acme Direct", server.URL)
	require.NoError(t, err)

	res := coord.TriggerNow(ctx, merchant.ID, merchant.Name, merchant.FeedURL)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 0, res.Updated)

	// Re-sync with a feed that drops A2 and changes A1's price.
	body = feedV2
	res2 := coord.TriggerNow(ctx, merchant.ID, merchant.Name, merchant.FeedURL)
	require.NoError(t, res2.Err)
	assert.Equal(t, 0, res2.Inserted)
	assert.Equal(t, 1, res2.Updated)
	assert.Equal(t, 1, res2.MarkedGone)

	a1, err := st.GetProductByEAN(ctx, "5901234123457")
	require.NoError(t, err)
	assert.InDelta(t, 12.00, a1.Price, 0.001)
	assert.True(t, a1.Availability)
}

func TestConcurrentSyncSameMerchantSerializes(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	st := store.New(pool)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedV1))
	}))
	defer server.Close()

	st2, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	fetcher := fetch.New(st2, fetch.DefaultConfig())
	coord := New(st, fetcher, DefaultConfig())

	merchant, err := st.GetOrCreateMerchant(ctx, "Concurrent Co", server.URL)
	require.NoError(t, err)

	done := make(chan SyncResult, 2)
	go func() { done <- coord.TriggerNow(ctx, merchant.ID, merchant.Name, merchant.FeedURL) }()
	go func() { done <- coord.TriggerNow(ctx, merchant.ID, merchant.Name, merchant.FeedURL) }()

	r1 := <-done
	r2 := <-done
	require.NoError(t, r1.Err)
	require.NoError(t, r2.Err)
}
