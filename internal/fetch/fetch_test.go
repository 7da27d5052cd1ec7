package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/price-service/internal/storage"
)

func newTestFetcher(t *testing.T, ttl time.Duration) (*Fetcher, *storage.LocalStorage) {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return New(st, Config{CacheTTL: ttl, Timeout: 5 * time.Second}), st
}

func TestFetcherCacheBehavior(t *testing.T) {
	// spec §8 scenario 6: two consecutive calls within TTL yield
	// network then cache; after TTL expiry the next call is network again.
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<products><product><name>A</name></product></products>"))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, 50*time.Millisecond)

	body1, src1, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, src1)
	assert.Contains(t, string(body1), "<name>A</name>")

	body2, src2, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src2)
	assert.Equal(t, body1, body2)
	assert.Equal(t, 1, hits)

	time.Sleep(80 * time.Millisecond)

	_, src3, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, SourceNetwork, src3)
	assert.Equal(t, 2, hits)
}

func TestFetcherNon200IsErrorAndCacheUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, st := newTestFetcher(t, time.Hour)

	_, _, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)

	exists, err := st.Exists(context.Background(), cacheKey(srv.URL)+".xml")
	require.NoError(t, err)
	assert.False(t, exists, "cache must not be populated on a failed fetch")
}

func TestCacheKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, cacheKey("http://example.com/feed.xml"), cacheKey("http://example.com/feed.xml"))
	assert.NotEqual(t, cacheKey("http://example.com/feed.xml"), cacheKey("http://example.com/other.xml"))
}
