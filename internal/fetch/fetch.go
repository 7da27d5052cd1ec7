// Package fetch retrieves feed bodies through an on-disk cache so repeated
// parses and retries don't hammer merchants (spec §4.1). It layers TTL
// freshness and an atomic-write cache on top of the existing retrying HTTP
// client.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kosarica/price-service/internal/apperr"
	httpclient "github.com/kosarica/price-service/internal/http"
	"github.com/kosarica/price-service/internal/http/ratelimit"
	"github.com/kosarica/price-service/internal/storage"
)

// Source reports whether a Get was served from the network or the disk cache.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
)

// Config controls cache freshness and request timeout.
type Config struct {
	CacheTTL time.Duration // default 1h
	Timeout  time.Duration // default 300s
}

func DefaultConfig() Config {
	return Config{
		CacheTTL: time.Hour,
		Timeout:  300 * time.Second,
	}
}

// Fetcher retrieves a URL's body, preferring a fresh disk cache entry over
// a network round trip.
type Fetcher struct {
	storage *storage.LocalStorage
	client  *httpclient.Client
	cfg     Config
}

func New(store *storage.LocalStorage, cfg Config) *Fetcher {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &Fetcher{
		storage: store,
		client:  httpclient.NewClientDefault(),
		cfg:     cfg,
	}
}

// cacheKey is a 128-bit-strength hash of the URL (spec §4.1: "128-bit hash
// of the URL"); we use the first 16 bytes of SHA256 rather than MD5 since
// the rest of this module already standardizes on SHA256 (ComputeSha256).
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}

// Get returns the body for url, a Source indicating whether the body came
// from the network or disk cache, and an error. On a fresh cache hit the
// network is never touched. On a successful network fetch the body is
// written to the cache atomically before Get returns.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, Source, error) {
	key := cacheKey(url) + ".xml"

	if info, err := f.storage.GetInfo(ctx, key); err == nil {
		if time.Since(info.ModifiedAt) < f.cfg.CacheTTL {
			body, err := f.storage.Get(ctx, key)
			if err == nil {
				return body, SourceCache, nil
			}
			// Metadata existed but the body vanished/raced; fall through to network.
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	body, err := f.doNetworkFetch(fetchCtx, url)
	if err != nil {
		return nil, "", err
	}

	if err := f.storage.PutAtomic(ctx, key, body, &storage.Metadata{
		SourceURL:    url,
		DownloadedAt: time.Now(),
	}); err != nil {
		// Cache write failure is not fatal to the caller; the body was
		// fetched successfully. Concurrent fetches for the same URL are
		// explicitly allowed to duplicate network work (spec §4.1/§5).
		return body, SourceNetwork, nil
	}

	return body, SourceNetwork, nil
}

func (f *Fetcher) doNetworkFetch(ctx context.Context, url string) ([]byte, error) {
	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := f.client.GetBytes(url)
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, apperr.Transient(fmt.Sprintf("fetch %s", url), ctx.Err())
	case r := <-done:
		if r.err != nil {
			var retryErr *ratelimit.FetchRetryError
			if asFetchRetryError(r.err, &retryErr) {
				return nil, apperr.Transient(fmt.Sprintf("fetch %s", url), retryErr)
			}
			return nil, apperr.Transient(fmt.Sprintf("fetch %s", url), r.err)
		}
		return r.body, nil
	}
}

func asFetchRetryError(err error, target **ratelimit.FetchRetryError) bool {
	e, ok := err.(*ratelimit.FetchRetryError)
	if ok {
		*target = e
	}
	return ok
}
