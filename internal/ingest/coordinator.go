// Package ingest is the Ingestion Coordinator (spec §4.3): it fans out one
// sync per merchant, bounded by a configurable concurrency limit, wiring
// the Fetcher, the XML Normalizer, and the Store together and applying the
// unavailable-not-deleted lifecycle policy to products missing from a
// merchant's latest feed.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/price-service/internal/apperr"
	"github.com/kosarica/price-service/internal/fetch"
	"github.com/kosarica/price-service/internal/normalize"
	"github.com/kosarica/price-service/internal/store"
)

// batchSize caps how many product rows are upserted per transaction (spec
// §5 backpressure: bound memory and lock duration for large feeds).
const batchSize = 500

// Config controls the coordinator's fan-out and batching behavior.
type Config struct {
	MaxConcurrentSyncs int
	SyncInterval       time.Duration
}

func DefaultConfig() Config {
	return Config{MaxConcurrentSyncs: 4, SyncInterval: 24 * time.Hour}
}

// SyncResult reports what one merchant sync did. SyncOnce and TriggerNow
// return it to the caller; POST /admin/process-feeds responds with one per
// merchant.
type SyncResult struct {
	MerchantID     string
	MerchantName   string
	Fetched        int
	Inserted       int
	Updated        int
	MarkedGone     int
	Warnings       int
	DroppedNoPrice int
	Err            error
}

// Coordinator owns the per-merchant lock registry so overlapping
// TriggerNow/scheduled syncs of the same merchant serialize instead of
// racing each other's upserts. A single coordinator process owns all
// merchant scheduling, so an in-process sync.Mutex registry suffices here
// (spec §4.3) — this generalizes internal/matching/barcode.go's
// pg_advisory_xact_lock-per-barcode pattern down to an in-process lock,
// since that pattern exists to guard a multi-writer matcher against
// cross-process races the single-writer ingestion coordinator doesn't have.
type Coordinator struct {
	store   *store.Store
	fetcher *fetch.Fetcher
	cfg     Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(st *store.Store, fetcher *fetch.Fetcher, cfg Config) *Coordinator {
	return &Coordinator{
		store:   st,
		fetcher: fetcher,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
	}
}

// RunForever runs one SyncOnce pass every cfg.SyncInterval until ctx is
// cancelled, grounded on internal/workers/worker.go's ticker-driven worker
// loop shape (select on ctx.Done()/ticker.C, continue-on-error between
// ticks). A failed pass is logged and the loop keeps running; it never
// returns early on a transient error (spec §4.3/§5).
func (c *Coordinator) RunForever(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := c.SyncOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("ingestion scheduler pass failed")
				continue
			}
			for _, r := range results {
				if r.Err != nil {
					log.Warn().Err(r.Err).Str("merchant", r.MerchantName).Msg("merchant sync failed")
				}
			}
		}
	}
}

func (c *Coordinator) lockFor(merchantID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[merchantID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[merchantID] = l
	}
	return l
}

// SyncOnce runs one sync pass across every enabled merchant, bounded by
// cfg.MaxConcurrentSyncs concurrent fetches (spec §4.3, §5), and returns a
// SyncResult per merchant. A single merchant's failure never aborts the
// others (spec §4.3 failure policy: existing products for that merchant
// are left untouched, sync_status is flipped to error).
func (c *Coordinator) SyncOnce(ctx context.Context) ([]SyncResult, error) {
	merchants, err := c.store.ListEnabledMerchants(ctx)
	if err != nil {
		return nil, apperr.Internalf(err, "list merchants")
	}

	results := make([]SyncResult, len(merchants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.cfg.MaxConcurrentSyncs))

	for i, m := range merchants {
		i, m := i, m
		g.Go(func() error {
			results[i] = c.syncMerchant(gctx, m.ID, m.Name, m.FeedURL)
			return nil
		})
	}
	// g.Wait only returns non-nil if a worker itself returned an error,
	// which syncMerchant never does: merchant failures are captured in
	// SyncResult.Err instead so one bad feed can't cancel its siblings.
	_ = g.Wait()

	return results, nil
}

// TriggerNow syncs a single merchant on demand (the CLI's
// `ingest <merchantID>`), serialized against any concurrent sync of the
// same merchant.
func (c *Coordinator) TriggerNow(ctx context.Context, merchantID, merchantName, feedURL string) SyncResult {
	return c.syncMerchant(ctx, merchantID, merchantName, feedURL)
}

func (c *Coordinator) syncMerchant(ctx context.Context, merchantID, merchantName, feedURL string) SyncResult {
	lock := c.lockFor(merchantID)
	lock.Lock()
	defer lock.Unlock()

	res := SyncResult{MerchantID: merchantID, MerchantName: merchantName}
	logger := log.With().Str("merchant_id", merchantID).Str("merchant", merchantName).Logger()

	if err := c.store.UpdateMerchantSyncStatus(ctx, merchantID, store.SyncRunning, nil); err != nil {
		logger.Warn().Err(err).Msg("failed to mark merchant sync running")
	}

	body, _, err := c.fetcher.Get(ctx, feedURL)
	if err != nil {
		res.Err = apperr.Transient(fmt.Sprintf("fetch feed for merchant %s", merchantName), err)
		c.failMerchant(ctx, merchantID, res.Err)
		return res
	}

	records, warnings := normalize.Normalize(body)
	res.Fetched = len(records)
	res.Warnings = len(warnings)
	for _, w := range warnings {
		logger.Debug().Int("index", w.Index).Str("title", w.Title).Str("reason", w.Reason).Msg("dropped feed record")
	}

	cache := store.NewRunCache()
	seenCodes := make([]string, 0, len(records))

	for batchStart := 0; batchStart < len(records); batchStart += batchSize {
		end := min(batchStart+batchSize, len(records))
		batch := records[batchStart:end]

		codes, inserted, updated, dropped, err := c.upsertBatch(ctx, merchantID, cache, batch)
		seenCodes = append(seenCodes, codes...)
		res.Inserted += inserted
		res.Updated += updated
		res.DroppedNoPrice += dropped
		if err != nil {
			res.Err = err
			c.failMerchant(ctx, merchantID, err)
			return res
		}
	}

	marked, err := c.store.MarkUnavailable(ctx, merchantID, seenCodes)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to mark absent products unavailable")
	}
	res.MarkedGone = int(marked)

	if err := c.store.UpdateMerchantSyncStatus(ctx, merchantID, store.SyncOK, nil); err != nil {
		logger.Warn().Err(err).Msg("failed to mark merchant sync ok")
	}
	logger.Info().Int("fetched", res.Fetched).Int("inserted", res.Inserted).
		Int("updated", res.Updated).Int("marked_gone", res.MarkedGone).
		Int("dropped_no_price", res.DroppedNoPrice).Msg("merchant sync complete")

	return res
}

func (c *Coordinator) failMerchant(ctx context.Context, merchantID string, cause error) {
	msg := cause.Error()
	if err := c.store.UpdateMerchantSyncStatus(ctx, merchantID, store.SyncError, &msg); err != nil {
		log.Error().Err(err).Str("merchant_id", merchantID).Msg("failed to record merchant sync failure")
	}
}

// upsertBatch commits up to batchSize products in a single transaction
// (spec §5 backpressure), resolving brand/category ids against the
// run-scoped cache so repeated brands/categories within a feed only hit the
// database once. The Normalizer keeps price as an optional field (spec
// §4.2: only title is mandatory), but the products table requires one
// (spec §3); a record with no parseable price is a §7 data-quality drop
// enforced here at the upsert boundary, not inside the otherwise-pure
// Normalizer.
func (c *Coordinator) upsertBatch(ctx context.Context, merchantID string, cache *store.RunCache, batch []normalize.Record) ([]string, int, int, int, error) {
	var codes []string
	var inserted, updated, dropped int

	err := pgx.BeginFunc(ctx, c.store.Pool(), func(tx pgx.Tx) error {
		for _, rec := range batch {
			if rec.Price == nil {
				dropped++
				continue
			}

			var brandID *string
			if rec.Brand != "" {
				id, err := c.store.GetOrCreateBrand(ctx, cache, rec.Brand)
				if err != nil {
					return apperr.Internalf(err, "resolve brand %q", rec.Brand)
				}
				brandID = &id
			}

			var categoryID *string
			if rec.CategoryLeaf != "" {
				id, err := c.store.GetOrCreateCategory(ctx, cache, rec.CategoryLeaf, rec.CategoryPath, nil)
				if err != nil {
					return apperr.Internalf(err, "resolve category %q", rec.CategoryLeaf)
				}
				categoryID = &id
			}

			in := store.UpsertProductInput{
				MerchantID:          merchantID,
				MerchantProductCode: rec.ExternalID,
				Title:               rec.Title,
				Description:         nilIfEmpty(rec.Description),
				EAN:                 nilIfEmpty(rec.EAN),
				MPN:                 nilIfEmpty(rec.MPN),
				SKU:                 nilIfEmpty(rec.SKU),
				Availability:        rec.Availability,
				StockQty:            rec.StockQty,
				ImageURL:            nilIfEmpty(rec.ImageURL),
				AdditionalImages:    rec.AdditionalImages,
				ProductURL:          nilIfEmpty(rec.ProductURL),
				Specifications:      rec.Specifications,
				SearchText:          rec.SearchText,
				BrandID:             brandID,
				CategoryID:          categoryID,
				OriginalPrice:       rec.OriginalPrice,
				DiscountPct:         rec.DiscountPct,
				Price:               *rec.Price,
			}

			res, err := store.UpsertProduct(ctx, tx, in)
			if err != nil {
				return err
			}
			if res.Inserted {
				inserted++
			} else {
				updated++
			}
			codes = append(codes, rec.ExternalID)
		}
		return nil
	})
	if err != nil {
		return codes, inserted, updated, dropped, err
	}
	return codes, inserted, updated, dropped, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
