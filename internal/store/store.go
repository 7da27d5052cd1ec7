package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kosarica/price-service/internal/apperr"
	"github.com/kosarica/price-service/internal/pkg/cuid2"
)

// Store wraps the connection pool with the domain's upsert and query
// primitives. Callers hold no in-process state beyond a run-scoped cache
// they pass in explicitly (see RunCache), matching the teacher's pattern of
// plain functions taking *pgxpool.Pool rather than a fat repository object.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunCache memoizes brand/category id lookups for the lifetime of one
// ingestion run, avoiding the quadratic per-row lookups the coordinator
// contract (spec §4.3) forbids.
type RunCache struct {
	brands     map[string]string // normalized name -> id
	categories map[string]string // normalized name + "|" + path -> id
}

func NewRunCache() *RunCache {
	return &RunCache{
		brands:     make(map[string]string),
		categories: make(map[string]string),
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GetOrCreateBrand returns the id of the Brand matching name, creating it if
// absent. normalized_name is never blank: a blank/whitespace name is
// rejected rather than silently creating a junk brand row.
func (s *Store) GetOrCreateBrand(ctx context.Context, cache *RunCache, name string) (string, error) {
	norm := normalizeName(name)
	if norm == "" {
		return "", apperr.Validationf("brand name is blank")
	}
	if cache != nil {
		if id, ok := cache.brands[norm]; ok {
			return id, nil
		}
	}

	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM brands WHERE normalized_name = $1`, norm).Scan(&id)
	if err == nil {
		if cache != nil {
			cache.brands[norm] = id
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.Internalf(err, "lookup brand %q", name)
	}

	id = cuid2.GeneratePrefixedId("brd", cuid2.PrefixedIdOptions{})
	_, err = s.pool.Exec(ctx, `
		INSERT INTO brands (id, name, normalized_name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (normalized_name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, id, name, norm)
	if err != nil {
		return "", apperr.Internalf(err, "create brand %q", name)
	}

	// ON CONFLICT may have resolved to a different id from a concurrent
	// insert; re-select to get the authoritative row.
	if err := s.pool.QueryRow(ctx, `SELECT id FROM brands WHERE normalized_name = $1`, norm).Scan(&id); err != nil {
		return "", apperr.Internalf(err, "reselect brand %q", name)
	}

	if cache != nil {
		cache.brands[norm] = id
	}
	return id, nil
}

// GetOrCreateCategory finds or creates the Category uniquely identified by
// (normalized_name, path). If parentID is non-empty its path must be a
// prefix of path (spec §3 invariant); callers build path bottom-up.
func (s *Store) GetOrCreateCategory(ctx context.Context, cache *RunCache, name string, path []string, parentID *string) (string, error) {
	norm := normalizeName(name)
	if norm == "" {
		return "", apperr.Validationf("category name is blank")
	}
	cacheKey := norm + "|" + strings.Join(path, ">")
	if cache != nil {
		if id, ok := cache.categories[cacheKey]; ok {
			return id, nil
		}
	}

	var id string
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM categories WHERE normalized_name = $1 AND path = $2
	`, norm, path).Scan(&id)
	if err == nil {
		if cache != nil {
			cache.categories[cacheKey] = id
		}
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.Internalf(err, "lookup category %q", name)
	}

	id = cuid2.GeneratePrefixedId("cat", cuid2.PrefixedIdOptions{})
	level := len(path)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO categories (id, name, normalized_name, path, level, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (normalized_name, path) DO NOTHING
	`, id, name, norm, path, level, parentID)
	if err != nil {
		return "", apperr.Internalf(err, "create category %q", name)
	}

	if err := s.pool.QueryRow(ctx, `
		SELECT id FROM categories WHERE normalized_name = $1 AND path = $2
	`, norm, path).Scan(&id); err != nil {
		return "", apperr.Internalf(err, "reselect category %q", name)
	}

	if cache != nil {
		cache.categories[cacheKey] = id
	}
	return id, nil
}

// UpsertProductInput is the normalized product record as handed from the
// XML Normalizer to the Ingestion Coordinator.
type UpsertProductInput struct {
	MerchantID          string
	MerchantProductCode string
	Title               string
	Description         *string
	EAN                 *string
	MPN                 *string
	SKU                 *string
	Price               float64
	OriginalPrice       *float64
	DiscountPct         *float64
	Availability        bool
	StockQty            *int
	ImageURL            *string
	AdditionalImages     []string
	ProductURL          *string
	Specifications      map[string]string
	SearchText          string
	BrandID             *string
	CategoryID          *string
}

// UpsertResult reports whether the upsert inserted a new row or updated an
// existing one, feeding the SyncResult counters in spec §4.3.
type UpsertResult struct {
	Inserted bool
}

// UpsertProduct inserts-or-updates a Product keyed by (merchant_id,
// merchant_product_code), matching the teacher's ON CONFLICT ... DO UPDATE
// shape in internal/pipeline/persist.go. Must be called within a
// transaction the caller controls so batches of up to 500 products commit
// atomically (spec §5 backpressure).
func UpsertProduct(ctx context.Context, tx pgx.Tx, in UpsertProductInput) (UpsertResult, error) {
	specJSON, err := json.Marshal(in.Specifications)
	if err != nil {
		return UpsertResult{}, apperr.Internalf(err, "marshal specifications")
	}

	var existingID string
	lookupErr := tx.QueryRow(ctx, `
		SELECT id FROM products WHERE merchant_id = $1 AND merchant_product_code = $2
	`, in.MerchantID, in.MerchantProductCode).Scan(&existingID)

	inserted := errors.Is(lookupErr, pgx.ErrNoRows)
	id := existingID
	if inserted {
		id = cuid2.GeneratePrefixedId("prd", cuid2.PrefixedIdOptions{})
	} else if lookupErr != nil {
		return UpsertResult{}, apperr.Internalf(lookupErr, "lookup product %s/%s", in.MerchantID, in.MerchantProductCode)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO products (
			id, merchant_id, merchant_product_code, title, description, ean, mpn, sku,
			price, original_price, discount_pct, availability, stock_qty, image_url,
			additional_images, product_url, specifications, search_text, brand_id,
			category_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, NOW(), NOW()
		)
		ON CONFLICT (merchant_id, merchant_product_code) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			ean = EXCLUDED.ean,
			mpn = EXCLUDED.mpn,
			sku = EXCLUDED.sku,
			price = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			discount_pct = EXCLUDED.discount_pct,
			availability = EXCLUDED.availability,
			stock_qty = EXCLUDED.stock_qty,
			image_url = EXCLUDED.image_url,
			additional_images = EXCLUDED.additional_images,
			product_url = EXCLUDED.product_url,
			specifications = EXCLUDED.specifications,
			search_text = EXCLUDED.search_text,
			brand_id = EXCLUDED.brand_id,
			category_id = EXCLUDED.category_id,
			updated_at = NOW()
	`, id, in.MerchantID, in.MerchantProductCode, in.Title, in.Description, in.EAN, in.MPN, in.SKU,
		in.Price, in.OriginalPrice, in.DiscountPct, in.Availability, in.StockQty, in.ImageURL,
		in.AdditionalImages, in.ProductURL, specJSON, in.SearchText, in.BrandID, in.CategoryID)
	if err != nil {
		return UpsertResult{}, apperr.Internalf(err, "upsert product %s/%s", in.MerchantID, in.MerchantProductCode)
	}

	return UpsertResult{Inserted: inserted}, nil
}

// MarkUnavailable flags products absent from the latest feed sighting as
// unavailable rather than deleting them (spec §3 Lifecycles).
func (s *Store) MarkUnavailable(ctx context.Context, merchantID string, seenCodes []string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET availability = false, updated_at = NOW()
		WHERE merchant_id = $1 AND availability = true AND NOT (merchant_product_code = ANY($2))
	`, merchantID, seenCodes)
	if err != nil {
		return 0, apperr.Internalf(err, "mark unavailable for merchant %s", merchantID)
	}
	return tag.RowsAffected(), nil
}

// --- Merchant lifecycle ---

func (s *Store) GetOrCreateMerchant(ctx context.Context, name, feedURL string) (*Merchant, error) {
	m := &Merchant{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, feed_url, sync_status, last_sync_at, last_error, created_at, updated_at
		FROM merchants WHERE name = $1
	`, name).Scan(&m.ID, &m.Name, &m.FeedURL, &m.SyncStatus, &m.LastSyncAt, &m.LastError, &m.CreatedAt, &m.UpdatedAt)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internalf(err, "lookup merchant %q", name)
	}

	id := cuid2.GeneratePrefixedId("mch", cuid2.PrefixedIdOptions{})
	_, err = s.pool.Exec(ctx, `
		INSERT INTO merchants (id, name, feed_url, sync_status, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', NOW(), NOW())
		ON CONFLICT (name) DO NOTHING
	`, id, name, feedURL)
	if err != nil {
		return nil, apperr.Internalf(err, "create merchant %q", name)
	}

	return s.GetOrCreateMerchant(ctx, name, feedURL)
}

func (s *Store) ListEnabledMerchants(ctx context.Context) ([]Merchant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, feed_url, sync_status, last_sync_at, last_error, created_at, updated_at
		FROM merchants ORDER BY name
	`)
	if err != nil {
		return nil, apperr.Internalf(err, "list merchants")
	}
	defer rows.Close()

	var out []Merchant
	for rows.Next() {
		var m Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.FeedURL, &m.SyncStatus, &m.LastSyncAt, &m.LastError, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, apperr.Internalf(err, "scan merchant")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMerchant looks up a single merchant by id, e.g. for the admin CLI's
// `ingest <merchantID>` command (spec §2 CLI).
func (s *Store) GetMerchant(ctx context.Context, merchantID string) (*Merchant, error) {
	m := &Merchant{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, feed_url, sync_status, last_sync_at, last_error, created_at, updated_at
		FROM merchants WHERE id = $1
	`, merchantID).Scan(&m.ID, &m.Name, &m.FeedURL, &m.SyncStatus, &m.LastSyncAt, &m.LastError, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("merchant %s not found", merchantID)
	}
	if err != nil {
		return nil, apperr.Internalf(err, "lookup merchant %s", merchantID)
	}
	return m, nil
}

// UpdateMerchantSyncStatus persists the outcome of one sync run (spec §4.3).
func (s *Store) UpdateMerchantSyncStatus(ctx context.Context, merchantID string, status SyncStatus, lastError *string) error {
	now := time.Now()
	_, err := s.pool.Exec(ctx, `
		UPDATE merchants SET sync_status = $1, last_error = $2, last_sync_at = $3, updated_at = $3
		WHERE id = $4
	`, status, lastError, now, merchantID)
	if err != nil {
		return apperr.Internalf(err, "update merchant %s sync status", merchantID)
	}
	return nil
}

// DeleteMerchant removes a merchant and, via ON DELETE CASCADE, every
// product it carries (spec §6 `DELETE /shops/{id}`).
func (s *Store) DeleteMerchant(ctx context.Context, merchantID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM merchants WHERE id = $1`, merchantID)
	if err != nil {
		return apperr.Internalf(err, "delete merchant %s", merchantID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("merchant %s not found", merchantID)
	}
	return nil
}

// Pool exposes the underlying pool for callers (e.g. search, ingest) that
// need transaction control this type doesn't wrap.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }
