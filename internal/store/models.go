// Package store is the persistent, transactional store of merchants,
// brands, categories, products, and variants. It exposes atomic upsert and
// compound query primitives over Postgres via pgx, following the same
// flat-struct-plus-raw-SQL shape as internal/database.
package store

import "time"

// SyncStatus is the Merchant's sync_status enum.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncRunning SyncStatus = "running"
	SyncOK      SyncStatus = "ok"
	SyncError   SyncStatus = "error"
)

// Merchant is a single third-party catalog source.
type Merchant struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	FeedURL    string     `json:"feed_url"`
	SyncStatus SyncStatus `json:"sync_status"`
	LastSyncAt *time.Time `json:"last_sync_at"`
	LastError  *string    `json:"last_error"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Brand is a deduplicated product brand, keyed by normalized_name.
type Brand struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// Category is a node in a merchant-reported category path tree.
type Category struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Path           []string  `json:"path"`
	Level          int       `json:"level"`
	ParentID       *string   `json:"parent_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Product is one merchant's listing for a SKU.
type Product struct {
	ID                  string            `json:"id"`
	MerchantID          string            `json:"merchant_id"`
	MerchantProductCode string            `json:"merchant_product_code"`
	Title               string            `json:"title"`
	Description         *string           `json:"description"`
	EAN                 *string           `json:"ean"`
	MPN                 *string           `json:"mpn"`
	SKU                 *string           `json:"sku"`
	Price               float64           `json:"price"`
	OriginalPrice       *float64          `json:"original_price"`
	DiscountPct         *float64          `json:"discount_pct"`
	Availability        bool              `json:"availability"`
	StockQty            *int              `json:"stock_qty"`
	ImageURL            *string           `json:"image_url"`
	AdditionalImages    []string          `json:"additional_images"`
	ProductURL          *string           `json:"product_url"`
	Specifications      map[string]string `json:"specifications"`
	SearchText          string            `json:"search_text"`
	BrandID             *string           `json:"brand_id"`
	CategoryID          *string           `json:"category_id"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// ProductVariant is a color/size/stock variation of a parent Product.
type ProductVariant struct {
	ID         string   `json:"id"`
	ProductID  string   `json:"product_id"`
	VariantKey string   `json:"variant_key"`
	Color      *string  `json:"color"`
	Size       *string  `json:"size"`
	PriceDelta *float64 `json:"price_delta"`
	StockQty   *int     `json:"stock_qty"`
}
