// Package search is the Search Engine (spec §4.5): flat and aggregated
// product search with relevance ranking, filter composition, category
// distribution, and mandatory graceful degradation on internal error.
//
// Grounded on original_source/search_service.py's search_products_aggregated
// (the product_groups/relevance_scored CTE shape, carried over in
// semantics) and search_products (flat mode), treated here as one algorithm
// with mode parameters per spec §9 rather than the original's three
// near-duplicate implementations.
package search

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/price-service/internal/store"
)

// Product is one flat search result row.
type Product struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	Price        float64 `json:"price"`
	Availability bool    `json:"availability"`
	MerchantID   string  `json:"merchant_id"`
	MerchantName string  `json:"merchant_name"`
	BrandName    *string `json:"brand_name,omitempty"`
	CategoryName *string `json:"category_name,omitempty"`
}

// Group is one aggregated result: all Products sharing a grouping key
// (spec §3 / GLOSSARY), presented as a single ranked row.
type Group struct {
	GroupKey           string   `json:"-"`
	Title              string   `json:"title"`
	Description        *string  `json:"description,omitempty"`
	ImageURL           *string  `json:"image_url,omitempty"`
	MinPrice           float64  `json:"min_price"`
	MaxPrice           float64  `json:"max_price"`
	AvgPrice           float64  `json:"avg_price"`
	BestAvailablePrice *float64 `json:"best_available_price"`
	ShopCount          int      `json:"shop_count"`
	AvailableShops     int      `json:"available_shops"`
	ShopNames          []string `json:"shop_names"`
	Availability       bool     `json:"availability"`
	ProductIDs         []string `json:"product_ids"`
	BrandName          *string  `json:"brand_name,omitempty"`
	CategoryName       *string  `json:"category_name,omitempty"`
}

// CategoryCount is one entry of the best-effort category distribution.
type CategoryCount struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Count        int    `json:"count"`
	ImageURL     string `json:"image_url,omitempty"`
}

// Response is the engine's uniform response envelope. SearchType is
// "flat", "aggregated", or "fallback" (spec §4.5 failure semantics).
type Response struct {
	Products             []Product       `json:"products,omitempty"`
	Groups               []Group         `json:"groups,omitempty"`
	Total                int             `json:"total"`
	Page                 int             `json:"page"`
	PerPage              int             `json:"per_page"`
	TotalPages           int             `json:"total_pages"`
	ExecutionTimeMs      float64         `json:"execution_time_ms"`
	SearchType           string          `json:"search_type"`
	CategoryDistribution []CategoryCount `json:"category_distribution,omitempty"`
}

// Engine implements flat and aggregated search over the Store's schema.
type Engine struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Engine {
	return &Engine{pool: pool}
}

func clampPaging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// SearchFlat returns one result row per matching Product (spec §4.5 "flat
// search"). Never returns an error: any internal failure degrades to an
// empty, well-formed fallback response (spec §4.5 failure semantics, §8
// "Search graceful degradation").
func (e *Engine) SearchFlat(ctx context.Context, f Filters, page, perPage int) Response {
	start := time.Now()
	page, perPage = clampPaging(page, perPage)
	f.Sort = f.Sort.orDefault()

	resp, err := e.searchFlatInner(ctx, f, page, perPage)
	if err != nil {
		log.Error().Err(err).Str("component", "search.flat").Msg("search failed, degrading to empty result")
		searchFallbacks.Inc()
		return fallbackResponse(page, perPage, start)
	}
	resp.ExecutionTimeMs = elapsedMs(start)
	searchLatency.WithLabelValues("flat").Observe(time.Since(start).Seconds())
	return resp
}

func (e *Engine) searchFlatInner(ctx context.Context, f Filters, page, perPage int) (Response, error) {
	where, args := buildConditions(f)

	total, err := countMatches(ctx, e.pool, where, args, false)
	if err != nil {
		return Response{}, err
	}

	rows, err := fetchCandidateRows(ctx, e.pool, where, args)
	if err != nil {
		return Response{}, err
	}
	if len(rows) >= candidateCap {
		log.Warn().Int("cap", candidateCap).Msg("search candidate set truncated")
	}

	tokens := queryTokens(f.Title)
	sortRows(rows, f.Sort, tokens)

	pageRows := paginateRows(rows, page, perPage)
	products := make([]Product, 0, len(pageRows))
	for _, r := range pageRows {
		products = append(products, Product{
			ID: r.ProductID, Title: r.Title, Description: r.Description, ImageURL: r.ImageURL,
			Price: r.Price, Availability: r.Availability, MerchantID: r.MerchantID, MerchantName: r.MerchantName,
			BrandName: r.BrandName, CategoryName: r.CategoryName,
		})
	}

	return Response{
		Products:   products,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
		SearchType: "flat",
	}, nil
}

// SearchAggregated groups Products by grouping key (spec §3) and returns
// one ranked row per group (spec §4.5 default mode).
func (e *Engine) SearchAggregated(ctx context.Context, f Filters, page, perPage int) Response {
	start := time.Now()
	page, perPage = clampPaging(page, perPage)
	f.Sort = f.Sort.orDefault()

	resp, err := e.searchAggregatedInner(ctx, f, page, perPage)
	if err != nil {
		log.Error().Err(err).Str("component", "search.aggregated").Msg("search failed, degrading to empty result")
		searchFallbacks.Inc()
		return fallbackResponse(page, perPage, start)
	}
	resp.ExecutionTimeMs = elapsedMs(start)
	searchLatency.WithLabelValues("aggregated").Observe(time.Since(start).Seconds())

	if len(f.Title) >= 2 {
		dist, derr := e.CategoryDistribution(ctx, f, 10)
		if derr != nil {
			log.Warn().Err(derr).Msg("category distribution failed, omitting from response")
		} else {
			resp.CategoryDistribution = dist
		}
	}
	return resp
}

func (e *Engine) searchAggregatedInner(ctx context.Context, f Filters, page, perPage int) (Response, error) {
	where, args := buildConditions(f)

	total, err := countMatches(ctx, e.pool, where, args, true)
	if err != nil {
		return Response{}, err
	}

	rows, err := fetchCandidateRows(ctx, e.pool, where, args)
	if err != nil {
		return Response{}, err
	}
	if len(rows) >= candidateCap {
		log.Warn().Int("cap", candidateCap).Msg("search candidate set truncated")
	}

	groups := buildGroups(rows)
	tokens := queryTokens(f.Title)
	sortGroups(groups, f.Sort, tokens)

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(groups) {
		start = len(groups)
	}
	if end > len(groups) {
		end = len(groups)
	}
	pageGroups := groups[start:end]

	return Response{
		Groups:     pageGroups,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
		SearchType: "aggregated",
	}, nil
}

// CategoryDistribution computes the top-K categories by matching-product
// count (spec §4.5). Best-effort: the caller treats any error as
// non-fatal.
func (e *Engine) CategoryDistribution(ctx context.Context, f Filters, limit int) ([]CategoryCount, error) {
	where, args := buildConditions(f)
	query := `
		SELECT c.id, c.name, COUNT(*) as cnt,
			COALESCE((ARRAY_AGG(p.image_url) FILTER (WHERE p.image_url IS NOT NULL))[1], '') as image_url
		FROM products p
		JOIN merchants m ON m.id = p.merchant_id
		LEFT JOIN brands br ON br.id = p.brand_id
		JOIN categories c ON c.id = p.category_id
		WHERE ` + where + `
		GROUP BY c.id, c.name
		ORDER BY cnt DESC
		LIMIT $` + placeholderIndex(len(args)+1)

	rows, err := e.pool.Query(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.CategoryID, &c.CategoryName, &c.Count, &c.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func totalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func fallbackResponse(page, perPage int, start time.Time) Response {
	return Response{
		Total:           0,
		Page:            page,
		PerPage:         perPage,
		TotalPages:      0,
		ExecutionTimeMs: elapsedMs(start),
		SearchType:      "fallback",
	}
}

func paginateRows(rows []productRow, page, perPage int) []productRow {
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// groupingKeyFor mirrors store.GroupingKey's priority (ean > mpn >
// normalized title) over a search-row's already-loaded fields, avoiding a
// second database round trip.
func groupingKeyFor(r productRow) string {
	return store.GroupingKey(r.EAN, r.MPN, &r.Title)
}

func placeholderIndex(n int) string {
	// small helper kept local to avoid importing strconv just for one call site
	digits := [20]byte{}
	i := len(digits)
	if n == 0 {
		return "0"
	}
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
