package search

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// candidateCap bounds how many rows are pulled for relevance scoring and
// aggregation before Go-side pagination. Large enough that realistic
// catalogs score and group their full candidate set; if hit, the engine
// logs it rather than silently truncating (spec §9 "no silent caps"
// analogue carried from the workflow discipline this repo follows).
const candidateCap = 5000

type productRow struct {
	ProductID    string
	Title        string
	Description  *string
	ImageURL     *string
	Price        float64
	Availability bool
	MerchantID   string
	MerchantName string
	BrandID      *string
	BrandName    *string
	CategoryID   *string
	CategoryName *string
	EAN          *string
	MPN          *string
	UpdatedAt    time.Time
}

const rowColumns = `
	p.id, p.title, p.description, p.image_url, p.price, p.availability,
	p.merchant_id, m.name, p.brand_id, br.name, p.category_id, c.name, p.ean, p.mpn, p.updated_at
`

const rowJoins = `
	FROM products p
	JOIN merchants m ON m.id = p.merchant_id
	LEFT JOIN brands br ON br.id = p.brand_id
	LEFT JOIN categories c ON c.id = p.category_id
`

func fetchCandidateRows(ctx context.Context, pool *pgxpool.Pool, where string, args []any) ([]productRow, error) {
	query := "SELECT " + rowColumns + rowJoins + " WHERE " + where + fmt.Sprintf(" ORDER BY p.id LIMIT %d", candidateCap)
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []productRow
	for rows.Next() {
		var r productRow
		if err := rows.Scan(&r.ProductID, &r.Title, &r.Description, &r.ImageURL, &r.Price, &r.Availability,
			&r.MerchantID, &r.MerchantName, &r.BrandID, &r.BrandName, &r.CategoryID, &r.CategoryName, &r.EAN, &r.MPN, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func countMatches(ctx context.Context, pool *pgxpool.Pool, where string, args []any, distinctGroup bool) (int, error) {
	selectExpr := "COUNT(*)"
	if distinctGroup {
		selectExpr = "COUNT(DISTINCT COALESCE(NULLIF(p.ean, ''), NULLIF(p.mpn, ''), LOWER(p.title)))"
	}
	query := "SELECT " + selectExpr + rowJoins + " WHERE " + where
	var total int
	if err := pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
