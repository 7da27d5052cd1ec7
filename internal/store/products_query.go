package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/kosarica/price-service/internal/apperr"
)

const productColumns = `
	id, merchant_id, merchant_product_code, title, description, ean, mpn, sku,
	price, original_price, discount_pct, availability, stock_qty, image_url,
	additional_images, product_url, specifications, search_text, brand_id,
	category_id, created_at, updated_at
`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var specJSON []byte
	err := row.Scan(
		&p.ID, &p.MerchantID, &p.MerchantProductCode, &p.Title, &p.Description, &p.EAN, &p.MPN, &p.SKU,
		&p.Price, &p.OriginalPrice, &p.DiscountPct, &p.Availability, &p.StockQty, &p.ImageURL,
		&p.AdditionalImages, &p.ProductURL, &specJSON, &p.SearchText, &p.BrandID,
		&p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(specJSON) > 0 {
		if err := json.Unmarshal(specJSON, &p.Specifications); err != nil {
			return nil, apperr.Internalf(err, "unmarshal specifications for product %s", p.ID)
		}
	}
	return &p, nil
}

// GetProductByID returns the product by id, or a NotFound apperr.
func (s *Store) GetProductByID(ctx context.Context, id string) (*Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("product %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internalf(err, "get product %s", id)
	}
	return p, nil
}

// GetProductByEAN returns any one product carrying the given ean. Use
// ProductsByEAN for the full comparison set across merchants.
func (s *Store) GetProductByEAN(ctx context.Context, ean string) (*Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE ean = $1 ORDER BY id LIMIT 1`, ean)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("product with ean %s not found", ean)
	}
	if err != nil {
		return nil, apperr.Internalf(err, "get product by ean %s", ean)
	}
	return p, nil
}

// ComparisonEntry is one merchant's listing of a product, for
// GET /product/{id}/comparison (spec §8 scenario 5: one entry per distinct
// shop, deduplicated by shop).
type ComparisonEntry struct {
	MerchantID   string  `json:"merchant_id"`
	MerchantName string  `json:"merchant_name"`
	ProductID    string  `json:"product_id"`
	Price        float64 `json:"price"`
	Availability bool    `json:"availability"`
	ProductURL   *string `json:"product_url"`
}

// ProductComparison returns one entry per distinct merchant carrying a
// product with the same ean as productID's product, deduplicated by
// merchant (lowest price wins if a merchant somehow lists it twice).
func (s *Store) ProductComparison(ctx context.Context, productID string) ([]ComparisonEntry, error) {
	p, err := s.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.EAN == nil || *p.EAN == "" {
		return []ComparisonEntry{{
			MerchantID:   p.MerchantID,
			Price:        p.Price,
			Availability: p.Availability,
			ProductID:    p.ID,
			ProductURL:   p.ProductURL,
		}}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (pr.merchant_id)
			pr.merchant_id, m.name, pr.id, pr.price, pr.availability, pr.product_url
		FROM products pr
		JOIN merchants m ON m.id = pr.merchant_id
		WHERE pr.ean = $1
		ORDER BY pr.merchant_id, pr.price ASC
	`, *p.EAN)
	if err != nil {
		return nil, apperr.Internalf(err, "product comparison for %s", productID)
	}
	defer rows.Close()

	var out []ComparisonEntry
	for rows.Next() {
		var e ComparisonEntry
		if err := rows.Scan(&e.MerchantID, &e.MerchantName, &e.ProductID, &e.Price, &e.Availability, &e.ProductURL); err != nil {
			return nil, apperr.Internalf(err, "scan comparison row")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
