// Package normalize is the XML Normalizer (spec §4.2): a pure, deterministic
// function mapping a raw feed document to a sequence of normalized product
// records. It resolves fields via an ordered candidate-tag list per logical
// field, matching original_source/xml_parser.py's field_mappings table, and
// reuses internal/parsers/xml for XML decoding and items-path detection.
package normalize

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/kosarica/price-service/internal/matching"
	xmlparser "github.com/kosarica/price-service/internal/parsers/xml"
)

// Record is one normalized product, pre-Store-upsert.
type Record struct {
	ExternalID       string
	Title            string
	Description      string
	Brand            string
	CategoryLeaf     string
	CategoryPath     []string
	EAN              string
	MPN              string
	SKU              string
	Price            *float64
	OriginalPrice    *float64
	DiscountPct      *float64
	Availability     bool
	StockQty         *int
	ImageURL         string
	AdditionalImages []string
	ProductURL       string
	Specifications   map[string]string
	SearchText       string
}

// Warning describes a dropped or degraded record (spec §7 category 5:
// data-quality). Ingestion logs each one at debug level and counts them in
// SyncResult.Warnings; they are not persisted.
type Warning struct {
	Index   int
	Reason  string
	Title   string // best-effort, for operator readability
}

// candidates lists, in priority order, the tag names tried for each logical
// field. First non-empty wins (spec §4.2). Ported from
// original_source/xml_parser.py's field_mappings dict.
var candidates = map[string][]string{
	"title":          {"name", "title", "product_name", "item_name"},
	"description":    {"description", "desc", "product_description", "short_description"},
	"brand":          {"brand", "manufacturer", "vendor"},
	"category":       {"category", "category_path", "categories", "product_category"},
	"ean":            {"ean", "barcode", "gtin", "ean13"},
	"mpn":            {"mpn", "model", "part_number", "manufacturer_part_number"},
	"sku":            {"sku", "id", "product_id", "code"},
	"price":          {"price_with_vat", "price", "final_price", "selling_price"},
	"original_price": {"old_price", "original_price", "regular_price", "list_price", "msrp"},
	"availability":   {"instock", "availability", "in_stock", "stock", "available", "status"},
	"stock_qty":      {"stock_quantity", "quantity", "stock_qty", "qty", "inventory"},
	"image_url":      {"image", "image_url", "images", "picture", "photo"},
	"product_url":    {"url", "link", "product_url"},
}

// truthyAvailabilityTokens carries the Greek token spec.md names explicitly
// plus the French/German/Italian/Spanish equivalents confirmed present in
// original_source/xml_parser.py but absent from spec.md's prose — a
// supplement, not a contradiction (spec.md's Non-goals do not exclude
// localization of this token set).
var truthyAvailabilityTokens = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true,
	"available": true, "in stock": true,
	"διαθέσιμο":  true, // Greek
	"disponible": true, // French/Spanish
	"en stock":   true, // French
	"auf lager":  true, // German
	"disponibile": true, // Italian
}

var categorySplitRe = regexp.MustCompile(`[>/\-|]`)
var currencySymbols = strings.NewReplacer("€", "", "$", "", "£", "", "₹", "", "¥", "", "¢", "", " ", "")
var currencyWordsRe = regexp.MustCompile(`(?i)\s*(kn|kuna|hrk|eur|usd)\s*$`)

// Normalize converts feed bytes into normalized Records plus Warnings for
// dropped rows. Same bytes in always yields the same output (spec §8
// "Normalization determinism"): no clocks, no randomness, no network calls.
func Normalize(content []byte) ([]Record, []Warning) {
	parser := xmlparser.NewParser(xmlparser.DefaultXmlOptions())
	items, err := parser.ParseRawItems(content)
	if err != nil {
		return nil, []Warning{{Index: -1, Reason: fmt.Sprintf("parse feed: %v", err)}}
	}

	var records []Record
	var warnings []Warning

	for i, item := range items {
		rec, mappedKeys, warn := normalizeItem(item)
		if warn != "" {
			warnings = append(warnings, Warning{Index: i, Reason: warn, Title: rec.Title})
			continue
		}
		rec.Specifications = unmappedSpecifications(item, mappedKeys)
		rec.SearchText = buildSearchText(rec)
		records = append(records, rec)
	}

	return records, warnings
}

func normalizeItem(item map[string]interface{}) (Record, map[string]bool, string) {
	mapped := make(map[string]bool)

	title := firstNonEmpty(item, candidates["title"], mapped)
	if title == "" {
		return Record{}, mapped, "missing mandatory field: title"
	}

	rec := Record{
		ExternalID:   firstNonEmpty(item, candidates["sku"], mapped),
		Title:        title,
		Description:  firstNonEmpty(item, candidates["description"], mapped),
		Brand:        firstNonEmpty(item, candidates["brand"], mapped),
		EAN:          matching.NormalizeBarcode(strings.TrimSpace(firstNonEmpty(item, candidates["ean"], mapped))),
		MPN:          strings.TrimSpace(firstNonEmpty(item, candidates["mpn"], mapped)),
		SKU:          firstNonEmpty(item, candidates["sku"], mapped),
		ProductURL:   firstNonEmpty(item, candidates["product_url"], mapped),
	}

	categoryRaw := firstNonEmpty(item, candidates["category"], mapped)
	rec.CategoryPath, rec.CategoryLeaf = parseCategoryPath(categoryRaw)

	priceRaw := firstNonEmpty(item, candidates["price"], mapped)
	rec.Price = parsePrice(priceRaw)

	origRaw := firstNonEmpty(item, candidates["original_price"], mapped)
	rec.OriginalPrice = parsePrice(origRaw)

	if rec.Price != nil && rec.OriginalPrice != nil && *rec.OriginalPrice > *rec.Price {
		pct := math.Round((*rec.OriginalPrice-*rec.Price) / *rec.OriginalPrice*100*100) / 100
		rec.DiscountPct = &pct
	}

	availRaw := firstNonEmpty(item, candidates["availability"], mapped)
	stockRaw := firstNonEmpty(item, candidates["stock_qty"], mapped)
	rec.StockQty = parseStockQty(stockRaw)
	rec.Availability = resolveAvailability(availRaw, rec.StockQty)

	imageRaw := firstNonEmpty(item, candidates["image_url"], mapped)
	rec.ImageURL, rec.AdditionalImages = splitAndValidateImages(imageRaw)

	return rec, mapped, ""
}

// firstNonEmpty tries each candidate tag name (case-insensitively) and
// returns the first non-blank string value found, marking each tried key
// (found or not) as considered so unmapped tags can be recovered as
// specifications.
func firstNonEmpty(item map[string]interface{}, keys []string, mapped map[string]bool) string {
	for _, key := range keys {
		if v, k, ok := lookupCaseInsensitive(item, key); ok {
			mapped[k] = true
			if s := valueToString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func lookupCaseInsensitive(item map[string]interface{}, key string) (interface{}, string, bool) {
	if v, ok := item[key]; ok {
		return v, key, true
	}
	for k, v := range item {
		if strings.EqualFold(k, key) {
			return v, k, true
		}
	}
	return nil, "", false
}

func valueToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		for _, textKey := range []string{"#text", "_text", "."} {
			if tv, ok := v[textKey]; ok {
				return valueToString(tv)
			}
		}
		return ""
	case []interface{}:
		if len(v) > 0 {
			return valueToString(v[0])
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// unmappedSpecifications carries every item key not consumed by a logical
// field into the specifications bag, per spec §4.2 "Specifications are
// whatever child tags remain unmapped."
func unmappedSpecifications(item map[string]interface{}, mapped map[string]bool) map[string]string {
	specs := make(map[string]string)
	for k, v := range item {
		if mapped[k] || strings.HasPrefix(k, "@_") {
			continue
		}
		if s := valueToString(v); s != "" {
			specs[k] = s
		}
	}
	return specs
}

func parseCategoryPath(raw string) ([]string, string) {
	if raw == "" {
		return nil, ""
	}
	parts := categorySplitRe.Split(raw, -1)
	var path []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			path = append(path, p)
		}
	}
	if len(path) == 0 {
		return nil, ""
	}
	return path, path[len(path)-1]
}

// parsePrice strips currency symbols/words, detects a European vs US
// decimal separator by comparing the last '.' and last ',' index, and
// parses the remaining digits as a decimal. Returns nil, not an error, on
// anything unparseable (spec §4.2 "Non-parseable -> null").
func parsePrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	cleaned := currencySymbols.Replace(raw)
	cleaned = currencyWordsRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastComma > lastDot:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case lastDot > lastComma:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	hasDigit := false
	for _, r := range cleaned {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return nil
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || val < 0 {
		return nil
	}
	rounded := math.Round(val*100) / 100
	return &rounded
}

func parseStockQty(raw string) *int {
	if raw == "" {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return &n
	}
	if truthyAvailabilityTokens[strings.ToLower(strings.TrimSpace(raw))] {
		one := 1
		return &one
	}
	return nil
}

// resolveAvailability applies §4.2's precedence: an explicit truthy token
// wins; else stock_qty > 0 implies true; else false (the pinned Open
// Question resolution for "both missing").
func resolveAvailability(raw string, stockQty *int) bool {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm != "" {
		if truthyAvailabilityTokens[norm] {
			return true
		}
		// An explicit falsy-looking token ("false", "0", "out of stock", ...)
		// still defers to stock_qty below rather than being enumerated,
		// since the source token vocabulary for "unavailable" is unbounded.
	}
	if stockQty != nil && *stockQty > 0 {
		return true
	}
	return false
}

func splitAndValidateImages(raw string) (string, []string) {
	if raw == "" {
		return "", nil
	}
	parts := regexp.MustCompile(`[,;|]`).Split(raw, -1)
	var valid []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return "", nil
	}
	return valid[0], valid[1:]
}

// buildSearchText concatenates title/brand/category/ean/mpn and the first
// 200 chars of description, truncated to 1000 chars total (spec §4.2,
// glossary "Search text"). A diacritic-folded form of title/brand/category is
// appended so pg_trgm/ILIKE matching on the resulting text is tolerant of a
// merchant feed's locale (e.g. Croatian "č"/"š"/"ž", or general NFD accents)
// without requiring the query itself to match the feed's exact spelling.
func buildSearchText(r Record) string {
	desc := r.Description
	if len(desc) > 200 {
		desc = desc[:200]
	}
	parts := []string{r.Title, r.Brand, r.CategoryLeaf, r.EAN, r.MPN, desc}
	var folded []string
	for _, original := range []string{r.Title, r.Brand, r.CategoryLeaf} {
		if f := matching.RemoveDiacritics(original); f != "" && f != original {
			folded = append(folded, f)
		}
	}
	joined := strings.TrimSpace(strings.Join(filterEmpty(append(parts, folded...)), " "))
	if len(joined) > 1000 {
		joined = joined[:1000]
	}
	return joined
}

func filterEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
