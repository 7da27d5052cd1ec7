// Package suggest is the Suggestion Service (spec §4.6): case-insensitive,
// deduplicated autocomplete over titles/brands/categories with a
// typo-dictionary fast path and an optional trigram fuzzy pass, bounded by
// a hard latency ceiling.
package suggest

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/kosarica/price-service/internal/rewrite"
)

// DefaultLimit caps how many suggestions are returned absent an explicit
// limit (spec §4.6: "up to N strings").
const DefaultLimit = 10

// latencyBudget is the hard ceiling a suggestion request is allotted
// (spec §4.6: "under 200ms at p95 on a warm cache").
const latencyBudget = 200 * time.Millisecond

// fuzzyThreshold is the pg_trgm similarity cutoff for the optional fuzzy
// pass (spec §4.6: "token-wise similarity with a 60% threshold").
const fuzzyThreshold = 0.6

// Suggestion is one autocomplete entry with the source tier it came from,
// preserved for clients that want to render typo corrections distinctly.
type Suggestion struct {
	Text   string `json:"text"`
	Source string `json:"source"` // "typo" | "title" | "brand" | "category" | "fuzzy"
}

// Service implements autocomplete over the product catalog.
type Service struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Suggest returns up to limit suggestions for query, never an error: any
// internal failure or timeout returns whatever was gathered so far,
// possibly empty (spec §4.6 / §7 graceful degradation).
func (s *Service) Suggest(ctx context.Context, query string, limit int, fuzzy bool) []Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, latencyBudget)
	defer cancel()

	out := make([]Suggestion, 0, limit)
	seen := make(map[string]struct{})

	add := func(text, source string) bool {
		norm := strings.ToLower(strings.TrimSpace(text))
		if norm == "" {
			return false
		}
		if _, dup := seen[norm]; dup {
			return false
		}
		seen[norm] = struct{}{}
		out = append(out, Suggestion{Text: text, Source: source})
		return len(out) >= limit
	}

	if corrected, ok := rewrite.LookupTypo(query); ok {
		if add(corrected, "typo") {
			return out
		}
	}

	rows, err := s.databaseSuggestions(ctx, query, limit-len(out))
	if err != nil {
		log.Warn().Err(err).Str("component", "suggest").Msg("database suggestions failed, degrading to partial result")
	}
	for _, r := range rows {
		if add(r.text, r.source) {
			return out
		}
	}

	if fuzzy && ctx.Err() == nil {
		fuzzyRows, err := s.fuzzySuggestions(ctx, query, limit-len(out))
		if err != nil {
			log.Warn().Err(err).Str("component", "suggest").Msg("fuzzy suggestions failed, degrading to partial result")
		}
		for _, r := range fuzzyRows {
			if add(r, "fuzzy") {
				return out
			}
		}
	}

	return out
}

type sourcedText struct {
	text   string
	source string
}

// databaseSuggestions runs one bounded UNION ALL query across titles,
// brands, and categories with a source-priority column, instead of the
// original's three sequential round trips (spec §4.6: "single bounded
// query rather than per-field probes").
func (s *Service) databaseSuggestions(ctx context.Context, query string, limit int) ([]sourcedText, error) {
	if limit <= 0 {
		return nil, nil
	}
	pattern := "%" + query + "%"

	rows, err := s.pool.Query(ctx, `
		(
			SELECT DISTINCT p.title AS text, 1 AS priority, 'title' AS source
			FROM products p
			WHERE p.title ILIKE $1
			LIMIT $2
		)
		UNION ALL
		(
			SELECT DISTINCT b.name AS text, 2 AS priority, 'brand' AS source
			FROM brands b
			WHERE b.name ILIKE $1
			LIMIT $2
		)
		UNION ALL
		(
			SELECT DISTINCT c.name AS text, 3 AS priority, 'category' AS source
			FROM categories c
			WHERE c.name ILIKE $1
			LIMIT $2
		)
		ORDER BY priority, text
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sourcedText
	for rows.Next() {
		var text, source string
		var priority int
		if err := rows.Scan(&text, &priority, &source); err != nil {
			return nil, err
		}
		out = append(out, sourcedText{text: text, source: source})
	}
	return out, rows.Err()
}

// fuzzySuggestions runs a pg_trgm similarity pass over product titles,
// grounded on internal/matching/ai.go's getTrgmCandidates — the corpus's
// idiomatic fuzzy-match primitive, reused here instead of hand-rolled
// Levenshtein/Jaro distance.
func (s *Service) fuzzySuggestions(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT title
		FROM products
		WHERE similarity(LOWER(title), LOWER($1)) > $2
		ORDER BY similarity(LOWER(title), LOWER($1)) DESC
		LIMIT $3
	`, query, fuzzyThreshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		out = append(out, title)
	}
	return out, rows.Err()
}
