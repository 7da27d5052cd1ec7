package search

import "fmt"

// conditionBuilder accumulates `$N`-bound WHERE clauses, always parameterized
// (spec §4.5 / DESIGN.md: the original built brand/category LIKE clauses via
// unsafe string interpolation; every predicate here binds through $N).
type conditionBuilder struct {
	clauses []string
	args    []any
}

func (b *conditionBuilder) add(clause string, args ...any) {
	placeholders := make([]any, len(args))
	for i, a := range args {
		b.args = append(b.args, a)
		placeholders[i] = len(b.args)
	}
	b.clauses = append(b.clauses, fmt.Sprintf(clause, placeholders...))
}

func (b *conditionBuilder) where() string {
	if len(b.clauses) == 0 {
		return "TRUE"
	}
	out := b.clauses[0]
	for _, c := range b.clauses[1:] {
		out += " AND " + c
	}
	return out
}

// buildConditions translates Filters into the shared WHERE clause used by
// the flat search, the aggregated search, the count query, and the
// candidate-row prefilter. Blank entries in slice filters are dropped
// first (spec §9: blank categories/brands are ignored, not treated as
// "match nothing").
func buildConditions(f Filters) (string, []any) {
	b := &conditionBuilder{}

	if f.Title != "" {
		b.add("(p.title ILIKE $%d OR p.search_text ILIKE $%d)", "%"+f.Title+"%", "%"+f.Title+"%")
	}
	if f.Brand != "" {
		b.add("LOWER(br.name) = LOWER($%d)", f.Brand)
	}
	if brands := nonBlank(f.Brands); len(brands) > 0 {
		b.add("br.name = ANY($%d)", brands)
	}
	if f.Category != "" {
		b.add("LOWER(c.name) = LOWER($%d)", f.Category)
	}
	if cats := nonBlank(f.Categories); len(cats) > 0 {
		b.add("c.name = ANY($%d)", cats)
	}
	if f.MinPrice != nil {
		b.add("p.price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		b.add("p.price <= $%d", *f.MaxPrice)
	}
	if f.EAN != "" {
		b.add("p.ean = $%d", f.EAN)
	}
	if f.MPN != "" {
		b.add("p.mpn = $%d", f.MPN)
	}
	if f.Availability != nil {
		b.add("p.availability = $%d", *f.Availability)
	}
	if shops := nonBlank(f.Shops); len(shops) > 0 {
		b.add("m.name = ANY($%d)", shops)
	}

	return b.where(), b.args
}
