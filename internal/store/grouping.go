package store

import (
	"regexp"
	"strings"
)

var nonAlnumSpace = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
var collapseSpace = regexp.MustCompile(`\s+`)

// GroupingKey computes the runtime grouping key for a Product per spec §3:
// trimmed non-empty ean, else trimmed non-empty mpn, else the lowercased,
// punctuation-stripped title. Brand and category are not folded into the
// string key; callers must additionally require equal brand_id and
// category_id, as buildGroups in internal/search does when it groups
// candidate rows in Go.
func GroupingKey(ean, mpn, title *string) string {
	if ean != nil {
		if t := strings.TrimSpace(*ean); t != "" {
			return t
		}
	}
	if mpn != nil {
		if t := strings.TrimSpace(*mpn); t != "" {
			return t
		}
	}
	cleaned := nonAlnumSpace.ReplaceAllString(title2(title), "")
	cleaned = collapseSpace.ReplaceAllString(cleaned, " ")
	return strings.ToLower(strings.TrimSpace(cleaned))
}

func title2(t *string) string {
	if t == nil {
		return ""
	}
	return *t
}

// SameGroup reports whether two products are logically the same product
// per spec §3: equal grouping key, equal brand_id, equal category_id.
func SameGroup(a, b *Product) bool {
	if !equalStrPtr(a.BrandID, b.BrandID) || !equalStrPtr(a.CategoryID, b.CategoryID) {
		return false
	}
	return GroupingKey(a.EAN, a.MPN, &a.Title) == GroupingKey(b.EAN, b.MPN, &b.Title)
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
