package search

import (
	"sort"
)

// compositeKey folds brand_id and category_id equality into the grouping
// key (spec §3: same grouping key AND same brand AND same category are
// required to be considered the same product), mirroring store.SameGroup
// without a second query.
func compositeKey(r productRow) string {
	return groupingKeyFor(r) + "|" + strPtr(r.BrandID) + "|" + strPtr(r.CategoryID)
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// buildGroups aggregates candidate rows into Groups keyed by grouping key +
// brand + category (spec §3 / §4.5). Representative title/description/
// image are the most frequent (mode) value in the group, ties broken by
// lowest product id, matching the original's `MODE() WITHIN GROUP` choice.
func buildGroups(rows []productRow) []Group {
	order := make([]string, 0)
	byKey := make(map[string][]productRow)
	for _, r := range rows {
		k := compositeKey(r)
		if _, ok := byKey[k]; !ok {
			order = append(order, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		members := byKey[k]
		groups = append(groups, summarizeGroup(k, members))
	}
	return groups
}

func summarizeGroup(key string, members []productRow) Group {
	sort.Slice(members, func(i, j int) bool { return members[i].ProductID < members[j].ProductID })

	g := Group{
		GroupKey: key,
		Title:    modeString(members, func(r productRow) string { return r.Title }),
	}

	if d := modeStringPtr(members, func(r productRow) *string { return r.Description }); d != "" {
		desc := d
		g.Description = &desc
	}
	if img := modeStringPtr(members, func(r productRow) *string { return r.ImageURL }); img != "" {
		image := img
		g.ImageURL = &image
	}
	g.BrandName = members[0].BrandName
	g.CategoryName = members[0].CategoryName

	shopNames := make([]string, 0, len(members))
	shopSeen := make(map[string]bool)
	var sum float64
	g.MinPrice = members[0].Price
	g.MaxPrice = members[0].Price
	for _, m := range members {
		g.MinPrice = min(g.MinPrice, m.Price)
		g.MaxPrice = max(g.MaxPrice, m.Price)
		sum += m.Price
		if m.Availability {
			g.Availability = true
			g.AvailableShops++
			if g.BestAvailablePrice == nil || m.Price < *g.BestAvailablePrice {
				p := m.Price
				g.BestAvailablePrice = &p
			}
		}
		if !shopSeen[m.MerchantName] {
			shopSeen[m.MerchantName] = true
			shopNames = append(shopNames, m.MerchantName)
		}
		g.ProductIDs = append(g.ProductIDs, m.ProductID)
	}
	g.AvgPrice = sum / float64(len(members))
	g.ShopCount = len(shopSeen)
	g.ShopNames = shopNames
	return g
}

func modeString(rows []productRow, f func(productRow) string) string {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[f(r)]++
	}
	return pickMode(rows, counts, func(r productRow) string { return f(r) })
}

func modeStringPtr(rows []productRow, f func(productRow) *string) string {
	counts := make(map[string]int)
	for _, r := range rows {
		if v := f(r); v != nil && *v != "" {
			counts[*v]++
		}
	}
	return pickMode(rows, counts, func(r productRow) string {
		if v := f(r); v != nil {
			return *v
		}
		return ""
	})
}

func pickMode(rows []productRow, counts map[string]int, f func(productRow) string) string {
	best := ""
	bestCount := 0
	for _, r := range rows {
		v := f(r)
		if v == "" {
			continue
		}
		if c := counts[v]; c > bestCount {
			bestCount = c
			best = v
		}
	}
	return best
}

// sortRows orders flat candidate rows per sort mode (spec §4.5 tie-breaks:
// availability desc, then... for non-relevance sorts the sort column
// itself is the primary key and ties fall back to product id for
// determinism).
func sortRows(rows []productRow, sortMode Sort, tokens []string) {
	switch sortMode {
	case SortPriceAsc:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Price != rows[j].Price {
				return rows[i].Price < rows[j].Price
			}
			return rows[i].ProductID < rows[j].ProductID
		})
	case SortPriceDesc:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Price != rows[j].Price {
				return rows[i].Price > rows[j].Price
			}
			return rows[i].ProductID < rows[j].ProductID
		})
	case SortAvailability:
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].Availability != rows[j].Availability {
				return rows[i].Availability
			}
			return rows[i].ProductID < rows[j].ProductID
		})
	case SortNewest:
		sort.SliceStable(rows, func(i, j int) bool {
			if !rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
				return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
			}
			return rows[i].ProductID < rows[j].ProductID
		})
	default: // SortRelevance
		sort.SliceStable(rows, func(i, j int) bool {
			si, sj := relevanceScore(rows[i].Title, tokens), relevanceScore(rows[j].Title, tokens)
			if si != sj {
				return si > sj
			}
			if rows[i].Availability != rows[j].Availability {
				return rows[i].Availability
			}
			if rows[i].Price != rows[j].Price {
				return rows[i].Price < rows[j].Price
			}
			return rows[i].ProductID < rows[j].ProductID
		})
	}
}

// sortGroups orders aggregated groups per sort mode, with the shared
// tie-break chain from spec §4.5: availability ratio desc, min_price asc,
// shop_count desc.
func sortGroups(groups []Group, sortMode Sort, tokens []string) {
	availRatio := func(g Group) float64 {
		if g.ShopCount == 0 {
			return 0
		}
		return float64(g.AvailableShops) / float64(g.ShopCount)
	}
	tieBreak := func(i, j int) bool {
		gi, gj := groups[i], groups[j]
		if ri, rj := availRatio(gi), availRatio(gj); ri != rj {
			return ri > rj
		}
		if gi.MinPrice != gj.MinPrice {
			return gi.MinPrice < gj.MinPrice
		}
		if gi.ShopCount != gj.ShopCount {
			return gi.ShopCount > gj.ShopCount
		}
		return gi.GroupKey < gj.GroupKey
	}

	switch sortMode {
	case SortPriceAsc:
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].MinPrice != groups[j].MinPrice {
				return groups[i].MinPrice < groups[j].MinPrice
			}
			return tieBreak(i, j)
		})
	case SortPriceDesc:
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].MaxPrice != groups[j].MaxPrice {
				return groups[i].MaxPrice > groups[j].MaxPrice
			}
			return tieBreak(i, j)
		})
	case SortAvailability:
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].Availability != groups[j].Availability {
				return groups[i].Availability
			}
			return tieBreak(i, j)
		})
	case SortNewest:
		sort.SliceStable(groups, tieBreak)
	default: // SortRelevance
		sort.SliceStable(groups, func(i, j int) bool {
			si, sj := relevanceScore(groups[i].Title, tokens), relevanceScore(groups[j].Title, tokens)
			if si != sj {
				return si > sj
			}
			return tieBreak(i, j)
		})
	}
}
