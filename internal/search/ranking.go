package search

import "strings"

// relevanceScore implements the exact weights from spec §4.5, computed
// Go-side against a materialized candidate row instead of the original's
// parameterized `LIKE` CASE SQL (see DESIGN.md: the original built those
// LIKE patterns via unsafe string interpolation for the brand/category
// conditions; this rewrite always binds those through $N placeholders and
// keeps only the pure string-matching scoring logic, which has no SQL
// injection surface, in Go).
func relevanceScore(title string, tokens []string) int {
	lowerTitle := strings.ToLower(title)
	phrase := strings.Join(tokens, " ")

	score := 0
	switch {
	case phrase != "" && strings.Contains(lowerTitle, phrase):
		score += 100
	case phrase != "" && strings.HasPrefix(lowerTitle, phrase):
		score += 80
	default:
		matched := 0
		for i, t := range tokens {
			if i >= 5 {
				break
			}
			if t != "" && strings.Contains(lowerTitle, t) {
				matched++
			}
		}
		score += 20 * matched
	}

	score += wordOrderBonus(lowerTitle, tokens)
	score += positionBonus(lowerTitle, tokens)
	return score
}

// wordOrderBonus rewards (t1,t2), (t2,t3), (t3,t4) appearing in sequence
// (not necessarily adjacent), taking the maximum applicable bonus.
func wordOrderBonus(lowerTitle string, tokens []string) int {
	pairs := []struct {
		i, j, bonus int
	}{
		{0, 1, 30},
		{1, 2, 20},
		{2, 3, 10},
	}
	best := 0
	for _, p := range pairs {
		if p.j >= len(tokens) {
			continue
		}
		a, b := tokens[p.i], tokens[p.j]
		if a == "" || b == "" {
			continue
		}
		ia := strings.Index(lowerTitle, a)
		if ia == -1 {
			continue
		}
		ib := strings.Index(lowerTitle[ia+len(a):], b)
		if ib == -1 {
			continue
		}
		if p.bonus > best {
			best = p.bonus
		}
	}
	return best
}

// positionBonus rewards the title starting with t1, t2, or t3 (spec §4.5:
// "15/10/5 if title starts with t1/t2/t3").
func positionBonus(lowerTitle string, tokens []string) int {
	weights := []int{15, 10, 5}
	for i, w := range weights {
		if i >= len(tokens) || tokens[i] == "" {
			continue
		}
		if strings.HasPrefix(lowerTitle, tokens[i]) {
			return w
		}
	}
	return 0
}

// queryTokens normalizes a free-text query into up to 5 lowercased tokens,
// matching the original's `search_terms` truncation.
func queryTokens(q string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(q)))
	if len(fields) > 5 {
		fields = fields[:5]
	}
	return fields
}
