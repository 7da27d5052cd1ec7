package rewrite

import "strings"

// typoDictionary is the static fast-path typo -> canonical map (spec §4.4
// tier 1), ported verbatim from original_source/search_service.py's
// common_corrections table shared by search_products and
// fuzzy_search_suggestions.
var typoDictionary = map[string]string{
	"aple":         "apple",
	"aplle":        "apple",
	"appel":        "apple",
	"samsun":       "samsung",
	"samsng":       "samsung",
	"iphne":        "iphone",
	"iphon":        "iphone",
	"smartphne":    "smartphone",
	"smartphn":     "smartphone",
	"laptp":        "laptop",
	"lapto":        "laptop",
	"headphnes":    "headphones",
	"headphne":     "headphone",
	"camra":        "camera",
	"chargr":       "charger",
	"keybord":      "keyboard",
	"mous":         "mouse",
	"speakr":       "speaker",
	"microphne":    "microphone",
	"blutooth":     "bluetooth",
}

// lookupTypo returns the canonical correction for query if the whole
// (lowercased, trimmed) query matches a known typo, and whether it matched.
func lookupTypo(query string) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(query))
	corrected, ok := typoDictionary[norm]
	return corrected, ok
}

// LookupTypo exposes the shared typo dictionary to other packages (spec
// §4.6: the Suggestion Service's ordering tier 1 uses the same dictionary
// as the Query Rewriter).
func LookupTypo(query string) (string, bool) {
	return lookupTypo(query)
}

// brandTokens and categoryTokens are the curated, extensible token lists
// the regex/pattern tier matches against (spec §4.4 tier 2). Extracted from
// the canonical forms the typo dictionary corrects to, plus common brands
// observed across the example feeds' product titles.
var brandTokens = []string{
	"apple", "samsung", "sony", "lg", "xiaomi", "huawei", "nokia",
	"lenovo", "dell", "hp", "asus", "acer", "microsoft", "google",
	"bosch", "philips", "braun", "nike", "adidas",
}

var categoryTokens = []string{
	"smartphone", "phone", "iphone", "laptop", "tablet", "headphone",
	"headphones", "camera", "charger", "keyboard", "mouse", "speaker",
	"microphone", "bluetooth", "tv", "television", "monitor", "printer",
	"watch", "smartwatch", "shoes", "clothing",
}
