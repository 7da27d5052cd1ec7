// Package rewrite is the Query Rewriter (spec §4.4): turns a raw query
// into a corrected query plus extracted brand/category/product-term
// components, through a typo-dictionary fast path, a regex/token pattern
// tier, and an optional LLM tier.
package rewrite

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Components is the structured extraction the rewriter produces.
type Components struct {
	Brands       []string `json:"brands"`
	Categories   []string `json:"categories"`
	ProductTerms []string `json:"product_terms"`
	Attributes   []string `json:"attributes"`
}

// Result is the rewriter's output. Confidence is a best-effort score, not
// used for ranking decisions beyond being echoed back to callers.
type Result struct {
	CorrectedQuery string     `json:"corrected_query"`
	Components     Components `json:"components"`
	Confidence     float64    `json:"confidence"`
	Source         string     `json:"source"` // "typo" | "pattern" | "llm" | "fallback"
}

// LLMRewriter is the optional best-effort tier. Implementations must
// respect ctx's deadline and never block past it (spec §4.4/§5: hard <=2s
// timeout enforced by the caller regardless).
type LLMRewriter interface {
	Rewrite(ctx context.Context, query string) (Result, error)
}

// Rewriter implements the tiered design. The zero value is usable (LLM
// disabled); set LLM to enable the optional tier.
type Rewriter struct {
	LLM   LLMRewriter
	cache sync.Map // normalized query -> Result, process-lifetime (LLM results only)
}

func New(llm LLMRewriter) *Rewriter {
	return &Rewriter{LLM: llm}
}

// Rewrite never fails: on any internal error it returns
// (original_query, empty components, confidence=0.5) per spec §4.4's
// guarantee and §8's "Rewriter safety" testable property.
func (r *Rewriter) Rewrite(ctx context.Context, query string) (out Result) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("query", query).Msg("rewriter panic recovered")
			out = Result{CorrectedQuery: query, Confidence: 0.5, Source: "fallback"}
		}
	}()

	if query == "" {
		return Result{CorrectedQuery: query, Confidence: 0.5, Source: "fallback"}
	}

	if corrected, ok := lookupTypo(query); ok {
		return Result{
			CorrectedQuery: corrected,
			Components:     componentsFromPattern(corrected),
			Confidence:     0.95,
			Source:         "typo",
		}
	}

	if r.LLM != nil {
		norm := strings.ToLower(strings.TrimSpace(query))
		if cached, ok := r.cache.Load(norm); ok {
			return cached.(Result)
		}
		llmCtx, cancel := context.WithTimeout(ctx, llmTimeout)
		res, err := r.LLM.Rewrite(llmCtx, query)
		cancel()
		if err == nil {
			res.Source = "llm"
			r.cache.Store(norm, res)
			return res
		}
		// timeout or malformed output falls back to the pattern tier, never
		// propagates an error (spec §4.4 tier 3).
	}

	return Result{
		CorrectedQuery: query,
		Components:     componentsFromPattern(query),
		Confidence:     0.7,
		Source:         "pattern",
	}
}

// componentsFromPattern matches normalized query tokens against the curated
// brand/category token lists; unmatched tokens become product_terms (spec
// §4.4 tier 2).
func componentsFromPattern(query string) Components {
	tokens := strings.Fields(strings.ToLower(query))
	var c Components

	brandSet := toSet(brandTokens)
	categorySet := toSet(categoryTokens)

	for _, tok := range tokens {
		switch {
		case brandSet[tok]:
			c.Brands = append(c.Brands, tok)
		case categorySet[tok]:
			c.Categories = append(c.Categories, tok)
		default:
			c.ProductTerms = append(c.ProductTerms, tok)
		}
	}
	return c
}

func toSet(in []string) map[string]bool {
	m := make(map[string]bool, len(in))
	for _, s := range in {
		m[s] = true
	}
	return m
}
