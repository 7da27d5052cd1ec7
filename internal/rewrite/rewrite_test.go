package rewrite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteTypoFastPath(t *testing.T) {
	r := New(nil)
	res := r.Rewrite(context.Background(), "aple")
	assert.Equal(t, "apple", res.CorrectedQuery)
	assert.Equal(t, "typo", res.Source)
}

func TestRewritePatternTierExtractsComponents(t *testing.T) {
	r := New(nil)
	res := r.Rewrite(context.Background(), "samsung smartphone case")
	assert.Contains(t, res.Components.Brands, "samsung")
	assert.Contains(t, res.Components.Categories, "smartphone")
	assert.Contains(t, res.Components.ProductTerms, "case")
	assert.Equal(t, "pattern", res.Source)
}

func TestRewriteNeverFails(t *testing.T) {
	// spec §8 "Rewriter safety": every input returns a non-null result.
	r := New(nil)
	for _, q := range []string{"", "   ", "???", "a very long query with many words indeed"} {
		res := r.Rewrite(context.Background(), q)
		assert.NotNil(t, res)
	}
}

type stubLLM struct {
	result Result
	err    error
	delay  time.Duration
}

func (s *stubLLM) Rewrite(ctx context.Context, query string) (Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestRewriteLLMTierUsedAndCached(t *testing.T) {
	calls := 0
	stub := &stubLLM{result: Result{CorrectedQuery: "corrected", Confidence: 0.9}}
	r := New(&countingLLM{stubLLM: stub, calls: &calls})

	res := r.Rewrite(context.Background(), "some query")
	assert.Equal(t, "corrected", res.CorrectedQuery)
	assert.Equal(t, "llm", res.Source)

	r.Rewrite(context.Background(), "some query")
	assert.Equal(t, 1, calls, "second call should hit the memoized cache")
}

type countingLLM struct {
	*stubLLM
	calls *int
}

func (c *countingLLM) Rewrite(ctx context.Context, query string) (Result, error) {
	*c.calls++
	return c.stubLLM.Rewrite(ctx, query)
}

func TestRewriteLLMTimeoutFallsBackToPattern(t *testing.T) {
	stub := &stubLLM{delay: 5 * time.Second, err: errors.New("should not surface")}
	r := New(stub)

	start := time.Now()
	res := r.Rewrite(context.Background(), "laptop bag")
	elapsed := time.Since(start)

	require.Less(t, elapsed, 3*time.Second, "must respect the <=2s llm timeout")
	assert.Equal(t, "pattern", res.Source)
}
