package search

import "testing"

func TestRelevanceScorePhraseBeatsPartial(t *testing.T) {
	tokens := queryTokens("samsung galaxy")
	exact := relevanceScore("Samsung Galaxy S24 Ultra", tokens)
	partial := relevanceScore("Galaxy accessory for Samsung phones", tokens)
	if exact <= partial {
		t.Fatalf("expected exact phrase match to outscore scattered tokens: %d vs %d", exact, partial)
	}
}

func TestRelevanceScorePrefixBeatsTokenScatter(t *testing.T) {
	tokens := queryTokens("wireless mouse")
	prefix := relevanceScore("Wireless Mouse Pro", tokens)
	scatter := relevanceScore("Ergonomic Mouse with Wireless Dongle", tokens)
	if prefix <= scatter {
		t.Fatalf("expected prefix match to outscore scatter: %d vs %d", prefix, scatter)
	}
}

func TestWordOrderBonusPrefersSequentialPairs(t *testing.T) {
	tokens := []string{"red", "leather", "wallet"}
	sequential := wordOrderBonus("a red leather wallet for men", tokens)
	scrambled := wordOrderBonus("a wallet made of leather, available in red", tokens)
	if sequential <= scrambled {
		t.Fatalf("expected sequential token order to score higher: %d vs %d", sequential, scrambled)
	}
}

func TestPositionBonusRewardsLeadingToken(t *testing.T) {
	tokens := []string{"apple", "watch"}
	if got := positionBonus("apple watch series 9", tokens); got != 15 {
		t.Fatalf("expected leading-token bonus 15, got %d", got)
	}
	if got := positionBonus("new apple watch series 9", tokens); got != 0 {
		t.Fatalf("expected no bonus when title doesn't start with t1, got %d", got)
	}
}

func TestQueryTokensCapsAtFive(t *testing.T) {
	tokens := queryTokens("one two three four five six seven")
	if len(tokens) != 5 {
		t.Fatalf("expected at most 5 tokens, got %d", len(tokens))
	}
}

func TestQueryTokensBlankInputYieldsNoTokens(t *testing.T) {
	if tokens := queryTokens("   "); len(tokens) != 0 {
		t.Fatalf("expected zero tokens for blank query, got %v", tokens)
	}
}
