package store

import "testing"

func strp(s string) *string { return &s }

func TestGroupingKeyPriority(t *testing.T) {
	title := "Apple iPhone 15, 128GB!"

	if got := GroupingKey(strp("0123456789012"), strp("MPN-1"), &title); got != "0123456789012" {
		t.Fatalf("expected ean to win, got %q", got)
	}
	if got := GroupingKey(strp(""), strp("MPN-1"), &title); got != "MPN-1" {
		t.Fatalf("expected mpn to win when ean blank, got %q", got)
	}
	if got := GroupingKey(nil, nil, &title); got != "apple iphone 15 128gb" {
		t.Fatalf("expected normalized title fallback, got %q", got)
	}
}

func TestGroupingKeyWhitespaceCollapsed(t *testing.T) {
	title := "Nike   Air -- Max"
	got := GroupingKey(nil, nil, &title)
	if got != "nike air max" {
		t.Fatalf("expected collapsed spaces, got %q", got)
	}
}

func TestSameGroupRequiresBrandAndCategory(t *testing.T) {
	titleA := "Widget"
	titleB := "Widget"
	a := &Product{Title: titleA, BrandID: strp("b1"), CategoryID: strp("c1")}
	b := &Product{Title: titleB, BrandID: strp("b1"), CategoryID: strp("c1")}
	if !SameGroup(a, b) {
		t.Fatal("expected same group: identical key, brand, category")
	}

	c := &Product{Title: titleB, BrandID: strp("b2"), CategoryID: strp("c1")}
	if SameGroup(a, c) {
		t.Fatal("expected different group: brand mismatch")
	}
}

func TestGroupingEquivalenceEAN(t *testing.T) {
	// Testable property (spec §8): two Products with identical non-empty
	// ean, equal brand_id, equal category_id are always in the same
	// aggregated group, regardless of title differences.
	a := &Product{EAN: strp("5901234123457"), Title: "Foo Bar 500ml", BrandID: strp("b1"), CategoryID: strp("c1")}
	b := &Product{EAN: strp("5901234123457"), Title: "Completely Different Title", BrandID: strp("b1"), CategoryID: strp("c1")}
	if !SameGroup(a, b) {
		t.Fatal("expected same group by shared ean despite differing titles")
	}
}
