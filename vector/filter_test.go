package vector

import "testing"

func productMetadata() map[string]any {
	return map[string]any{
		"price":           999.0,
		"category":        "Moisturizer",
		"skin_type":       []string{"oily", "combination"},
		"key_ingredients": []any{"niacinamide", "hyaluronic acid"},
		"rating":          4.3,
	}
}

func TestFilterMatchesAllPredicates(t *testing.T) {
	f := Filter{
		"price":    {Op: OpLte, Value: 1200.0},
		"category": {Op: OpEq, Value: "moisturizer"},
	}
	if !f.Matches(productMetadata()) {
		t.Errorf("expected the filter to match")
	}
}

func TestFilterFailsOnAnyPredicate(t *testing.T) {
	f := Filter{
		"price":    {Op: OpLte, Value: 500.0},
		"category": {Op: OpEq, Value: "moisturizer"},
	}
	if f.Matches(productMetadata()) {
		t.Errorf("price predicate should have failed the match")
	}
}

func TestFilterMissingAttributeFails(t *testing.T) {
	f := Filter{"brand": {Op: OpEq, Value: "cerave"}}
	if f.Matches(productMetadata()) {
		t.Errorf("a predicate over a missing attribute must fail")
	}
}

func TestFilterEqIsCaseInsensitive(t *testing.T) {
	f := Filter{"category": {Op: OpEq, Value: "MOISTURIZER"}}
	if !f.Matches(productMetadata()) {
		t.Errorf("string equality should fold case")
	}
}

func TestFilterGte(t *testing.T) {
	f := Filter{"rating": {Op: OpGte, Value: 4.0}}
	if !f.Matches(productMetadata()) {
		t.Errorf("rating 4.3 satisfies gte 4.0")
	}
	f = Filter{"rating": {Op: OpGte, Value: 4.5}}
	if f.Matches(productMetadata()) {
		t.Errorf("rating 4.3 fails gte 4.5")
	}
}

func TestFilterContains(t *testing.T) {
	cases := []struct {
		attr  string
		value string
		want  bool
	}{
		{"skin_type", "oily", true},
		{"skin_type", "OILY", true},
		{"skin_type", "dry", false},
		{"key_ingredients", "niacinamide", true},
		{"key_ingredients", "retinol", false},
	}
	for _, tc := range cases {
		f := Filter{tc.attr: {Op: OpContains, Value: tc.value}}
		if got := f.Matches(productMetadata()); got != tc.want {
			t.Errorf("contains %s=%q: got %v, want %v", tc.attr, tc.value, got, tc.want)
		}
	}
}

func TestFilterNumericTypeCoercion(t *testing.T) {
	metadata := map[string]any{"price": 999}
	f := Filter{"price": {Op: OpLte, Value: 1000.0}}
	if !f.Matches(metadata) {
		t.Errorf("int metadata should compare against float predicates")
	}
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	var f Filter
	if !f.Matches(nil) {
		t.Errorf("an empty filter matches any metadata")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	if sim := CosineSimilarity(a, b); sim != 0 {
		t.Errorf("orthogonal vectors similarity = %v, want 0", sim)
	}
	if sim := CosineSimilarity(a, a); sim < 0.99 {
		t.Errorf("identical unit vectors similarity = %v, want close to 1", sim)
	}
	if sim := CosineSimilarity(a, []float32{1, 0}); sim != 0 {
		t.Errorf("mismatched dimensions should score 0, got %v", sim)
	}
}
