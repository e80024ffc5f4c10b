package term

import "testing"

func TestParse(t *testing.T) {
	body := map[string]float64{
		"name:146bdebb324a64d327b1dde22a07d0bd":          0.8,
		"category.name:f20658650d987d31063b593c05980397": 0.5,
		"other:ignored":                                  0.3,
	}

	terms := Parse([]string{"name", "category.name"}, body)
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %d: %v", len(terms), terms)
	}

	if terms[0].Field() != "name" {
		t.Errorf("field = %s, want name", terms[0].Field())
	}
	if terms[0].Value() != "146bdebb324a64d327b1dde22a07d0bd" {
		t.Errorf("value = %s", terms[0].Value())
	}
	if terms[0].Probability() != 0.8 {
		t.Errorf("prob = %g, want 0.8", terms[0].Probability())
	}

	// Dotted paths are normalized to the store's relation separator.
	if terms[1].Field() != "category__name" {
		t.Errorf("field = %s, want category__name", terms[1].Field())
	}
	if terms[1].Probability() != 0.5 {
		t.Errorf("prob = %g, want 0.5", terms[1].Probability())
	}
}

func TestParseValueContainingColon(t *testing.T) {
	// Only the first colon after the path separates field from value.
	terms := Parse([]string{"url"}, map[string]float64{"url:https://example.com": 1})
	if len(terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(terms))
	}
	if terms[0].Value() != "https://example.com" {
		t.Errorf("value = %s", terms[0].Value())
	}
}

func TestParseMultipleValuesPerField(t *testing.T) {
	body := map[string]float64{
		"name:a": 0.2,
		"name:b": 0.4,
	}
	terms := Parse([]string{"name"}, body)
	if len(terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(terms))
	}
	// Keys are scanned in sorted order for deterministic output.
	if terms[0].Value() != "a" || terms[1].Value() != "b" {
		t.Errorf("unexpected order: %v", terms)
	}
}

func TestParseEmpty(t *testing.T) {
	if terms := Parse([]string{"name"}, nil); len(terms) != 0 {
		t.Errorf("expected no terms, got %v", terms)
	}
	if terms := Parse(nil, map[string]float64{"name:a": 1}); len(terms) != 0 {
		t.Errorf("expected no terms, got %v", terms)
	}
}

func TestTermString(t *testing.T) {
	got := New("name", "abc", 0.75).String()
	want := "{field: name, value: abc, prob: 0.75}"
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
