package duckduckgo

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const resultsPage = `
<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fretinol">Retinol Guide</a>
  <a class="result__snippet" href="#">How retinol works on skin.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.org/spf">SPF Basics</a>
  <a class="result__snippet" href="#">Why sunscreen matters.</a>
</div>
<div class="result">
  <a class="result__a" href=""></a>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	results := parseResults(doc, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Retinol Guide" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].URL != "https://example.com/retinol" {
		t.Errorf("redirect link should be unwrapped, got %q", results[0].URL)
	}
	if results[1].URL != "https://example.org/spf" {
		t.Errorf("direct link should pass through, got %q", results[1].URL)
	}
	if results[0].Snippet != "How retinol works on skin." {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestParseResultsHonorsLimit(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	results := parseResults(doc, 1)
	if len(results) != 1 {
		t.Errorf("expected the limit to cap results at 1, got %d", len(results))
	}
}

func TestCleanURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fp", "https://a.example/p"},
		{"https://direct.example/page", "https://direct.example/page"},
	}
	for _, tc := range cases {
		if got := cleanURL(tc.in); got != tc.want {
			t.Errorf("cleanURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
