// Package duckduckgo implements the web search capability by scraping the
// DuckDuckGo HTML endpoint. No API key is required, which makes it the
// default searcher for local development.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/glowstack/dermassist/websearch"
)

const endpoint = "https://html.duckduckgo.com/html/"

// Searcher implements websearch.Searcher against the DuckDuckGo HTML page.
type Searcher struct {
	client *http.Client
}

// New creates a DuckDuckGo searcher.
func New(timeout time.Duration) *Searcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Searcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Search implements websearch.Searcher.
func (s *Searcher) Search(ctx context.Context, query string, numResults int) ([]websearch.Result, error) {
	if numResults <= 0 {
		numResults = 3
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; dermassist/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	return parseResults(doc, numResults), nil
}

func parseResults(doc *goquery.Document, limit int) []websearch.Result {
	var results []websearch.Result
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("a.result__a").Text())
		href, _ := sel.Find("a.result__a").Attr("href")
		snippet := strings.TrimSpace(sel.Find("a.result__snippet").Text())
		if title == "" || href == "" {
			return true
		}
		results = append(results, websearch.Result{
			Title:   title,
			Snippet: snippet,
			URL:     cleanURL(href),
		})
		return len(results) < limit
	})
	return results
}

// cleanURL unwraps DuckDuckGo's redirect links to the target URL.
func cleanURL(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
