// Package serpapi implements the web search capability against the SerpAPI
// Google search endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/glowstack/dermassist/websearch"
)

const endpoint = "https://serpapi.com/search"

// Config holds SerpAPI configuration.
type Config struct {
	APIKey  string
	Timeout time.Duration
}

// Searcher implements websearch.Searcher via SerpAPI.
type Searcher struct {
	apiKey string
	client *http.Client
}

// New creates a SerpAPI searcher.
func New(config *Config) *Searcher {
	if config == nil {
		config = &Config{}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Searcher{
		apiKey: config.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

// Search implements websearch.Searcher.
func (s *Searcher) Search(ctx context.Context, query string, numResults int) ([]websearch.Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("SerpAPI key is not configured")
	}
	if numResults <= 0 {
		numResults = 3
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("search error: %s", decoded.Error)
	}

	results := make([]websearch.Result, 0, len(decoded.OrganicResults))
	for i, raw := range decoded.OrganicResults {
		if i >= numResults {
			break
		}
		results = append(results, websearch.Result{
			Title:   raw.Title,
			Snippet: raw.Snippet,
			URL:     raw.Link,
		})
	}
	return results, nil
}
