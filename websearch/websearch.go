// Package websearch defines the open web search capability backing the
// general-knowledge retrieval source. Implementations live under
// contrib/websearch.
package websearch

import "context"

// Result is a single web search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Searcher executes a web search and returns ranked results.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]Result, error)
}
