package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowstack/dermassist/pkg/logging"
	"github.com/glowstack/dermassist/routing"
	"github.com/glowstack/dermassist/websearch"
)

// querySuffix steers generic web queries toward the skincare domain.
const querySuffix = " skincare dermatology"

// WebSource adapts an open web search capability to the Source contract.
// Results are normalized into Evidence with a rank-derived score so the
// orchestrator stays source-agnostic. Constraints are not applicable to web
// search and are ignored.
type WebSource struct {
	searcher websearch.Searcher
	timeout  time.Duration
	logger   *slog.Logger
}

// WebSourceOption customises a WebSource.
type WebSourceOption func(*WebSource)

// WithWebTimeout bounds every search call.
func WithWebTimeout(d time.Duration) WebSourceOption {
	return func(s *WebSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewWebSource wraps a web search capability.
func NewWebSource(searcher websearch.Searcher, opts ...WebSourceOption) *WebSource {
	s := &WebSource{
		searcher: searcher,
		timeout:  defaultTimeout,
		logger:   logging.WithComponent("web_source"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Kind implements Source.
func (s *WebSource) Kind() SourceKind {
	return SourceWeb
}

// Search implements Source.
func (s *WebSource) Search(ctx context.Context, query string, _ routing.Constraints, k int) ([]Evidence, error) {
	if k <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.searcher.Search(ctx, query+querySuffix, k)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	if len(results) > k {
		results = results[:k]
	}

	items := make([]Evidence, 0, len(results))
	for i, res := range results {
		// Web engines do not expose similarity scores; derive a
		// source-local score from the rank position.
		score := 1 - float32(i)/float32(len(results)+1)
		items = append(items, Evidence{
			SourceID:   res.URL,
			SourceKind: SourceWeb,
			Score:      score,
			Excerpt:    truncateExcerpt(res.Title+" - "+res.Snippet, excerptLimit),
			Metadata: map[string]any{
				"title": res.Title,
				"url":   res.URL,
			},
		})
	}
	s.logger.Debug("web search completed", "query", query, "hits", len(items))
	return items, nil
}
