// Package retrieval provides the uniform search contract over the catalog,
// document, and open web stores, plus the evidence records they produce.
package retrieval

import (
	"context"
	"errors"
	"strings"

	"github.com/glowstack/dermassist/routing"
)

// SourceKind tags which backing store produced an evidence item. Scores are
// only comparable within one kind, never across kinds.
type SourceKind string

const (
	SourceCatalog  SourceKind = "catalog"
	SourceDocument SourceKind = "document"
	SourceWeb      SourceKind = "web"
)

// ErrSourceUnavailable signals that a backing store was unreachable or timed
// out. It is distinct from an empty-but-healthy result, so the orchestrator
// can choose between fallback and a legitimate empty answer.
var ErrSourceUnavailable = errors.New("retrieval source unavailable")

// Evidence is one immutable retrieval hit.
type Evidence struct {
	SourceID   string
	SourceKind SourceKind
	Score      float32
	Excerpt    string
	Metadata   map[string]any
}

// Source wraps one backing store behind a uniform search contract. The
// returned sequence is ranked, at most k long, and deterministic for
// identical inputs.
type Source interface {
	Kind() SourceKind
	Search(ctx context.Context, query string, constraints routing.Constraints, k int) ([]Evidence, error)
}

func truncateExcerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
