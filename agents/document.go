package agents

import (
	"context"
	"errors"
	"log/slog"

	"github.com/glowstack/dermassist/catalog"
	"github.com/glowstack/dermassist/pkg/logging"
	"github.com/glowstack/dermassist/retrieval"
	"github.com/glowstack/dermassist/routing"
)

// DocumentAgent answers educational queries from the unstructured document
// index. Price-style constraints are not applicable to document search and
// are stripped before the adapter call; only tag and category constraints
// pass through.
type DocumentAgent struct {
	source retrieval.Source
	topK   int
	logger *slog.Logger
}

// DocumentOption customises a DocumentAgent.
type DocumentOption func(*DocumentAgent)

// WithDocumentTopK sets how many chunks each search requests.
func WithDocumentTopK(k int) DocumentOption {
	return func(a *DocumentAgent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// NewDocumentAgent binds the document retrieval source.
func NewDocumentAgent(source retrieval.Source, opts ...DocumentOption) *DocumentAgent {
	a := &DocumentAgent{
		source: source,
		topK:   5,
		logger: logging.WithComponent("document_agent"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Name implements Specialist.
func (a *DocumentAgent) Name() string {
	return "document"
}

// Handle implements Specialist.
func (a *DocumentAgent) Handle(ctx context.Context, query string, constraints routing.Constraints) Bundle {
	bundle := Bundle{Agent: a.Name()}

	items, err := a.source.Search(ctx, query, applicable(constraints), a.topK)
	if err != nil {
		if errors.Is(err, retrieval.ErrSourceUnavailable) {
			a.logger.Warn("document source unavailable", "error", err)
		} else {
			a.logger.Error("document search failed", "error", err)
		}
		bundle.Degraded = true
		return bundle
	}
	bundle.Items = items
	return bundle
}

func applicable(constraints routing.Constraints) routing.Constraints {
	if len(constraints) == 0 {
		return nil
	}
	kept := make(routing.Constraints)
	for attr, pred := range constraints {
		if attr == catalog.AttrCategory || attr == "tags" {
			kept[attr] = pred
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
