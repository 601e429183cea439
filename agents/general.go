package agents

import (
	"context"
	"errors"
	"log/slog"

	"github.com/glowstack/dermassist/pkg/logging"
	"github.com/glowstack/dermassist/retrieval"
	"github.com/glowstack/dermassist/routing"
)

// GeneralAgent answers everything the specialists do not: it calls the open
// web search source and normalizes results into the shared evidence shape.
// It is also the fallback target when a primary specialist degrades.
type GeneralAgent struct {
	source retrieval.Source
	topK   int
	logger *slog.Logger
}

// GeneralOption customises a GeneralAgent.
type GeneralOption func(*GeneralAgent)

// WithGeneralTopK sets how many web results each search requests.
func WithGeneralTopK(k int) GeneralOption {
	return func(a *GeneralAgent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// NewGeneralAgent binds the web retrieval source.
func NewGeneralAgent(source retrieval.Source, opts ...GeneralOption) *GeneralAgent {
	a := &GeneralAgent{
		source: source,
		topK:   3,
		logger: logging.WithComponent("general_agent"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Name implements Specialist.
func (a *GeneralAgent) Name() string {
	return "general-knowledge"
}

// Handle implements Specialist. Constraints have no meaning for open web
// search and are dropped.
func (a *GeneralAgent) Handle(ctx context.Context, query string, _ routing.Constraints) Bundle {
	bundle := Bundle{Agent: a.Name()}

	items, err := a.source.Search(ctx, query, nil, a.topK)
	if err != nil {
		if errors.Is(err, retrieval.ErrSourceUnavailable) {
			a.logger.Warn("web search unavailable", "error", err)
		} else {
			a.logger.Error("web search failed", "error", err)
		}
		bundle.Degraded = true
		return bundle
	}
	bundle.Items = items
	return bundle
}
