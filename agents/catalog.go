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

// Relaxation priority: when a filtered search comes back under the candidate
// minimum, the retry keeps only the single most important constraint.
var relaxPriority = []string{
	catalog.AttrPrice,
	catalog.AttrCategory,
	catalog.AttrSkinType,
	catalog.AttrBrand,
	catalog.AttrRating,
	catalog.AttrKeyIngredients,
}

// CatalogAgent answers product recommendation queries from the structured
// catalog. Constraints map one-to-one onto the catalog filter schema.
type CatalogAgent struct {
	source        retrieval.Source
	topK          int
	minCandidates int
	logger        *slog.Logger
}

// CatalogOption customises a CatalogAgent.
type CatalogOption func(*CatalogAgent)

// WithCatalogTopK sets how many products each search requests.
func WithCatalogTopK(k int) CatalogOption {
	return func(a *CatalogAgent) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithMinCandidates sets the result floor below which constraints relax.
func WithMinCandidates(n int) CatalogOption {
	return func(a *CatalogAgent) {
		if n > 0 {
			a.minCandidates = n
		}
	}
}

// NewCatalogAgent binds the catalog retrieval source.
func NewCatalogAgent(source retrieval.Source, opts ...CatalogOption) *CatalogAgent {
	a := &CatalogAgent{
		source:        source,
		topK:          5,
		minCandidates: 1,
		logger:        logging.WithComponent("catalog_agent"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Name implements Specialist.
func (a *CatalogAgent) Name() string {
	return "catalog"
}

// Handle implements Specialist. If the filtered candidate count is below the
// minimum, it retries once with constraints relaxed to the single most
// important one, then falls back to unconstrained semantic search.
func (a *CatalogAgent) Handle(ctx context.Context, query string, constraints routing.Constraints) Bundle {
	bundle := Bundle{Agent: a.Name()}

	items, err := a.source.Search(ctx, query, constraints, a.topK)
	if err != nil {
		return a.degrade(bundle, err)
	}
	if len(items) >= a.minCandidates || len(constraints) == 0 {
		bundle.Items = items
		return bundle
	}

	if relaxed := relax(constraints); relaxed != nil {
		a.logger.Info("relaxing constraints after thin results",
			"kept", len(relaxed), "dropped", len(constraints)-len(relaxed))
		items, err = a.source.Search(ctx, query, relaxed, a.topK)
		if err != nil {
			return a.degrade(bundle, err)
		}
		if len(items) >= a.minCandidates {
			bundle.Items = items
			return bundle
		}
	}

	a.logger.Info("falling back to unconstrained catalog search")
	items, err = a.source.Search(ctx, query, nil, a.topK)
	if err != nil {
		return a.degrade(bundle, err)
	}
	bundle.Items = items
	return bundle
}

func (a *CatalogAgent) degrade(bundle Bundle, err error) Bundle {
	if errors.Is(err, retrieval.ErrSourceUnavailable) {
		a.logger.Warn("catalog source unavailable", "error", err)
	} else {
		a.logger.Error("catalog search failed", "error", err)
	}
	bundle.Degraded = true
	return bundle
}

// relax keeps the single highest-priority constraint. Returns nil when there
// is nothing to relax to (zero or one constraint).
func relax(constraints routing.Constraints) routing.Constraints {
	if len(constraints) < 2 {
		return nil
	}
	for _, attr := range relaxPriority {
		if pred, ok := constraints[attr]; ok {
			return routing.Constraints{attr: pred}
		}
	}
	// No prioritised attribute present; keep the lexicographically first
	// key so the retry stays deterministic.
	first := ""
	for attr := range constraints {
		if first == "" || attr < first {
			first = attr
		}
	}
	return routing.Constraints{first: constraints[first]}
}
