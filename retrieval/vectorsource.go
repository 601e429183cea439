package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/glowstack/dermassist/pkg/logging"
	"github.com/glowstack/dermassist/routing"
	"github.com/glowstack/dermassist/vector"
)

const (
	defaultTimeout         = 5 * time.Second
	defaultOverfetchFactor = 4
	excerptLimit           = 320
)

// VectorSource adapts a vector store plus embedder to the Source contract.
// Structured filters run server-side when the store supports attribute
// filtering at query time; otherwise the source over-fetches and
// post-filters the candidate set.
type VectorSource struct {
	kind      SourceKind
	store     vector.VectorStore
	embedder  vector.Embedder
	schema    map[string]bool
	timeout   time.Duration
	overfetch int
	logger    *slog.Logger
}

// VectorSourceOption customises a VectorSource.
type VectorSourceOption func(*VectorSource)

// WithTimeout bounds every search call; expiry maps to ErrSourceUnavailable.
func WithTimeout(d time.Duration) VectorSourceOption {
	return func(s *VectorSource) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithOverfetchFactor sets the candidate multiplier used when the store
// cannot filter server-side.
func WithOverfetchFactor(factor int) VectorSourceOption {
	return func(s *VectorSource) {
		if factor > 0 {
			s.overfetch = factor
		}
	}
}

// NewVectorSource builds an adapter for the given kind. The schema is the
// set of attributes the backing store can filter on; constraints outside it
// are dropped with a log line, never an error.
func NewVectorSource(kind SourceKind, store vector.VectorStore, embedder vector.Embedder, schema map[string]bool, opts ...VectorSourceOption) *VectorSource {
	s := &VectorSource{
		kind:      kind,
		store:     store,
		embedder:  embedder,
		schema:    schema,
		timeout:   defaultTimeout,
		overfetch: defaultOverfetchFactor,
		logger:    logging.WithComponent("vector_source").With("kind", string(kind)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Kind implements Source.
func (s *VectorSource) Kind() SourceKind {
	return s.kind
}

// Search implements Source.
func (s *VectorSource) Search(ctx context.Context, query string, constraints routing.Constraints, k int) ([]Evidence, error) {
	if k <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrSourceUnavailable, err)
	}

	filter := s.translate(constraints)

	var hits []*vector.Embedding
	if fs, ok := s.store.(vector.FilterableStore); ok && len(filter) > 0 {
		hits, err = fs.SearchFiltered(ctx, queryVec, filter, k)
		if err != nil {
			return nil, s.unavailable(err)
		}
	} else {
		fetch := k
		if len(filter) > 0 {
			fetch = k * s.overfetch
		}
		hits, err = s.store.Search(ctx, queryVec, fetch)
		if err != nil {
			return nil, s.unavailable(err)
		}
		if len(filter) > 0 {
			hits = postFilter(hits, filter)
		}
	}

	items := make([]Evidence, 0, len(hits))
	for _, hit := range hits {
		items = append(items, Evidence{
			SourceID:   hit.ID,
			SourceKind: s.kind,
			Score:      vector.CosineSimilarity(queryVec, hit.Vector),
			Excerpt:    truncateExcerpt(hit.Text, excerptLimit),
			Metadata:   hit.Metadata,
		})
	}

	// Rank by score; ties break on source id so identical inputs return
	// identical orderings.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].SourceID < items[j].SourceID
	})

	if len(items) > k {
		items = items[:k]
	}
	return items, nil
}

// translate type-checks constraints against the source schema, dropping
// anything the backing store cannot filter on.
func (s *VectorSource) translate(constraints routing.Constraints) vector.Filter {
	if len(constraints) == 0 {
		return nil
	}
	filter := make(vector.Filter, len(constraints))
	for attr, pred := range constraints {
		if !s.schema[attr] {
			s.logger.Debug("dropping constraint on unknown attribute", "attribute", attr)
			continue
		}
		filter[attr] = vector.Predicate{Op: vector.Op(pred.Op), Value: pred.Value}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func (s *VectorSource) unavailable(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}

func postFilter(hits []*vector.Embedding, filter vector.Filter) []*vector.Embedding {
	out := hits[:0:0]
	for _, hit := range hits {
		if filter.Matches(hit.Metadata) {
			out = append(out, hit)
		}
	}
	return out
}
