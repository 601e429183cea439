// Package routing classifies user queries into a closed intent set and
// extracts structured constraints from free text.
package routing

import "context"

// Intent selects which specialist handles a query.
type Intent string

const (
	// IntentCatalog routes to structured product catalog search.
	IntentCatalog Intent = "catalog-lookup"
	// IntentDocument routes to unstructured document search.
	IntentDocument Intent = "document-lookup"
	// IntentGeneral routes to open web search; also the default when no
	// catalog or document signal is detected.
	IntentGeneral Intent = "general-knowledge"
)

// Op enumerates constraint predicate operators.
type Op string

const (
	OpEq       Op = "eq"
	OpLte      Op = "lte"
	OpGte      Op = "gte"
	OpContains Op = "contains"
)

// Predicate is one structured condition over a catalog/document attribute.
type Predicate struct {
	Op    Op
	Value any
}

// Constraints maps attribute names to predicates. Constraints are optional
// and AND-combined; adapters drop predicates over unknown attributes.
type Constraints map[string]Predicate

// Clone returns a copy so callers can relax constraints without aliasing.
func (c Constraints) Clone() Constraints {
	if c == nil {
		return nil
	}
	out := make(Constraints, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// HistoryEntry is the slice of a past turn the classifier may consult.
type HistoryEntry struct {
	Query  string
	Intent Intent
}

// Classifier maps a query plus recent history to exactly one intent and a
// set of extracted constraints. Implementations must be total (every query
// maps to an intent) and deterministic for identical input.
type Classifier interface {
	Classify(ctx context.Context, query string, history []HistoryEntry) (Intent, Constraints, error)
}
