package vector

import (
	"strings"
)

// Op enumerates the predicate operators supported by attribute filters.
type Op string

const (
	OpEq       Op = "eq"
	OpLte      Op = "lte"
	OpGte      Op = "gte"
	OpContains Op = "contains"
)

// Predicate is a single attribute condition.
type Predicate struct {
	Op    Op
	Value any
}

// Filter maps attribute names to predicates. Predicates are AND-combined.
type Filter map[string]Predicate

// Matches reports whether the metadata satisfies every predicate in the
// filter. A predicate over an attribute missing from the metadata fails.
func (f Filter) Matches(metadata map[string]any) bool {
	for attr, pred := range f {
		raw, ok := metadata[attr]
		if !ok {
			return false
		}
		if !pred.matches(raw) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(raw any) bool {
	switch p.Op {
	case OpEq:
		return equalFold(raw, p.Value)
	case OpLte:
		a, okA := toFloat(raw)
		b, okB := toFloat(p.Value)
		return okA && okB && a <= b
	case OpGte:
		a, okA := toFloat(raw)
		b, okB := toFloat(p.Value)
		return okA && okB && a >= b
	case OpContains:
		want, ok := p.Value.(string)
		if !ok {
			return false
		}
		return containsString(raw, want)
	}
	return false
}

func equalFold(a, b any) bool {
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.EqualFold(sa, sb)
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func containsString(raw any, want string) bool {
	switch vs := raw.(type) {
	case []string:
		for _, v := range vs {
			if strings.EqualFold(v, want) {
				return true
			}
		}
	case []any:
		for _, v := range vs {
			if s, ok := v.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	case string:
		return strings.EqualFold(vs, want)
	}
	return false
}
