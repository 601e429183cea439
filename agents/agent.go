// Package agents contains the specialist agents, each bound to one retrieval
// source and one intent. Specialists absorb adapter failures into degraded
// bundles; errors never cross their boundary.
package agents

import (
	"context"

	"github.com/glowstack/dermassist/retrieval"
	"github.com/glowstack/dermassist/routing"
)

// Bundle is the ranked, annotated evidence set one specialist produced for a
// single turn.
type Bundle struct {
	// Agent names the specialist that produced the evidence.
	Agent string
	// Items is ranked within the source-local score scale.
	Items []retrieval.Evidence
	// Degraded marks evidence collected despite a source failure.
	Degraded bool
	// Fallback is set by the orchestrator when this bundle came from the
	// second-pass general-knowledge dispatch.
	Fallback bool
}

// Empty reports whether the bundle carries no evidence.
func (b Bundle) Empty() bool {
	return len(b.Items) == 0
}

// Specialist handles one query against its retrieval source. Handle never
// returns an error: adapter failures surface as a degraded bundle.
type Specialist interface {
	Name() string
	Handle(ctx context.Context, query string, constraints routing.Constraints) Bundle
}
