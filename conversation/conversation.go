// Package conversation holds the persisted turn record and the history
// contract the orchestrator reads from and appends to. Turns are created
// only by the orchestrator and never mutated afterwards.
package conversation

import (
	"context"
	"time"

	"github.com/glowstack/dermassist/agents"
	"github.com/glowstack/dermassist/routing"
)

// Turn is one complete query-answer exchange, the unit of conversation
// history.
type Turn struct {
	Query       string              `json:"query" bson:"query"`
	Intent      routing.Intent      `json:"intent" bson:"intent"`
	Constraints routing.Constraints `json:"constraints,omitempty" bson:"constraints,omitempty"`
	Evidence    agents.Bundle       `json:"evidence" bson:"evidence"`
	Answer      string              `json:"answer" bson:"answer"`
	Citations   []string            `json:"citations,omitempty" bson:"citations,omitempty"`
	AgentUsed   string              `json:"agent_used" bson:"agent_used"`
	Timestamp   time.Time           `json:"timestamp" bson:"timestamp"`
}

// History is the external conversation store: an ordered read plus an
// append sink. Implementations own the per-session write discipline; turns
// within one session must be serialized.
type History interface {
	Read(ctx context.Context, sessionID string) ([]Turn, error)
	Append(ctx context.Context, sessionID string, turn Turn) error
}
