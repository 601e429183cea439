// Package orchestrator owns the end-to-end turn: classification, specialist
// dispatch, fallback, synthesis, and history persistence.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/glowstack/dermassist/agents"
	"github.com/glowstack/dermassist/conversation"
	"github.com/glowstack/dermassist/pkg/logging"
	"github.com/glowstack/dermassist/pkg/telemetry"
	"github.com/glowstack/dermassist/routing"
)

// State enumerates the turn state machine. Failed is reachable from any
// non-terminal state.
type State string

const (
	StateReceived          State = "received"
	StateClassified        State = "classified"
	StateDispatched        State = "dispatched"
	StateEvidenceCollected State = "evidence_collected"
	StateSynthesized       State = "synthesized"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// Synthesizer is the generation stage contract.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, bundle agents.Bundle) (answer string, citations []string, err error)
}

// Result is what a completed turn returns to the caller.
type Result struct {
	Answer    string
	Citations []string
	AgentUsed string
	Intent    routing.Intent
	Turn      conversation.Turn
}

// Orchestrator routes each query to one specialist, applies the one-hop
// fallback policy, and assembles the persisted Turn. Session state is
// explicit: every call carries its sessionID and history is injected, so
// turns for different sessions can run fully in parallel.
type Orchestrator struct {
	classifier    routing.Classifier
	specialists   map[routing.Intent]agents.Specialist
	general       agents.Specialist
	synthesizer   Synthesizer
	history       conversation.History
	historyWindow int
	logger        *slog.Logger
	tracer        trace.Tracer
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier overrides the default rule classifier.
func WithClassifier(c routing.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithHistoryWindow sets how many recent turns the classifier sees.
func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.historyWindow = n
		}
	}
}

// New wires the orchestrator. The specialists map must cover the intents the
// classifier can emit; the general-knowledge specialist doubles as the
// fallback target.
func New(specialists map[routing.Intent]agents.Specialist, synthesizer Synthesizer, history conversation.History, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier:    routing.NewRuleClassifier(),
		specialists:   specialists,
		general:       specialists[routing.IntentGeneral],
		synthesizer:   synthesizer,
		history:       history,
		historyWindow: 5,
		logger:        logging.WithComponent("orchestrator"),
		tracer:        telemetry.Tracer("orchestrator"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Respond processes one turn for the given session. On success the Turn has
// been appended to history; on failure nothing is persisted and the returned
// error is a *TurnError.
func (o *Orchestrator) Respond(ctx context.Context, sessionID, query string) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.respond",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	var turnErr error
	defer func() { telemetry.End(span, turnErr) }()

	state := StateReceived

	query = strings.TrimSpace(query)
	if query == "" {
		turnErr = failed(state, ErrEmptyQuery)
		return nil, turnErr
	}

	past, err := o.history.Read(ctx, sessionID)
	if err != nil {
		// History is advisory for classification; a read failure must not
		// fail the turn.
		o.logger.Warn("history read failed, classifying without context",
			"session_id", sessionID, "error", err)
		past = nil
	}

	intent, constraints, err := o.classifier.Classify(ctx, query, o.recent(past))
	if err != nil {
		turnErr = failed(state, err)
		return nil, turnErr
	}
	state = StateClassified
	span.SetAttributes(attribute.String("intent", string(intent)))

	specialist, ok := o.specialists[intent]
	if !ok {
		specialist = o.general
	}
	agentUsed := specialist.Name()
	state = StateDispatched
	o.logger.Info("dispatching query",
		"session_id", sessionID,
		"intent", string(intent),
		"agent", agentUsed,
		"constraints", len(constraints),
	)

	bundle := specialist.Handle(ctx, query, constraints)

	// One fallback hop maximum: a degraded and empty bundle re-dispatches to
	// the general-knowledge agent, never deeper.
	if bundle.Degraded && bundle.Empty() && o.general != nil && specialist != o.general {
		o.logger.Warn("primary specialist degraded with no evidence, falling back",
			"session_id", sessionID, "agent", agentUsed)
		fallback := o.general.Handle(ctx, query, nil)
		fallback.Degraded = true
		fallback.Fallback = true
		bundle = fallback
		agentUsed = o.general.Name() + " (fallback)"
	}
	state = StateEvidenceCollected
	span.SetAttributes(
		attribute.String("agent_used", agentUsed),
		attribute.Int("evidence_count", len(bundle.Items)),
		attribute.Bool("degraded", bundle.Degraded),
	)

	if err := ctx.Err(); err != nil {
		// Caller aborted: discard partial evidence, persist nothing.
		turnErr = failed(state, err)
		return nil, turnErr
	}

	answer, cited, err := o.synthesizer.Synthesize(ctx, query, bundle)
	if err != nil {
		turnErr = failed(state, err)
		return nil, turnErr
	}
	state = StateSynthesized

	turn := conversation.Turn{
		Query:       query,
		Intent:      intent,
		Constraints: constraints,
		Evidence:    bundle,
		Answer:      answer,
		Citations:   cited,
		AgentUsed:   agentUsed,
		Timestamp:   time.Now().UTC(),
	}
	if err := o.history.Append(ctx, sessionID, turn); err != nil {
		// The answer is already composed; losing one history record is
		// logged, not fatal.
		o.logger.Error("history append failed",
			"session_id", sessionID, "error", err)
	}
	state = StateCompleted

	o.logger.Info("turn completed",
		"session_id", sessionID,
		"intent", string(intent),
		"agent_used", agentUsed,
		"evidence_count", len(bundle.Items),
		"citations", len(cited),
		"state", string(state),
	)

	return &Result{
		Answer:    answer,
		Citations: cited,
		AgentUsed: agentUsed,
		Intent:    intent,
		Turn:      turn,
	}, nil
}

// Health reports the status of each registered specialist.
func (o *Orchestrator) Health() map[string]string {
	status := map[string]string{"orchestrator": "healthy"}
	for intent, specialist := range o.specialists {
		if specialist == nil {
			status[string(intent)] = "unavailable"
			continue
		}
		status[string(intent)] = "healthy"
	}
	return status
}

// recent converts the tail of history into the classifier's view.
func (o *Orchestrator) recent(past []conversation.Turn) []routing.HistoryEntry {
	if o.historyWindow <= 0 || len(past) == 0 {
		return nil
	}
	start := 0
	if len(past) > o.historyWindow {
		start = len(past) - o.historyWindow
	}
	entries := make([]routing.HistoryEntry, 0, len(past)-start)
	for _, turn := range past[start:] {
		entries = append(entries, routing.HistoryEntry{
			Query:  turn.Query,
			Intent: turn.Intent,
		})
	}
	return entries
}
