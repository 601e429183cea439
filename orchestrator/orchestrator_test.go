package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/glowstack/dermassist/agents"
	"github.com/glowstack/dermassist/conversation"
	"github.com/glowstack/dermassist/retrieval"
	"github.com/glowstack/dermassist/routing"
)

// stubSpecialist returns a fixed bundle and counts dispatches.
type stubSpecialist struct {
	name       string
	bundle     agents.Bundle
	dispatches int
}

func (s *stubSpecialist) Name() string {
	return s.name
}

func (s *stubSpecialist) Handle(_ context.Context, _ string, _ routing.Constraints) agents.Bundle {
	s.dispatches++
	b := s.bundle
	b.Agent = s.name
	return b
}

type stubSynthesizer struct {
	answer    string
	citations []string
	err       error
	calls     int
}

func (s *stubSynthesizer) Synthesize(_ context.Context, _ string, bundle agents.Bundle) (string, []string, error) {
	s.calls++
	if s.err != nil {
		return "", nil, s.err
	}
	if bundle.Empty() {
		return "no evidence", nil, nil
	}
	return s.answer, s.citations, nil
}

type fixedClassifier struct {
	intent routing.Intent
}

func (c fixedClassifier) Classify(_ context.Context, _ string, _ []routing.HistoryEntry) (routing.Intent, routing.Constraints, error) {
	return c.intent, nil, nil
}

func evidenceItems(id string) []retrieval.Evidence {
	return []retrieval.Evidence{{SourceID: id, SourceKind: retrieval.SourceCatalog, Score: 0.9}}
}

func newTestOrchestrator(catalogAgent, generalAgent agents.Specialist, synth Synthesizer, history conversation.History, opts ...Option) *Orchestrator {
	specialists := map[routing.Intent]agents.Specialist{
		routing.IntentCatalog: catalogAgent,
		routing.IntentGeneral: generalAgent,
	}
	return New(specialists, synth, history, opts...)
}

func TestRespondCompletedTurn(t *testing.T) {
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Items: evidenceItems("prod-1")}}
	generalAgent := &stubSpecialist{name: "general-knowledge"}
	synth := &stubSynthesizer{answer: "use this [prod-1]", citations: []string{"prod-1"}}
	history := conversation.NewMemory()

	o := newTestOrchestrator(catalogAgent, generalAgent, synth, history,
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	result, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if result.AgentUsed != "catalog" {
		t.Errorf("agent used = %q, want catalog", result.AgentUsed)
	}
	if result.Intent != routing.IntentCatalog {
		t.Errorf("intent = %s", result.Intent)
	}
	if generalAgent.dispatches != 0 {
		t.Errorf("general agent should not have been dispatched")
	}

	turns, _ := history.Read(context.Background(), "sess-1")
	if len(turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(turns))
	}
	if turns[0].Answer != "use this [prod-1]" {
		t.Errorf("persisted answer = %q", turns[0].Answer)
	}
}

func TestRespondEmptyQuery(t *testing.T) {
	history := conversation.NewMemory()
	o := newTestOrchestrator(
		&stubSpecialist{name: "catalog"},
		&stubSpecialist{name: "general-knowledge"},
		&stubSynthesizer{}, history)

	_, err := o.Respond(context.Background(), "sess-1", "   ")
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected a *TurnError")
	}
	if turnErr.State != StateReceived {
		t.Errorf("failure state = %s, want received", turnErr.State)
	}
	if turnErr.UserMessage() == "" {
		t.Errorf("user message must not be empty")
	}

	turns, _ := history.Read(context.Background(), "sess-1")
	if len(turns) != 0 {
		t.Errorf("failed turns must not be persisted, found %d", len(turns))
	}
}

func TestRespondFallbackToGeneral(t *testing.T) {
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Degraded: true}}
	generalAgent := &stubSpecialist{name: "general-knowledge", bundle: agents.Bundle{Items: evidenceItems("https://a.example")}}
	synth := &stubSynthesizer{answer: "from the web [https://a.example]"}
	history := conversation.NewMemory()

	o := newTestOrchestrator(catalogAgent, generalAgent, synth, history,
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	result, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if result.AgentUsed != "general-knowledge (fallback)" {
		t.Errorf("agent used = %q, want the fallback marker", result.AgentUsed)
	}
	if !result.Turn.Evidence.Fallback || !result.Turn.Evidence.Degraded {
		t.Errorf("fallback bundle must be marked degraded and fallback")
	}
	if catalogAgent.dispatches+generalAgent.dispatches != 2 {
		t.Errorf("fallback is one extra hop: expected 2 dispatches total, got %d",
			catalogAgent.dispatches+generalAgent.dispatches)
	}
}

func TestRespondFallbackBound(t *testing.T) {
	// Both the primary and the fallback degrade; the turn still completes with
	// the no-evidence answer and never dispatches a third time.
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Degraded: true}}
	generalAgent := &stubSpecialist{name: "general-knowledge", bundle: agents.Bundle{Degraded: true}}
	synth := &stubSynthesizer{}
	history := conversation.NewMemory()

	o := newTestOrchestrator(catalogAgent, generalAgent, synth, history,
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	result, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if catalogAgent.dispatches != 1 || generalAgent.dispatches != 1 {
		t.Errorf("expected exactly one dispatch each, got %d and %d",
			catalogAgent.dispatches, generalAgent.dispatches)
	}
	if result.Answer != "no evidence" {
		t.Errorf("answer = %q", result.Answer)
	}
}

func TestRespondGeneralDegradedDoesNotFallback(t *testing.T) {
	// A degraded general-knowledge dispatch has nowhere to fall back to.
	generalAgent := &stubSpecialist{name: "general-knowledge", bundle: agents.Bundle{Degraded: true}}
	synth := &stubSynthesizer{}
	history := conversation.NewMemory()

	o := newTestOrchestrator(&stubSpecialist{name: "catalog"}, generalAgent, synth, history,
		WithClassifier(fixedClassifier{intent: routing.IntentGeneral}))

	result, err := o.Respond(context.Background(), "sess-1", "anything at all")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if generalAgent.dispatches != 1 {
		t.Errorf("expected a single dispatch, got %d", generalAgent.dispatches)
	}
	if result.AgentUsed != "general-knowledge" {
		t.Errorf("agent used = %q", result.AgentUsed)
	}
}

func TestRespondDegradedWithEvidenceSkipsFallback(t *testing.T) {
	// Partial evidence from a degraded source is still used; fallback only
	// fires when the bundle is empty.
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{
		Items:    evidenceItems("prod-1"),
		Degraded: true,
	}}
	generalAgent := &stubSpecialist{name: "general-knowledge"}
	synth := &stubSynthesizer{answer: "partial [prod-1]"}

	o := newTestOrchestrator(catalogAgent, generalAgent, synth, conversation.NewMemory(),
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	result, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if generalAgent.dispatches != 0 {
		t.Errorf("fallback must not fire when evidence exists")
	}
	if result.AgentUsed != "catalog" {
		t.Errorf("agent used = %q", result.AgentUsed)
	}
}

func TestRespondSynthesisFailure(t *testing.T) {
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Items: evidenceItems("prod-1")}}
	synth := &stubSynthesizer{err: fmt.Errorf("model overloaded")}
	history := conversation.NewMemory()

	o := newTestOrchestrator(catalogAgent, &stubSpecialist{name: "general-knowledge"}, synth, history,
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	_, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer")
	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected a *TurnError, got %v", err)
	}
	if turnErr.State != StateEvidenceCollected {
		t.Errorf("failure state = %s, want evidence_collected", turnErr.State)
	}

	turns, _ := history.Read(context.Background(), "sess-1")
	if len(turns) != 0 {
		t.Errorf("failed turns must not be persisted, found %d", len(turns))
	}
}

func TestRespondCancelledContextDiscardsTurn(t *testing.T) {
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Items: evidenceItems("prod-1")}}
	synth := &stubSynthesizer{answer: "never returned"}
	history := conversation.NewMemory()

	o := newTestOrchestrator(catalogAgent, &stubSpecialist{name: "general-knowledge"}, synth, history,
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Respond(ctx, "sess-1", "recommend a moisturizer")
	if err == nil {
		t.Fatalf("expected an error from a cancelled context")
	}
	if synth.calls != 0 {
		t.Errorf("synthesis must not run after cancellation")
	}
	turns, _ := history.Read(context.Background(), "sess-1")
	if len(turns) != 0 {
		t.Errorf("cancelled turns must not be persisted, found %d", len(turns))
	}
}

func TestRespondUnknownIntentFallsToGeneral(t *testing.T) {
	generalAgent := &stubSpecialist{name: "general-knowledge", bundle: agents.Bundle{Items: evidenceItems("https://a.example")}}
	synth := &stubSynthesizer{answer: "web answer"}

	o := newTestOrchestrator(&stubSpecialist{name: "catalog"}, generalAgent, synth, conversation.NewMemory(),
		WithClassifier(fixedClassifier{intent: routing.Intent("document-lookup")}))

	result, err := o.Respond(context.Background(), "sess-1", "how does retinol work")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if result.AgentUsed != "general-knowledge" {
		t.Errorf("unregistered intent should route to general, got %q", result.AgentUsed)
	}
}

func TestRespondHistoryReadFailureIsNonFatal(t *testing.T) {
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Items: evidenceItems("prod-1")}}
	synth := &stubSynthesizer{answer: "fine [prod-1]"}

	o := newTestOrchestrator(catalogAgent, &stubSpecialist{name: "general-knowledge"}, synth,
		&failingHistory{readErr: fmt.Errorf("redis down")},
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	if _, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer"); err != nil {
		t.Fatalf("a history read failure must not fail the turn: %v", err)
	}
}

func TestRespondHistoryAppendFailureIsNonFatal(t *testing.T) {
	catalogAgent := &stubSpecialist{name: "catalog", bundle: agents.Bundle{Items: evidenceItems("prod-1")}}
	synth := &stubSynthesizer{answer: "fine [prod-1]"}

	o := newTestOrchestrator(catalogAgent, &stubSpecialist{name: "general-knowledge"}, synth,
		&failingHistory{appendErr: fmt.Errorf("redis down")},
		WithClassifier(fixedClassifier{intent: routing.IntentCatalog}))

	result, err := o.Respond(context.Background(), "sess-1", "recommend a moisturizer")
	if err != nil {
		t.Fatalf("a history append failure must not fail the turn: %v", err)
	}
	if result.Answer == "" {
		t.Errorf("the composed answer must still be returned")
	}
}

type failingHistory struct {
	readErr   error
	appendErr error
}

func (h *failingHistory) Read(_ context.Context, _ string) ([]conversation.Turn, error) {
	return nil, h.readErr
}

func (h *failingHistory) Append(_ context.Context, _ string, _ conversation.Turn) error {
	return h.appendErr
}

func TestHealth(t *testing.T) {
	o := newTestOrchestrator(
		&stubSpecialist{name: "catalog"},
		&stubSpecialist{name: "general-knowledge"},
		&stubSynthesizer{}, conversation.NewMemory())

	status := o.Health()
	if status["orchestrator"] != "healthy" {
		t.Errorf("orchestrator status = %q", status["orchestrator"])
	}
	if status[string(routing.IntentCatalog)] != "healthy" {
		t.Errorf("catalog status = %q", status[string(routing.IntentCatalog)])
	}
}
