package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glowstack/dermassist/catalog"
	"github.com/glowstack/dermassist/llm"
	"github.com/glowstack/dermassist/pkg/logging"
)

const classifierPrompt = `You are the routing layer of a skincare assistant. Classify the user query into exactly one intent and extract structured constraints.
Return strict JSON only, no prose, matching:
{"intent":"catalog-lookup|document-lookup|general-knowledge","constraints":[{"attribute":"price","op":"lte","value":1200}]}
Rules:
- "catalog-lookup" for product recommendations or purchases, "document-lookup" for educational content and how-to questions, "general-knowledge" for everything else.
- Allowed attributes: price, category, skin_type, key_ingredients, brand, rating. Allowed ops: eq, lte, gte, contains.
- Omit constraints you cannot ground in the query text.`

type llmDecision struct {
	Intent      string `json:"intent"`
	Constraints []struct {
		Attribute string `json:"attribute"`
		Op        string `json:"op"`
		Value     any    `json:"value"`
	} `json:"constraints"`
}

// LLMClassifier asks a generation model for the routing decision, validates
// the output against the closed intent set and constraint schema, and falls
// back to the rule classifier whenever the model output deviates. Callers
// must pin sampling parameters on the client for reproducible tests.
type LLMClassifier struct {
	client   llm.Client
	fallback *RuleClassifier
	logger   *slog.Logger
}

// NewLLMClassifier wraps a generation client in a validated decision layer.
func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{
		client:   client,
		fallback: NewRuleClassifier(),
		logger:   logging.WithComponent("llm_classifier"),
	}
}

// Classify implements the Classifier interface. It is total: every failure
// path resolves through the rule classifier.
func (c *LLMClassifier) Classify(ctx context.Context, query string, history []HistoryEntry) (Intent, Constraints, error) {
	if c.client == nil {
		return c.fallback.Classify(ctx, query, history)
	}

	msgs := []llm.Message{
		llm.NewMessage(llm.RoleSystem, classifierPrompt),
		llm.NewMessage(llm.RoleUser, buildClassifierInput(query, history)),
	}
	raw, err := c.client.Generate(ctx, msgs)
	if err != nil {
		c.logger.Warn("classifier generation failed, using rule layer", "error", err)
		return c.fallback.Classify(ctx, query, history)
	}

	intent, cons, err := decodeDecision(raw)
	if err != nil {
		c.logger.Warn("classifier output invalid, using rule layer", "error", err)
		return c.fallback.Classify(ctx, query, history)
	}
	return intent, cons, nil
}

func buildClassifierInput(query string, history []HistoryEntry) string {
	if len(history) == 0 {
		return "Query: " + query
	}
	var b strings.Builder
	b.WriteString("Recent turns:\n")
	for _, h := range history {
		fmt.Fprintf(&b, "- [%s] %s\n", h.Intent, h.Query)
	}
	b.WriteString("Query: ")
	b.WriteString(query)
	return b.String()
}

func decodeDecision(raw string) (Intent, Constraints, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var decision llmDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return "", nil, fmt.Errorf("decode classifier output: %w", err)
	}

	var intent Intent
	switch Intent(decision.Intent) {
	case IntentCatalog, IntentDocument, IntentGeneral:
		intent = Intent(decision.Intent)
	default:
		return "", nil, fmt.Errorf("unknown intent %q", decision.Intent)
	}

	cons := make(Constraints)
	for _, raw := range decision.Constraints {
		if !catalog.Schema[raw.Attribute] {
			continue
		}
		op := Op(raw.Op)
		switch op {
		case OpEq, OpLte, OpGte, OpContains:
		default:
			continue
		}
		if raw.Value == nil {
			continue
		}
		cons[raw.Attribute] = Predicate{Op: op, Value: raw.Value}
	}
	if len(cons) == 0 {
		cons = nil
	}
	return intent, cons, nil
}
