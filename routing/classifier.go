package routing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/glowstack/dermassist/pkg/logging"
)

// Keyword groups scored by the rule classifier. A query is routed to the
// intent whose group matches the most phrases; ties fall through to the
// pattern checks in classify.
var (
	catalogKeywords = []string{
		"recommend", "suggest", "buy", "purchase", "product", "best",
		"under", "below", "price", "budget", "cheap", "affordable",
		"₹", "rupees", "inr",
		"moisturizer", "cleanser", "sunscreen", "serum", "cream",
		"face wash", "toner", "mask", "oil", "gel",
		"where to buy", "show me", "need a", "looking for",
		"brand", "shop",
	}

	documentKeywords = []string{
		"how to", "what is", "why does", "explain", "learn",
		"article", "blog", "read about", "guide", "tips",
		"benefits of", "causes of", "treatment for", "cure for",
		"routine for", "steps for", "regimen", "process",
		"information", "tell me about", "help me understand",
	}

	// Anaphora markers that let a short follow-up inherit the previous
	// turn's intent when scoring is inconclusive.
	followUpMarkers = []string{
		"cheaper", "another", "other one", "same", "that one",
		"those", "instead", "what about", "and for",
	}
)

// RuleClassifier is the deterministic decision layer behind the Classify
// contract: keyword scoring plus pattern tie-breaks, with general-knowledge
// as the default. It never fails.
type RuleClassifier struct {
	logger *slog.Logger
}

// NewRuleClassifier creates the rule-based classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		logger: logging.WithComponent("rule_classifier"),
	}
}

// Classify implements the Classifier interface. The returned error is always
// nil; classification is total.
func (c *RuleClassifier) Classify(_ context.Context, query string, history []HistoryEntry) (Intent, Constraints, error) {
	intent := c.classify(query, history)
	cons := ExtractConstraints(query)
	c.logger.Debug("query classified",
		"intent", string(intent),
		"constraints", len(cons),
	)
	return intent, cons, nil
}

func (c *RuleClassifier) classify(query string, history []HistoryEntry) Intent {
	lower := strings.ToLower(query)

	catalogScore := countMatches(lower, catalogKeywords)
	documentScore := countMatches(lower, documentKeywords)

	switch {
	case catalogScore > documentScore:
		return IntentCatalog
	case documentScore > catalogScore:
		return IntentDocument
	}

	// Tied (possibly zero-zero): check the stronger patterns first.
	if containsAny(lower, "recommend", "buy", "purchase", "price", "under", "below") {
		return IntentCatalog
	}
	if containsAny(lower, "how", "what", "why", "explain") {
		return IntentDocument
	}

	// Short follow-ups inherit the previous turn's intent.
	if len(history) > 0 && containsAny(lower, followUpMarkers...) {
		last := history[len(history)-1].Intent
		if last == IntentCatalog || last == IntentDocument {
			return last
		}
	}

	return IntentGeneral
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func containsAny(lower string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
