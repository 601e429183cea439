// Package synthesis turns an evidence bundle into the final answer text and
// citation list via the generation capability.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/glowstack/dermassist/agents"
	"github.com/glowstack/dermassist/llm"
	"github.com/glowstack/dermassist/pkg/logging"
	"github.com/glowstack/dermassist/retrieval"
)

const defaultPrompt = `You are a careful skincare assistant. Answer the user question using only the supplied evidence.
Guidelines:
1. Attribute every factual statement with [source-id] citations placed at the end of the supporting sentence.
2. Never invent products, prices, or medical claims that are not in the evidence.
3. When citing web results, remind the user to verify with reliable sources.
4. If the evidence cannot answer the question, say so explicitly instead of guessing.`

// NoEvidenceAnswer is returned verbatim when the bundle is empty. Producing
// it without a model call is the grounding invariant: no evidence, no
// substantive answer.
const NoEvidenceAnswer = "I could not find any evidence to answer that. Try rephrasing your question or adjusting your filters."

// Synthesizer composes answers from evidence bundles.
type Synthesizer struct {
	client      llm.Client
	prompt      string
	noEvidence  string
	tokenBudget int
	timeout     time.Duration
	encoder     *tiktoken.Tiktoken
	logger      *slog.Logger
}

// Option customises a Synthesizer.
type Option func(*Synthesizer)

// WithPrompt overrides the system prompt.
func WithPrompt(prompt string) Option {
	return func(s *Synthesizer) {
		if strings.TrimSpace(prompt) != "" {
			s.prompt = prompt
		}
	}
}

// WithNoEvidenceAnswer overrides the fixed empty-evidence reply.
func WithNoEvidenceAnswer(msg string) Option {
	return func(s *Synthesizer) {
		if strings.TrimSpace(msg) != "" {
			s.noEvidence = msg
		}
	}
}

// WithTokenBudget caps how many evidence tokens are packed into the prompt.
func WithTokenBudget(budget int) Option {
	return func(s *Synthesizer) {
		if budget > 0 {
			s.tokenBudget = budget
		}
	}
}

// WithGenerationTimeout bounds the model call.
func WithGenerationTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Synthesizer. The tiktoken encoder is best-effort: when the
// encoding is unavailable offline the budget falls back to a character
// heuristic.
func New(client llm.Client, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		client:      client,
		prompt:      defaultPrompt,
		noEvidence:  NoEvidenceAnswer,
		tokenBudget: 3000,
		timeout:     30 * time.Second,
		logger:      logging.WithComponent("synthesizer"),
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		s.encoder = enc
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Synthesize produces the answer text plus the citation list: the subset of
// evidence source ids actually referenced in the answer.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, bundle agents.Bundle) (string, []string, error) {
	if bundle.Empty() {
		s.logger.Info("empty evidence bundle, returning no-evidence answer")
		return s.noEvidence, nil, nil
	}
	if s.client == nil {
		return "", nil, fmt.Errorf("synthesizer client is not configured")
	}

	packed := s.packEvidence(bundle.Items)
	userPrompt := fmt.Sprintf("Question:\n%s\n\nEvidence:\n%s", query, packed)

	msgs := []llm.Message{
		llm.NewMessage(llm.RoleSystem, s.prompt),
		llm.NewMessage(llm.RoleUser, userPrompt),
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	answer, err := s.client.Generate(ctx, msgs)
	if err != nil {
		return "", nil, fmt.Errorf("synthesis failed: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", nil, fmt.Errorf("synthesis produced empty answer")
	}

	return answer, citations(answer, bundle.Items), nil
}

// packEvidence renders evidence blocks until the token budget is spent.
func (s *Synthesizer) packEvidence(items []retrieval.Evidence) string {
	var b strings.Builder
	used := 0
	for _, item := range items {
		block := fmt.Sprintf("[%s] (%s, score %.2f)\n%s\n---\n",
			item.SourceID, item.SourceKind, item.Score, item.Excerpt)
		cost := s.countTokens(block)
		if used+cost > s.tokenBudget && used > 0 {
			s.logger.Debug("token budget reached while packing evidence",
				"used", used, "budget", s.tokenBudget)
			break
		}
		b.WriteString(block)
		used += cost
	}
	return b.String()
}

func (s *Synthesizer) countTokens(text string) int {
	if s.encoder != nil {
		return len(s.encoder.Encode(text, nil, nil))
	}
	// rough 4 chars per token heuristic
	return len(text)/4 + 1
}

// citations returns the evidence ids referenced as [id] in the answer,
// preserving bundle order.
func citations(answer string, items []retrieval.Evidence) []string {
	var cited []string
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.SourceID] {
			continue
		}
		if strings.Contains(answer, "["+item.SourceID+"]") {
			cited = append(cited, item.SourceID)
			seen[item.SourceID] = true
		}
	}
	return cited
}
