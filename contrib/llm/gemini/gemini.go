// Package gemini implements the generation capability with the Google
// Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/glowstack/dermassist/llm"
)

// Config holds Gemini client configuration.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:    apiKey,
		Model:     "gemini-1.5-flash",
		MaxTokens: 2048,
	}
}

// Client implements llm.Client for Gemini.
type Client struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini client using the official SDK.
func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &Client{config: config, client: client}, nil
}

// Generate implements llm.Client. Gemini has no separate system role, so
// system messages are folded into the first user part.
func (c *Client) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	model := c.client.GenerativeModel(c.config.Model)
	if c.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(c.config.MaxTokens)
	}
	model.SetTemperature(c.config.Temperature)

	var parts []genai.Part
	var system []string
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		default:
			parts = append(parts, genai.Text(msg.Content))
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content returned from Gemini")
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}
