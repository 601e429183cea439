// Package anthropic implements the generation capability with the Anthropic
// API.
package anthropic

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/glowstack/dermassist/llm"
)

// Config holds Anthropic client configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Anthropic configuration.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:    apiKey,
		Model:     "claude-3-5-sonnet-20241022",
		MaxTokens: 2048,
	}
}

// Client implements llm.Client for Anthropic.
type Client struct {
	config *Config
	client anthropicsdk.Client
}

// New creates a new Anthropic client using the official SDK.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Client{
		config: config,
		client: anthropicsdk.NewClient(options...),
	}
}

// Generate implements llm.Client. System messages are lifted into the
// dedicated system field the API expects.
func (c *Client) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	var system []anthropicsdk.TextBlockParam
	converted := make([]anthropicsdk.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropicsdk.TextBlockParam{Text: msg.Content})
		case llm.RoleUser:
			converted = append(converted,
				anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(msg.Content)))
		case llm.RoleAssistant:
			converted = append(converted,
				anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(msg.Content)))
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.config.Model),
		Messages:  converted,
		MaxTokens: c.config.MaxTokens,
		System:    system,
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content returned from Anthropic")
}
