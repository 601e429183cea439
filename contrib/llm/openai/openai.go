// Package openai implements the generation capability with the OpenAI API.
package openai

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/glowstack/dermassist/llm"
)

// Config holds OpenAI client configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration. Temperature defaults
// to 0 so routing and synthesis stay reproducible unless callers opt out.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:    apiKey,
		Model:     "gpt-4o-mini",
		MaxTokens: 2000,
	}
}

// Client implements llm.Client for OpenAI.
type Client struct {
	config *Config
	client openaisdk.Client
}

// New creates a new OpenAI client using the official SDK.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Client{
		config: config,
		client: openaisdk.NewClient(options...),
	}
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	converted := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			converted = append(converted, openaisdk.SystemMessage(msg.Content))
		case llm.RoleUser:
			converted = append(converted, openaisdk.UserMessage(msg.Content))
		case llm.RoleAssistant:
			converted = append(converted, openaisdk.AssistantMessage(msg.Content))
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Messages: converted,
		Model:    openaisdk.ChatModel(c.config.Model),
	}
	if c.config.Temperature > 0 {
		params.Temperature = param.NewOpt(c.config.Temperature)
	}
	if c.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(c.config.MaxTokens)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}
	return completion.Choices[0].Message.Content, nil
}
