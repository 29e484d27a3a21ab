// Package openai implements TextGenerator using OpenAI's chat API.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/spetr/studyrag/pkg/provider"
)

// Default values
const (
	DefaultModel = "gpt-4o-mini"
)

// Config contains OpenAI generator configuration.
type Config struct {
	Model   string
	APIKey  string // If empty, uses OPENAI_API_KEY env var
	BaseURL string // Optional: custom API endpoint
}

// Generator implements the TextGenerator interface for OpenAI.
type Generator struct {
	config Config
	client *openai.Client
}

// New creates a new OpenAI text generator.
func New(cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Generator{
		config: cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the generator name.
func (g *Generator) Name() string {
	return "openai"
}

// Generate produces a completion for the request prompt.
func (g *Generator) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	}
	if req.Temperature > 0 {
		chatReq.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if len(req.Stop) > 0 {
		chatReq.Stop = req.Stop
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close releases resources.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements TextGenerator interface
var _ provider.TextGenerator = (*Generator)(nil)
