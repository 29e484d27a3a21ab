package provider

import (
	"context"
	"time"
)

// GenerateRequest is one text-generation invocation.
type GenerateRequest struct {
	Prompt      string
	Stop        []string // Stop markers, generation halts when one is emitted
	Temperature float32
	MaxTokens   int
}

// TextGenerator produces text completions from a prompt.
type TextGenerator interface {
	// Name returns the generator name (e.g., "ollama", "openai").
	Name() string

	// Generate returns the full completion for the request. Streaming
	// backends assemble the deltas before returning.
	Generate(ctx context.Context, req GenerateRequest) (string, error)

	// Close releases any resources.
	Close() error
}

// GenerationConfig contains configuration for text generators.
type GenerationConfig struct {
	Provider string // "ollama", "openai"
	Model    string
	Endpoint string
	APIKey   string
	Timeout  time.Duration // Per-call timeout, generation can be slow
}
