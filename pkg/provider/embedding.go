// Package provider defines interfaces for pluggable components.
package provider

import (
	"context"
)

// EmbeddingProvider generates vector embeddings from text.
type EmbeddingProvider interface {
	// Name returns the provider name (e.g., "ollama", "openai").
	Name() string

	// Embed generates embeddings for the given texts, order-preserving and
	// 1:1 with the input. A failure for any single text fails the whole
	// call; implementations must never substitute a zero vector.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension size. This is a deployment
	// constant and must match the vector store's configured index.
	Dimensions() int

	// MaxBatchSize returns the maximum number of texts per batch.
	MaxBatchSize() int

	// Close releases any resources.
	Close() error
}

// EmbeddingConfig contains configuration for embedding providers.
type EmbeddingConfig struct {
	Provider   string // "ollama", "openai"
	Model      string // Model name
	Endpoint   string // API endpoint (for Ollama)
	APIKey     string // API key (for OpenAI)
	BatchSize  int    // Texts per batch
	Dimensions int    // Expected dimension, 0 to auto-detect
}
