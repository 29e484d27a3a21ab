// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	"context"
	"time"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"

	extractpdf "github.com/spetr/studyrag/builtin/extract/pdf"
	extractplain "github.com/spetr/studyrag/builtin/extract/plain"
	extractweb "github.com/spetr/studyrag/builtin/extract/web"

	embeddingollama "github.com/spetr/studyrag/builtin/embedding/ollama"
	embeddingopenai "github.com/spetr/studyrag/builtin/embedding/openai"

	generationollama "github.com/spetr/studyrag/builtin/generation/ollama"
	generationopenai "github.com/spetr/studyrag/builtin/generation/openai"

	"github.com/spetr/studyrag/builtin/vectorstore/qdrant"
	"github.com/spetr/studyrag/builtin/vectorstore/sqlitevec"
)

func init() {
	// Embedding providers
	provider.RegisterEmbedding("ollama", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return embeddingollama.New(embeddingollama.Config{
			Model:      cfg.Model,
			Endpoint:   cfg.Endpoint,
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
		}), nil
	})

	provider.RegisterEmbedding("openai", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return embeddingopenai.New(embeddingopenai.Config{
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.Endpoint,
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
		}), nil
	})

	// Text generators
	provider.RegisterGenerator("ollama", func(cfg provider.GenerationConfig) (provider.TextGenerator, error) {
		return generationollama.New(generationollama.Config{
			Model:    cfg.Model,
			Endpoint: cfg.Endpoint,
			Timeout:  cfg.Timeout,
		}), nil
	})

	provider.RegisterGenerator("openai", func(cfg provider.GenerationConfig) (provider.TextGenerator, error) {
		return generationopenai.New(generationopenai.Config{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
		}), nil
	})

	// Vector stores
	provider.RegisterVectorStore("sqlitevec", func(cfg provider.VectorStoreConfig) (provider.VectorStore, error) {
		return sqlitevec.New(sqlitevec.Config{
			Path:       cfg.Path,
			Dimensions: cfg.Dimensions,
		})
	})

	provider.RegisterVectorStore("qdrant", func(cfg provider.VectorStoreConfig) (provider.VectorStore, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return qdrant.New(ctx, qdrant.Config{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			Collection: cfg.Collection,
			Dimensions: cfg.Dimensions,
		})
	})

	// Text extractors, one per source kind
	provider.RegisterExtractor(types.SourceText, func(cfg provider.ExtractorConfig) (provider.TextExtractor, error) {
		return extractplain.New(), nil
	})

	provider.RegisterExtractor(types.SourceFile, func(cfg provider.ExtractorConfig) (provider.TextExtractor, error) {
		return extractpdf.NewAuto(), nil
	})

	provider.RegisterExtractor(types.SourceURL, func(cfg provider.ExtractorConfig) (provider.TextExtractor, error) {
		return extractweb.New(cfg), nil
	})
}
