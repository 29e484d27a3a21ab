package provider

import (
	"fmt"
	"sync"

	"github.com/spetr/studyrag/pkg/types"
)

// EmbeddingFactory creates an EmbeddingProvider from configuration.
type EmbeddingFactory func(config EmbeddingConfig) (EmbeddingProvider, error)

// GeneratorFactory creates a TextGenerator from configuration.
type GeneratorFactory func(config GenerationConfig) (TextGenerator, error)

// VectorStoreFactory creates a VectorStore from configuration.
type VectorStoreFactory func(config VectorStoreConfig) (VectorStore, error)

// ExtractorFactory creates a TextExtractor from configuration.
type ExtractorFactory func(config ExtractorConfig) (TextExtractor, error)

// Registry holds factories for all provider types.
type Registry struct {
	mu sync.RWMutex

	embeddingFactories   map[string]EmbeddingFactory
	generatorFactories   map[string]GeneratorFactory
	vectorStoreFactories map[string]VectorStoreFactory
	extractorFactories   map[types.SourceKind]ExtractorFactory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		embeddingFactories:   make(map[string]EmbeddingFactory),
		generatorFactories:   make(map[string]GeneratorFactory),
		vectorStoreFactories: make(map[string]VectorStoreFactory),
		extractorFactories:   make(map[types.SourceKind]ExtractorFactory),
	}
}

// RegisterEmbedding registers an embedding provider factory.
func (r *Registry) RegisterEmbedding(name string, factory EmbeddingFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddingFactories[name] = factory
}

// RegisterGenerator registers a text generator factory.
func (r *Registry) RegisterGenerator(name string, factory GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generatorFactories[name] = factory
}

// RegisterVectorStore registers a vector store factory.
func (r *Registry) RegisterVectorStore(name string, factory VectorStoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vectorStoreFactories[name] = factory
}

// RegisterExtractor registers a text extractor factory for a source kind.
func (r *Registry) RegisterExtractor(kind types.SourceKind, factory ExtractorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractorFactories[kind] = factory
}

// CreateEmbedding creates an embedding provider by name.
func (r *Registry) CreateEmbedding(name string, config EmbeddingConfig) (EmbeddingProvider, error) {
	r.mu.RLock()
	factory, ok := r.embeddingFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s (available: %v)", name, r.ListEmbeddings())
	}
	return factory(config)
}

// CreateGenerator creates a text generator by name.
func (r *Registry) CreateGenerator(name string, config GenerationConfig) (TextGenerator, error) {
	r.mu.RLock()
	factory, ok := r.generatorFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown text generator: %s (available: %v)", name, r.ListGenerators())
	}
	return factory(config)
}

// CreateVectorStore creates a vector store by name.
func (r *Registry) CreateVectorStore(name string, config VectorStoreConfig) (VectorStore, error) {
	r.mu.RLock()
	factory, ok := r.vectorStoreFactories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown vector store: %s (available: %v)", name, r.ListVectorStores())
	}
	return factory(config)
}

// CreateExtractor creates a text extractor for a source kind.
func (r *Registry) CreateExtractor(kind types.SourceKind, config ExtractorConfig) (TextExtractor, error) {
	r.mu.RLock()
	factory, ok := r.extractorFactories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no extractor for source kind: %s", kind)
	}
	return factory(config)
}

// ListEmbeddings returns all registered embedding provider names.
func (r *Registry) ListEmbeddings() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.embeddingFactories))
	for name := range r.embeddingFactories {
		names = append(names, name)
	}
	return names
}

// ListGenerators returns all registered text generator names.
func (r *Registry) ListGenerators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.generatorFactories))
	for name := range r.generatorFactories {
		names = append(names, name)
	}
	return names
}

// ListVectorStores returns all registered vector store names.
func (r *Registry) ListVectorStores() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.vectorStoreFactories))
	for name := range r.vectorStoreFactories {
		names = append(names, name)
	}
	return names
}

// HasExtractor checks if an extractor is registered for a source kind.
func (r *Registry) HasExtractor(kind types.SourceKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractorFactories[kind]
	return ok
}

// DefaultRegistry is the global default registry.
var DefaultRegistry = NewRegistry()

// RegisterEmbedding registers an embedding provider in the default registry.
func RegisterEmbedding(name string, factory EmbeddingFactory) {
	DefaultRegistry.RegisterEmbedding(name, factory)
}

// RegisterGenerator registers a text generator in the default registry.
func RegisterGenerator(name string, factory GeneratorFactory) {
	DefaultRegistry.RegisterGenerator(name, factory)
}

// RegisterVectorStore registers a vector store in the default registry.
func RegisterVectorStore(name string, factory VectorStoreFactory) {
	DefaultRegistry.RegisterVectorStore(name, factory)
}

// RegisterExtractor registers a text extractor in the default registry.
func RegisterExtractor(kind types.SourceKind, factory ExtractorFactory) {
	DefaultRegistry.RegisterExtractor(kind, factory)
}
