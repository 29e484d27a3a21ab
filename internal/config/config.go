// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	Embedding   EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Generation  GenerationConfig  `mapstructure:"generation" yaml:"generation"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore" yaml:"vectorstore"`
	Chunking    ChunkingConfig    `mapstructure:"chunking" yaml:"chunking"`
	Assembly    AssemblyConfig    `mapstructure:"assembly" yaml:"assembly"`
	Answer      AnswerConfig      `mapstructure:"answer" yaml:"answer"`
	Query       QueryConfig       `mapstructure:"query" yaml:"query"`
	Ingest      IngestConfig      `mapstructure:"ingest" yaml:"ingest"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`     // ollama, openai
	Model      string `mapstructure:"model" yaml:"model"`           // model name
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`     // API endpoint
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`       // API key
	BatchSize  int    `mapstructure:"batch_size" yaml:"batch_size"` // texts per batch
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"` // expected dimension
}

// GenerationConfig contains text generator configuration.
type GenerationConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider"` // ollama, openai
	Model    string        `mapstructure:"model" yaml:"model"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"` // per-call, generation is slow
}

// VectorStoreConfig contains vector store configuration.
type VectorStoreConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"` // sqlitevec, qdrant
	Path       string `mapstructure:"path" yaml:"path"`
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"` // index dimension
}

// ChunkingConfig contains sentence chunker configuration.
type ChunkingConfig struct {
	TargetSize int `mapstructure:"target_size" yaml:"target_size"` // chars per chunk
	Overlap    int `mapstructure:"overlap" yaml:"overlap"`         // trailing chars carried over
}

// AssemblyConfig contains context assembler configuration.
type AssemblyConfig struct {
	MaxContextChars int     `mapstructure:"max_context_chars" yaml:"max_context_chars"`
	MinHitChars     int     `mapstructure:"min_hit_chars" yaml:"min_hit_chars"`
	MinTailChars    int     `mapstructure:"min_tail_chars" yaml:"min_tail_chars"`
	VectorWeight    float32 `mapstructure:"vector_weight" yaml:"vector_weight"`
	LexicalWeight   float32 `mapstructure:"lexical_weight" yaml:"lexical_weight"`
}

// AnswerConfig contains answer generator configuration.
type AnswerConfig struct {
	Language     string `mapstructure:"language" yaml:"language"` // sv, en
	MaxSentences int    `mapstructure:"max_sentences" yaml:"max_sentences"`
}

// QueryConfig contains query orchestrator configuration.
type QueryConfig struct {
	TopK int `mapstructure:"top_k" yaml:"top_k"`
}

// IngestConfig contains ingestion limits and the optional drop directory.
type IngestConfig struct {
	MaxSourceBytes int64  `mapstructure:"max_source_bytes" yaml:"max_source_bytes"`
	WatchDir       string `mapstructure:"watch_dir" yaml:"watch_dir"` // auto-ingest drop directory
	WatchOwner     string `mapstructure:"watch_owner" yaml:"watch_owner"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			Endpoint:  "http://localhost:11434",
			BatchSize: 32,
		},
		Generation: GenerationConfig{
			Provider: "ollama",
			Model:    "llama3.1",
			Endpoint: "http://localhost:11434",
			Timeout:  120 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			Provider:   "sqlitevec",
			Path:       "studyrag.db",
			Collection: "studyrag",
			Dimensions: 768,
		},
		Chunking: ChunkingConfig{
			TargetSize: 1000,
			Overlap:    200,
		},
		Assembly: AssemblyConfig{
			MaxContextChars: 2000,
			MinHitChars:     20,
			MinTailChars:    100,
			VectorWeight:    0.7,
			LexicalWeight:   0.3,
		},
		Answer: AnswerConfig{
			Language:     "sv",
			MaxSentences: 4,
		},
		Query: QueryConfig{
			TopK: 5,
		},
		Ingest: IngestConfig{
			MaxSourceBytes: 16 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the .studyrag directory.
func ConfigDir(root string) string {
	return filepath.Join(root, ".studyrag")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "config.yaml")
}

// MetadataPath returns the path to the document and chat metadata database.
func MetadataPath(root string) string {
	return filepath.Join(ConfigDir(root), "metadata.db")
}

// Load loads configuration from file, falling back to defaults.
func Load(root string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	configPath := ConfigPath(root)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
		return cfg, warnings, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
		warnings = append(warnings, "Using default embedding provider: ollama")
	}
	if cfg.Embedding.Endpoint == "" {
		cfg.Embedding.Endpoint = "http://localhost:11434"
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 120 * time.Second
	}
	if cfg.Chunking.TargetSize == 0 {
		cfg.Chunking.TargetSize = 1000
	}
	if cfg.Assembly.MaxContextChars == 0 {
		cfg.Assembly.MaxContextChars = 2000
	}
	if cfg.Assembly.MinTailChars == 0 {
		cfg.Assembly.MinTailChars = 100
	}
	if cfg.Assembly.VectorWeight == 0 && cfg.Assembly.LexicalWeight == 0 {
		cfg.Assembly.VectorWeight = 0.7
		cfg.Assembly.LexicalWeight = 0.3
	}
	if cfg.Answer.MaxSentences == 0 {
		cfg.Answer.MaxSentences = 4
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}

	return cfg, warnings, nil
}

// Save saves configuration to file.
func Save(root string, cfg *Config) error {
	configDir := ConfigDir(root)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(root))
	v.SetConfigType("yaml")

	v.Set("embedding", cfg.Embedding)
	v.Set("generation", cfg.Generation)
	v.Set("vectorstore", cfg.VectorStore)
	v.Set("chunking", cfg.Chunking)
	v.Set("assembly", cfg.Assembly)
	v.Set("answer", cfg.Answer)
	v.Set("query", cfg.Query)
	v.Set("ingest", cfg.Ingest)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validEmbeddingProviders := map[string]bool{
		"ollama": true, "openai": true,
	}
	if !validEmbeddingProviders[cfg.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("invalid embedding provider: %s", cfg.Embedding.Provider))
	}

	validGenerators := map[string]bool{
		"ollama": true, "openai": true,
	}
	if !validGenerators[cfg.Generation.Provider] {
		errs = append(errs, fmt.Errorf("invalid generation provider: %s", cfg.Generation.Provider))
	}

	validStores := map[string]bool{
		"sqlitevec": true, "qdrant": true,
	}
	if !validStores[cfg.VectorStore.Provider] {
		errs = append(errs, fmt.Errorf("invalid vector store: %s", cfg.VectorStore.Provider))
	}

	if cfg.Chunking.Overlap < 0 || cfg.Chunking.Overlap >= cfg.Chunking.TargetSize {
		errs = append(errs, fmt.Errorf("chunking overlap must satisfy 0 <= overlap < target_size, got %d/%d",
			cfg.Chunking.Overlap, cfg.Chunking.TargetSize))
	}

	validLanguages := map[string]bool{
		"sv": true, "en": true,
	}
	if !validLanguages[cfg.Answer.Language] {
		errs = append(errs, fmt.Errorf("invalid answer language: %s (valid: sv, en)", cfg.Answer.Language))
	}

	if cfg.VectorStore.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("vector store dimensions must be >= 0, got %d", cfg.VectorStore.Dimensions))
	}

	return errs
}
