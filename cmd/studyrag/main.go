// studyrag ingests study material and answers questions grounded in it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/spetr/studyrag/builtin"
	metastore "github.com/spetr/studyrag/builtin/persistence/sqlite"
	"github.com/spetr/studyrag/internal/answer"
	"github.com/spetr/studyrag/internal/assemble"
	"github.com/spetr/studyrag/internal/chunk"
	"github.com/spetr/studyrag/internal/config"
	"github.com/spetr/studyrag/internal/ingest"
	"github.com/spetr/studyrag/internal/query"
	"github.com/spetr/studyrag/internal/quiz"
	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

var (
	version   = "0.1.0"
	logLevel  string
	logFormat string
	userID    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "studyrag",
	Short: "Grounded question answering over your own study material",
	Long: `studyrag ingests study documents (text, PDF, web pages), indexes them
in a vector store, and answers questions strictly from the uploaded
material. When the material does not contain the answer, it says so
instead of guessing.

Each user's documents live in isolated namespaces; one user can never
retrieve another user's content.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("studyrag %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <path-or-url>",
	Short: "Ingest a document",
	Long: `Ingest a document into the vector store. The argument is a file path
or an http(s) URL; use --text to pass inline text instead.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text, _ := cmd.Flags().GetString("text")
		name, _ := cmd.Flags().GetString("name")

		arg := ""
		if len(args) > 0 {
			arg = args[0]
		}
		runIngest(arg, text, name)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your documents",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		docs, _ := cmd.Flags().GetStringSlice("document")
		topK, _ := cmd.Flags().GetInt("top-k")
		lang, _ := cmd.Flags().GetString("language")
		style, _ := cmd.Flags().GetString("style")
		showContext, _ := cmd.Flags().GetBool("show-context")

		runAsk(args[0], docs, topK, lang, style, showContext)
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz <document-id>",
	Short: "Generate practice questions from a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		count, _ := cmd.Flags().GetInt("count")
		lang, _ := cmd.Flags().GetString("language")
		showAnswers, _ := cmd.Flags().GetBool("answers")

		runQuiz(args[0], count, lang, showAnswers)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your ingested documents",
	Run: func(cmd *cobra.Command, args []string) {
		runList()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document's vectors",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runDelete(args[0])
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and ingest dropped documents automatically",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		debounce, _ := cmd.Flags().GetInt("debounce")
		runWatch(dir, debounce)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigInit()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigValidate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "user id owning the documents")

	ingestCmd.Flags().String("text", "", "ingest this inline text instead of a file or url")
	ingestCmd.Flags().String("name", "", "display name for the document")

	askCmd.Flags().StringSliceP("document", "d", nil, "limit search to these document ids")
	askCmd.Flags().IntP("top-k", "k", 0, "similarity hits to retrieve (default from config)")
	askCmd.Flags().StringP("language", "l", "", "answer language (sv, en)")
	askCmd.Flags().StringP("style", "s", "", "answer style (concise, detailed, educational)")
	askCmd.Flags().Bool("show-context", false, "print the assembled context")

	quizCmd.Flags().IntP("count", "n", 5, "number of questions")
	quizCmd.Flags().StringP("language", "l", "", "question language (sv, en)")
	quizCmd.Flags().Bool("answers", false, "print the grounding answers")

	watchCmd.Flags().Int("debounce", 500, "debounce time in milliseconds")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging() {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// loadConfig loads config from the working directory, printing warnings.
func loadConfig() *config.Config {
	cfg, warnings, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		slog.Debug(w)
	}
	return cfg
}

// buildProviders creates the embedding provider, vector store and text
// generator from config via the default registry.
func buildProviders(cfg *config.Config) (provider.EmbeddingProvider, provider.VectorStore, provider.TextGenerator, error) {
	embedding, err := provider.DefaultRegistry.CreateEmbedding(cfg.Embedding.Provider, provider.EmbeddingConfig{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		BatchSize:  cfg.Embedding.BatchSize,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := provider.DefaultRegistry.CreateVectorStore(cfg.VectorStore.Provider, provider.VectorStoreConfig{
		Provider:   cfg.VectorStore.Provider,
		Path:       cfg.VectorStore.Path,
		Endpoint:   cfg.VectorStore.Endpoint,
		APIKey:     cfg.VectorStore.APIKey,
		Collection: cfg.VectorStore.Collection,
		Dimensions: cfg.VectorStore.Dimensions,
	})
	if err != nil {
		embedding.Close()
		return nil, nil, nil, err
	}

	generator, err := provider.DefaultRegistry.CreateGenerator(cfg.Generation.Provider, provider.GenerationConfig{
		Provider: cfg.Generation.Provider,
		Model:    cfg.Generation.Model,
		Endpoint: cfg.Generation.Endpoint,
		APIKey:   cfg.Generation.APIKey,
		Timeout:  cfg.Generation.Timeout,
	})
	if err != nil {
		embedding.Close()
		store.Close()
		return nil, nil, nil, err
	}

	return embedding, store, generator, nil
}

// buildExtractors creates one extractor per registered source kind.
func buildExtractors(cfg *config.Config) (map[types.SourceKind]provider.TextExtractor, error) {
	extractors := make(map[types.SourceKind]provider.TextExtractor)
	extractorCfg := provider.ExtractorConfig{
		MaxFetchBytes: cfg.Ingest.MaxSourceBytes,
	}

	for _, kind := range []types.SourceKind{types.SourceText, types.SourceFile, types.SourceURL} {
		ex, err := provider.DefaultRegistry.CreateExtractor(kind, extractorCfg)
		if err != nil {
			return nil, err
		}
		extractors[kind] = ex
	}
	return extractors, nil
}

// buildIngestor assembles the ingestion pipeline from config.
func buildIngestor(cfg *config.Config, embedding provider.EmbeddingProvider, store provider.VectorStore, saver provider.DocumentSaver) (*ingest.Ingestor, error) {
	extractors, err := buildExtractors(cfg)
	if err != nil {
		return nil, err
	}

	chunker, err := chunk.New(cfg.Chunking.TargetSize, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	return ingest.New(ingest.Config{
		Extractors: extractors,
		Embedding:  embedding,
		Store:      store,
		Chunker:    chunker,
		Saver:      saver,
		OnProgress: func(p types.IngestProgress) {
			slog.Debug("ingest progress", "stage", p.Stage, "chunks", p.TotalChunks)
		},
	}), nil
}

// openMetadata opens the local metadata database. Metadata is a convenience
// layer; a failure to open it degrades to a warning, not an error.
func openMetadata() *metastore.Store {
	meta, err := metastore.New(config.MetadataPath("."))
	if err != nil {
		slog.Warn("metadata database unavailable", "error", err)
		return nil
	}
	return meta
}

func runIngest(arg, inlineText, name string) {
	cfg := loadConfig()

	embedding, store, generator, err := buildProviders(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer embedding.Close()
	defer store.Close()
	defer generator.Close()

	meta := openMetadata()
	var saver provider.DocumentSaver
	if meta != nil {
		saver = meta
		defer meta.Close()
	}

	ingestor, err := buildIngestor(cfg, embedding, store, saver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src, err := buildSource(arg, inlineText, name, cfg.Ingest.MaxSourceBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := ingestor.Ingest(ctx, ingest.Request{
		OwnerID: userID,
		Source:  src,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Ingested %q\n", result.Document.Name)
	fmt.Printf("  Document ID: %s\n", result.Document.ID)
	fmt.Printf("  Chunks:      %d\n", result.ChunkCount)
	fmt.Printf("  Dimensions:  %d\n", result.Dimensions)
	fmt.Printf("  Text size:   %d chars\n", result.TextSize)
	fmt.Printf("  Duration:    %s\n", result.Duration.Round(time.Millisecond))
}

// buildSource classifies the ingest argument into a source.
func buildSource(arg, inlineText, name string, maxBytes int64) (*types.Source, error) {
	if inlineText != "" {
		if name == "" {
			name = "inline text"
		}
		return &types.Source{Kind: types.SourceText, Name: name, Data: []byte(inlineText)}, nil
	}

	if arg == "" {
		return nil, fmt.Errorf("a file path, url or --text is required")
	}

	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		if name == "" {
			name = arg
		}
		return &types.Source{Kind: types.SourceURL, Name: name, URL: arg}, nil
	}

	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", arg, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%q is %d bytes, limit is %d", arg, info.Size(), maxBytes)
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(arg)
	}
	return &types.Source{Kind: types.SourceFile, Name: name, Data: data}, nil
}

func runAsk(question string, docs []string, topK int, lang, style string, showContext bool) {
	cfg := loadConfig()

	embedding, store, generator, err := buildProviders(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer embedding.Close()
	defer store.Close()
	defer generator.Close()

	assembler := assemble.New(assemble.Config{
		MinHitChars:   cfg.Assembly.MinHitChars,
		MinTailChars:  cfg.Assembly.MinTailChars,
		VectorWeight:  cfg.Assembly.VectorWeight,
		LexicalWeight: cfg.Assembly.LexicalWeight,
	})

	answerer := answer.New(answer.Config{
		Generator:    generator,
		MaxSentences: cfg.Answer.MaxSentences,
		Timeout:      cfg.Generation.Timeout,
	})

	meta := openMetadata()
	var recorder provider.ChatRecorder
	var lister provider.DocumentLister
	if meta != nil {
		recorder = meta
		lister = meta
		defer meta.Close()
	}

	engine := query.New(query.Config{
		Embedding: embedding,
		Store:     store,
		Assembler: assembler,
		Answerer:  answerer,
		Recorder:  recorder,
		Documents: lister,
	})

	if lang == "" {
		lang = cfg.Answer.Language
	}
	if topK == 0 {
		topK = cfg.Query.TopK
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := engine.Ask(ctx, query.Request{
		UserID:      userID,
		DocumentIDs: docs,
		Question:    question,
		TopK:        topK,
		MaxContext:  cfg.Assembly.MaxContextChars,
		Language:    types.Language(lang),
		Style:       types.AnswerStyle(style),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	if showContext {
		fmt.Println("--- Context ---")
		fmt.Println(result.Context)
		fmt.Println("---------------")
	}

	fmt.Println(result.Answer.Text)
	if result.Answer.Fallback {
		os.Exit(2) // distinct exit code for "not in material"
	}
}

func runQuiz(documentID string, count int, lang string, showAnswers bool) {
	cfg := loadConfig()

	embedding, store, generator, err := buildProviders(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer embedding.Close()
	defer store.Close()
	defer generator.Close()

	if lang == "" {
		lang = cfg.Answer.Language
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Pull the document's chunks back out of the store by querying its
	// namespace with a neutral probe. The store caps results at topK, so ask
	// for enough to cover typical documents.
	ns := types.NewNamespace(userID, documentID)
	probe, err := embedding.Embed(ctx, []string{"summary of the document"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	hits, err := store.Query(ctx, ns, probe[0], 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(hits) == 0 {
		fmt.Fprintf(os.Stderr, "No content found for document %s\n", documentID)
		os.Exit(1)
	}

	chunks := make([]string, len(hits))
	for i, h := range hits {
		chunks[i] = h.Text
	}

	questions, err := quiz.New().Generate(chunks, types.Language(lang), count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Quiz generation failed: %v\n", err)
		os.Exit(1)
	}

	for i, q := range questions {
		fmt.Printf("%d. [%s] %s\n", i+1, q.Kind, q.Prompt)
		if showAnswers {
			fmt.Printf("   -> %s\n", q.Answer)
		}
	}
}

func runList() {
	meta := openMetadata()
	if meta == nil {
		fmt.Fprintln(os.Stderr, "No metadata database found; ingest a document first")
		os.Exit(1)
	}
	defer meta.Close()

	ctx, cancel := signalContext()
	defer cancel()

	docs, err := meta.ListDocuments(ctx, userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("No documents")
		return
	}

	for _, doc := range docs {
		fmt.Printf("%-20s %-6s %4d chunks  %s  %s\n",
			doc.ID, doc.SourceKind, doc.ChunkCount,
			doc.UploadedAt.Format("2006-01-02 15:04"), doc.Name)
	}
}

func runDelete(documentID string) {
	cfg := loadConfig()

	embedding, store, generator, err := buildProviders(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer embedding.Close()
	defer store.Close()
	defer generator.Close()

	ingestor, err := buildIngestor(cfg, embedding, store, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := ingestor.Delete(ctx, userID, documentID); err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}

	if meta := openMetadata(); meta != nil {
		if err := meta.DeleteDocument(ctx, userID, documentID); err != nil {
			slog.Warn("failed to delete document metadata", "document", documentID, "error", err)
		}
		meta.Close()
	}
	fmt.Printf("Deleted document %s\n", documentID)
}

func runWatch(dir string, debounceMs int) {
	cfg := loadConfig()

	if dir == "" {
		dir = cfg.Ingest.WatchDir
	}
	if dir == "" {
		dir = "incoming"
	}
	owner := cfg.Ingest.WatchOwner
	if owner == "" {
		owner = userID
	}

	embedding, store, generator, err := buildProviders(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer embedding.Close()
	defer store.Close()
	defer generator.Close()

	meta := openMetadata()
	var saver provider.DocumentSaver
	if meta != nil {
		saver = meta
		defer meta.Close()
	}

	ingestor, err := buildIngestor(cfg, embedding, store, saver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
		Ingestor:     ingestor,
		OwnerID:      owner,
		DropDir:      dir,
		DebounceTime: time.Duration(debounceMs) * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := watcher.Watch(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Watcher failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfigInit() {
	path := config.ConfigPath(".")
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Config already exists at %s\n", path)
		os.Exit(1)
	}

	if err := config.Save(".", config.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", path)
}

func runConfigValidate() {
	cfg := loadConfig()

	errs := config.Validate(cfg)
	if len(errs) == 0 {
		fmt.Println("Configuration is valid")
		return
	}
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "  - %v\n", err)
	}
	os.Exit(1)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
