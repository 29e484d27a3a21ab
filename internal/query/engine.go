// Package query drives the read path: embed the question, search the
// caller's namespaces, assemble context and generate a grounded answer.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spetr/studyrag/internal/answer"
	"github.com/spetr/studyrag/internal/assemble"
	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// Default values
const (
	DefaultTopK            = 5
	DefaultMaxContextChars = 2000
)

// Engine handles query orchestration. Safe for concurrent use; all
// per-query state is local.
type Engine struct {
	embedding provider.EmbeddingProvider
	store     provider.VectorStore
	assembler *assemble.Assembler
	answerer  *answer.Generator
	recorder  provider.ChatRecorder   // optional
	documents provider.DocumentLister // optional
}

// Config contains query engine configuration.
type Config struct {
	Embedding provider.EmbeddingProvider
	Store     provider.VectorStore
	Assembler *assemble.Assembler
	Answerer  *answer.Generator
	Recorder  provider.ChatRecorder   // optional persistence collaborator
	Documents provider.DocumentLister // optional, resolves namespaces for unscoped questions
}

// New creates a new query engine.
func New(cfg Config) *Engine {
	return &Engine{
		embedding: cfg.Embedding,
		store:     cfg.Store,
		assembler: cfg.Assembler,
		answerer:  cfg.Answerer,
		recorder:  cfg.Recorder,
		documents: cfg.Documents,
	}
}

// Request is one incoming question.
type Request struct {
	UserID      string
	DocumentIDs []string          // documents to search, each in its own namespace
	Namespaces  []types.Namespace // pre-built namespaces, validated against UserID
	Question    string
	TopK        int
	MaxContext  int
	Language    types.Language
	Style       types.AnswerStyle
}

// Ask answers the question from the caller's documents. Zero hits proceed
// with empty context and trigger the answer generator's fallback path; an
// unauthorized namespace is a hard error, never an empty result.
func (e *Engine) Ask(ctx context.Context, req Request) (*types.QueryResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", types.ErrNamespaceDenied)
	}
	if req.Question == "" {
		return nil, fmt.Errorf("%w: empty question", types.ErrEmptyInput)
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	if req.MaxContext <= 0 {
		req.MaxContext = DefaultMaxContextChars
	}

	namespaces, err := e.resolveNamespaces(ctx, req)
	if err != nil {
		return nil, err
	}

	embeddings, err := e.embedding.Embed(ctx, []string{req.Question})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %v", types.ErrEmbeddingProvider, err)
	}
	queryVec := embeddings[0]

	hits, err := e.searchNamespaces(ctx, namespaces, queryVec, req.TopK)
	if err != nil {
		return nil, err
	}

	contextText := e.assembler.Assemble(hits, req.Question, req.MaxContext)

	ans, err := e.answerer.Generate(ctx, req.Question, contextText, req.Language, req.Style)
	if err != nil {
		return nil, err
	}

	if e.recorder != nil {
		docID := ""
		if len(req.DocumentIDs) == 1 {
			docID = req.DocumentIDs[0]
		}
		if err := e.recorder.SaveExchange(ctx, req.UserID, docID, req.Question, ans); err != nil {
			slog.Warn("failed to record exchange", "user", req.UserID, "error", err)
		}
	}

	return &types.QueryResult{
		Question: req.Question,
		Answer:   ans,
		Hits:     hits,
		Context:  contextText,
	}, nil
}

// resolveNamespaces builds the namespace set from document ids and verifies
// every explicitly supplied namespace belongs to the caller. An unscoped
// question fans out over all of the user's documents; vectors always live
// under per-document namespaces, so the bare tenant namespace matches
// nothing and is only the last resort when no lister is configured.
func (e *Engine) resolveNamespaces(ctx context.Context, req Request) ([]types.Namespace, error) {
	var namespaces []types.Namespace
	seen := make(map[types.Namespace]bool)

	for _, docID := range req.DocumentIDs {
		ns := types.NewNamespace(req.UserID, docID)
		if !seen[ns] {
			seen[ns] = true
			namespaces = append(namespaces, ns)
		}
	}

	for _, ns := range req.Namespaces {
		if err := ns.Validate(); err != nil {
			return nil, err
		}
		if !ns.OwnedBy(req.UserID) {
			return nil, fmt.Errorf("%w: user %s cannot query %s", types.ErrNamespaceDenied, req.UserID, ns)
		}
		if !seen[ns] {
			seen[ns] = true
			namespaces = append(namespaces, ns)
		}
	}

	if len(namespaces) == 0 && e.documents != nil {
		docs, err := e.documents.ListDocuments(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("listing documents for %s: %w", req.UserID, err)
		}
		for _, doc := range docs {
			ns := types.NewNamespace(req.UserID, doc.ID)
			if !seen[ns] {
				seen[ns] = true
				namespaces = append(namespaces, ns)
			}
		}
	}

	if len(namespaces) == 0 {
		namespaces = append(namespaces, types.NewNamespace(req.UserID, ""))
	}

	return namespaces, nil
}

// searchNamespaces queries each namespace and merges hits by descending
// score, keeping topK overall.
func (e *Engine) searchNamespaces(ctx context.Context, namespaces []types.Namespace, vector []float32, topK int) ([]*types.SearchHit, error) {
	var merged []*types.SearchHit

	for _, ns := range namespaces {
		hits, err := e.store.Query(ctx, ns, vector, topK)
		if err != nil {
			return nil, fmt.Errorf("%w: query namespace %s: %v", types.ErrVectorStore, ns, err)
		}
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}

	return merged, nil
}
