// Package ingest drives the document ingestion pipeline: extract, chunk,
// embed, upsert.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spetr/studyrag/internal/chunk"
	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// Ingestor runs the ingestion state machine for one document at a time.
// Instances are safe for concurrent use; all pipeline state is per-request.
type Ingestor struct {
	extractors map[types.SourceKind]provider.TextExtractor
	embedding  provider.EmbeddingProvider
	store      provider.VectorStore
	chunker    *chunk.Chunker
	saver      provider.DocumentSaver // optional
	onProgress func(types.IngestProgress)
}

// Config contains ingestor configuration.
type Config struct {
	Extractors map[types.SourceKind]provider.TextExtractor
	Embedding  provider.EmbeddingProvider
	Store      provider.VectorStore
	Chunker    *chunk.Chunker
	Saver      provider.DocumentSaver // optional persistence collaborator
	OnProgress func(types.IngestProgress)
}

// New creates a new ingestor.
func New(cfg Config) *Ingestor {
	return &Ingestor{
		extractors: cfg.Extractors,
		embedding:  cfg.Embedding,
		store:      cfg.Store,
		chunker:    cfg.Chunker,
		saver:      cfg.Saver,
		onProgress: cfg.OnProgress,
	}
}

// Request describes one document to ingest.
type Request struct {
	OwnerID    string
	Source     *types.Source
	DocumentID string // optional, generated when empty
}

// Ingest runs Received -> Extracted -> Chunked -> Embedded -> Stored ->
// Processed. Any step failure aborts the pipeline and surfaces the failing
// stage via StageError; no record reaches the store until every chunk of
// the document embedded successfully.
func (ing *Ingestor) Ingest(ctx context.Context, req Request) (*types.IngestResult, error) {
	start := time.Now()

	// Stage: received
	if req.OwnerID == "" {
		return nil, types.NewStageError(types.StageReceived,
			fmt.Errorf("%w: missing owner id", types.ErrNamespaceDenied))
	}
	if req.Source == nil {
		return nil, types.NewStageError(types.StageReceived,
			fmt.Errorf("%w: missing source", types.ErrEmptyInput))
	}

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}
	ns := types.NewNamespace(req.OwnerID, docID)

	// Dimension agreement is checked before any work: a mismatch is a
	// configuration fault and must never reach the store.
	dims := ing.embedding.Dimensions()
	storeDims := ing.store.Dimensions()
	if storeDims != 0 && dims != 0 && storeDims != dims {
		return nil, types.NewStageError(types.StageReceived,
			fmt.Errorf("%w: provider %d, store index %d", types.ErrDimensionMismatch, dims, storeDims))
	}

	ing.report(types.IngestProgress{Stage: types.StageReceived})

	// Stage: extracted
	extractor, ok := ing.extractors[req.Source.Kind]
	if !ok {
		return nil, types.NewStageError(types.StageExtracted,
			fmt.Errorf("%w: unsupported source kind %q", types.ErrExtraction, req.Source.Kind))
	}
	text, err := extractor.Extract(ctx, req.Source)
	if err != nil {
		return nil, types.NewStageError(types.StageExtracted,
			fmt.Errorf("%w: %v", types.ErrExtraction, err))
	}
	ing.report(types.IngestProgress{Stage: types.StageExtracted})

	// Stage: chunked
	chunks, err := ing.chunker.Split(text)
	if err != nil {
		return nil, types.NewStageError(types.StageChunked, err)
	}
	ing.report(types.IngestProgress{Stage: types.StageChunked, TotalChunks: len(chunks)})

	// Stage: embedded
	vectors, err := ing.embedChunks(ctx, chunks)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewStageError(types.StageEmbedded, ctx.Err())
		}
		return nil, types.NewStageError(types.StageEmbedded, err)
	}
	if dims == 0 {
		// The provider auto-detected its dimension; re-check it against the
		// store index now that the real vectors are known.
		dims = len(vectors[0])
		if storeDims != 0 && dims != storeDims {
			return nil, types.NewStageError(types.StageEmbedded,
				fmt.Errorf("%w: provider %d, store index %d", types.ErrDimensionMismatch, dims, storeDims))
		}
	}
	ing.report(types.IngestProgress{Stage: types.StageEmbedded, TotalChunks: len(chunks), EmbeddedChunks: len(chunks)})

	// Stage: stored. All records are accumulated first and upserted in one
	// call; the store splits into sub-batches and reports a failing one, so
	// the caller can clean up with DeleteByDocument.
	records := make([]*types.VectorRecord, len(chunks))
	for i, text := range chunks {
		c := types.Chunk{DocumentID: docID, Index: i, Text: text}
		records[i] = &types.VectorRecord{
			ID:     c.VectorID(),
			Values: vectors[i],
			Metadata: map[string]string{
				types.MetaNamespace:  string(ns),
				types.MetaDocumentID: docID,
				types.MetaChunkIndex: strconv.Itoa(i),
				types.MetaText:       text,
			},
		}
	}

	if err := ing.store.Upsert(ctx, ns, records); err != nil {
		return nil, types.NewStageError(types.StageStored,
			fmt.Errorf("%w: %v", types.ErrVectorStore, err))
	}
	ing.report(types.IngestProgress{Stage: types.StageStored, TotalChunks: len(chunks), EmbeddedChunks: len(chunks), StoredChunks: len(chunks)})

	doc := &types.Document{
		ID:         docID,
		OwnerID:    req.OwnerID,
		Name:       req.Source.Name,
		SourceKind: req.Source.Kind,
		Text:       text,
		ChunkCount: len(chunks),
		Dimensions: dims,
		UploadedAt: start,
		Processed:  true,
	}

	// Persistence is an external collaborator; its failure does not undo a
	// completed ingestion.
	if ing.saver != nil {
		if err := ing.saver.SaveDocument(ctx, doc); err != nil {
			slog.Warn("failed to save document metadata", "document", docID, "error", err)
		}
	}

	ing.report(types.IngestProgress{Stage: types.StageProcessed, TotalChunks: len(chunks), EmbeddedChunks: len(chunks), StoredChunks: len(chunks)})

	slog.Info("document ingested",
		"document", docID,
		"owner", req.OwnerID,
		"chunks", len(chunks),
		"dimensions", dims,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return &types.IngestResult{
		Document:   doc,
		ChunkCount: len(chunks),
		Dimensions: dims,
		TextSize:   len(text),
		Duration:   time.Since(start),
	}, nil
}

// Delete removes a document's vectors from the owner's namespace.
func (ing *Ingestor) Delete(ctx context.Context, ownerID, documentID string) error {
	if ownerID == "" || documentID == "" {
		return fmt.Errorf("%w: owner and document ids required", types.ErrNamespaceDenied)
	}
	ns := types.NewNamespace(ownerID, documentID)
	if err := ing.store.DeleteByDocument(ctx, ns, documentID); err != nil {
		return fmt.Errorf("%w: %v", types.ErrVectorStore, err)
	}
	return nil
}

// embedChunks embeds all chunks, parallelizing across provider-sized
// batches while preserving chunk order. Every returned vector is validated
// before use: a missing or zero-length vector fails the whole document.
func (ing *Ingestor) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	batchSize := ing.embedding.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 32
	}

	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += batchSize {
		start := start
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g.Go(func() error {
			batch := chunks[start:end]
			embeddings, err := ing.embedding.Embed(gctx, batch)
			if err != nil {
				return fmt.Errorf("%w: batch %d: %v", types.ErrEmbeddingProvider, start/batchSize, err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("%w: batch %d returned %d vectors for %d texts",
					types.ErrEmbeddingProvider, start/batchSize, len(embeddings), len(batch))
			}
			for i, vec := range embeddings {
				if len(vec) == 0 {
					return fmt.Errorf("%w: empty vector for chunk %d", types.ErrEmbeddingProvider, start+i)
				}
				vectors[start+i] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Dimension consistency across the whole document.
	dims := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != dims {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				types.ErrDimensionMismatch, i, len(vec), dims)
		}
	}

	return vectors, nil
}

// report invokes the progress callback if one is configured.
func (ing *Ingestor) report(p types.IngestProgress) {
	if ing.onProgress != nil {
		ing.onProgress(p)
	}
}
