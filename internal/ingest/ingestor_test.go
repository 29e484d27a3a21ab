package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/spetr/studyrag/internal/chunk"
	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// fakeExtractor returns the raw source data as text.
type fakeExtractor struct{}

func (fakeExtractor) Name() string { return "fake" }

func (fakeExtractor) Extract(ctx context.Context, src *types.Source) (string, error) {
	return string(src.Data), nil
}

// fakeEmbedder returns deterministic vectors of a fixed dimension. The first
// component encodes the text length so tests can verify chunk order. When
// vecDims is set, returned vectors use that length instead of the declared
// dimension, emulating a provider that auto-detects (Dimensions() == 0).
type fakeEmbedder struct {
	mu      sync.Mutex
	dims    int
	vecDims int
	batch   int
	calls   int
	err     error
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	n := f.dims
	if f.vecDims > 0 {
		n = f.vecDims
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, n)
		v[0] = float32(len(text))
		vectors[i] = v
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) MaxBatchSize() int {
	if f.batch > 0 {
		return f.batch
	}
	return 32
}

func (f *fakeEmbedder) Close() error { return nil }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStore captures upserts and deletions.
type fakeStore struct {
	mu         sync.Mutex
	dims       int
	upserts    int
	records    []*types.VectorRecord
	namespaces []types.Namespace
	deleted    []string
	deletedNS  []types.Namespace
}

func (f *fakeStore) Name() string    { return "fake" }
func (f *fakeStore) Dimensions() int { return f.dims }

func (f *fakeStore) Upsert(ctx context.Context, ns types.Namespace, records []*types.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.records = append(f.records, records...)
	f.namespaces = append(f.namespaces, ns)
	return nil
}

func (f *fakeStore) Query(ctx context.Context, ns types.Namespace, vector []float32, topK int) ([]*types.SearchHit, error) {
	return nil, nil
}

func (f *fakeStore) DeleteByDocument(ctx context.Context, ns types.Namespace, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	f.deletedNS = append(f.deletedNS, ns)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func textExtractors() map[types.SourceKind]provider.TextExtractor {
	return map[types.SourceKind]provider.TextExtractor{
		types.SourceText: fakeExtractor{},
	}
}

func newTestIngestor(embedder *fakeEmbedder, store *fakeStore) *Ingestor {
	chunker, _ := chunk.New(60, 0)
	return New(Config{
		Extractors: textExtractors(),
		Embedding:  embedder,
		Store:      store,
		Chunker:    chunker,
	})
}

func TestIngestRoundTrip(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8, batch: 2}
	store := &fakeStore{dims: 8}
	ing := newTestIngestor(embedder, store)

	text := "Sverige är ett land i Norden med lång kust. Stockholm är huvudstaden och största staden. Göteborg ligger på västkusten vid havet. Malmö ligger längst ner i söder."

	result, err := ing.Ingest(context.Background(), Request{
		OwnerID:    "alice",
		DocumentID: "doc1",
		Source:     &types.Source{Kind: types.SourceText, Name: "geografi", Data: []byte(text)},
	})
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}

	if result.ChunkCount < 2 {
		t.Fatalf("expected multiple chunks, got %d", result.ChunkCount)
	}
	if result.Dimensions != 8 {
		t.Errorf("dimensions = %d, want 8", result.Dimensions)
	}
	if !result.Document.Processed {
		t.Error("document should be marked processed")
	}
	if len(store.records) != result.ChunkCount {
		t.Fatalf("stored %d records for %d chunks", len(store.records), result.ChunkCount)
	}

	for _, ns := range store.namespaces {
		if ns != types.Namespace("alice_doc1") {
			t.Errorf("namespace = %q, want alice_doc1", ns)
		}
	}

	// Records carry ordered indices, the composite vector id and full
	// provenance metadata.
	for i, r := range store.records {
		wantID := fmt.Sprintf("doc1-chunk-%d", i)
		if r.ID != wantID {
			t.Errorf("record %d id = %q, want %q", i, r.ID, wantID)
		}
		if r.Metadata[types.MetaChunkIndex] != strconv.Itoa(i) {
			t.Errorf("record %d index = %q, want %d", i, r.Metadata[types.MetaChunkIndex], i)
		}
		if r.Metadata[types.MetaNamespace] != "alice_doc1" {
			t.Errorf("record %d namespace = %q", i, r.Metadata[types.MetaNamespace])
		}
		if r.Metadata[types.MetaDocumentID] != "doc1" {
			t.Errorf("record %d document = %q", i, r.Metadata[types.MetaDocumentID])
		}
		if len(r.Values) != 8 {
			t.Errorf("record %d has %d dims", i, len(r.Values))
		}
		// The fake encodes the text length in the first component; matching
		// it against the metadata text proves chunk order survived the
		// parallel embedding.
		if int(r.Values[0]) != len(r.Metadata[types.MetaText]) {
			t.Errorf("record %d vector does not match its chunk text", i)
		}
	}
}

func TestIngestDimensionMismatchBeforeAnyWork(t *testing.T) {
	embedder := &fakeEmbedder{dims: 768}
	store := &fakeStore{dims: 1536}
	ing := newTestIngestor(embedder, store)

	_, err := ing.Ingest(context.Background(), Request{
		OwnerID: "alice",
		Source:  &types.Source{Kind: types.SourceText, Name: "x", Data: []byte("Text som aldrig ska nå fram.")},
	})
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}

	var stageErr *types.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err should be a StageError, got %T", err)
	}
	if stageErr.Stage != types.StageReceived {
		t.Errorf("stage = %q, want received", stageErr.Stage)
	}
	if embedder.callCount() != 0 {
		t.Errorf("embedder called %d times, want 0", embedder.callCount())
	}
	if store.upserts != 0 {
		t.Errorf("store upserted %d times, want 0", store.upserts)
	}
}

func TestIngestAutoDetectedDimensionMismatch(t *testing.T) {
	// The provider auto-detects its dimension, so the pre-flight check
	// cannot catch the mismatch; it must still surface as
	// ErrDimensionMismatch once the vectors exist, before any write.
	embedder := &fakeEmbedder{dims: 0, vecDims: 8}
	store := &fakeStore{dims: 1536}
	ing := newTestIngestor(embedder, store)

	_, err := ing.Ingest(context.Background(), Request{
		OwnerID: "alice",
		Source:  &types.Source{Kind: types.SourceText, Data: []byte("Text som aldrig ska nå fram.")},
	})
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}

	var stageErr *types.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err should be a StageError, got %T", err)
	}
	if stageErr.Stage != types.StageEmbedded {
		t.Errorf("stage = %q, want embedded", stageErr.Stage)
	}
	if store.upserts != 0 {
		t.Errorf("store upserted %d times, want 0", store.upserts)
	}
}

func TestIngestMissingOwner(t *testing.T) {
	ing := newTestIngestor(&fakeEmbedder{dims: 8}, &fakeStore{dims: 8})

	_, err := ing.Ingest(context.Background(), Request{
		Source: &types.Source{Kind: types.SourceText, Data: []byte("text")},
	})
	if !errors.Is(err, types.ErrNamespaceDenied) {
		t.Errorf("err = %v, want ErrNamespaceDenied", err)
	}
}

func TestIngestUnsupportedSourceKind(t *testing.T) {
	ing := newTestIngestor(&fakeEmbedder{dims: 8}, &fakeStore{dims: 8})

	_, err := ing.Ingest(context.Background(), Request{
		OwnerID: "alice",
		Source:  &types.Source{Kind: types.SourceURL, URL: "https://example.com"},
	})
	if !errors.Is(err, types.ErrExtraction) {
		t.Errorf("err = %v, want ErrExtraction", err)
	}
}

func TestIngestEmbeddingFailureBlocksStore(t *testing.T) {
	embedder := &fakeEmbedder{dims: 8, err: errors.New("provider down")}
	store := &fakeStore{dims: 8}
	ing := newTestIngestor(embedder, store)

	_, err := ing.Ingest(context.Background(), Request{
		OwnerID: "alice",
		Source:  &types.Source{Kind: types.SourceText, Data: []byte("En mening. En till mening.")},
	})
	if !errors.Is(err, types.ErrEmbeddingProvider) {
		t.Fatalf("err = %v, want ErrEmbeddingProvider", err)
	}

	var stageErr *types.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != types.StageEmbedded {
		t.Errorf("err = %v, want StageError at embedded", err)
	}
	if store.upserts != 0 {
		t.Errorf("store upserted %d times after embedding failure, want 0", store.upserts)
	}
}

func TestIngestEmptyText(t *testing.T) {
	ing := newTestIngestor(&fakeEmbedder{dims: 8}, &fakeStore{dims: 8})

	_, err := ing.Ingest(context.Background(), Request{
		OwnerID: "alice",
		Source:  &types.Source{Kind: types.SourceText, Data: []byte("   ")},
	})
	if !errors.Is(err, types.ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
}

func TestDelete(t *testing.T) {
	store := &fakeStore{dims: 8}
	ing := newTestIngestor(&fakeEmbedder{dims: 8}, store)

	if err := ing.Delete(context.Background(), "alice", "doc1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "doc1" {
		t.Fatalf("deleted = %v, want [doc1]", store.deleted)
	}
	if store.deletedNS[0] != types.Namespace("alice_doc1") {
		t.Errorf("namespace = %q, want alice_doc1", store.deletedNS[0])
	}

	if err := ing.Delete(context.Background(), "", "doc1"); !errors.Is(err, types.ErrNamespaceDenied) {
		t.Errorf("missing owner err = %v, want ErrNamespaceDenied", err)
	}
}
