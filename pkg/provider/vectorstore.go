package provider

import (
	"context"

	"github.com/spetr/studyrag/pkg/types"
)

// UpsertBatchSize is the maximum records per vector-store sub-batch. Larger
// upserts are split and a failed sub-batch is reported by index.
const UpsertBatchSize = 100

// VectorStore stores and searches embedded chunks. A namespace is mandatory
// on every call; there is no global namespace operation. This is the
// primary tenant-isolation boundary.
type VectorStore interface {
	// Name returns the store name (e.g., "sqlitevec", "qdrant").
	Name() string

	// Dimensions returns the configured index dimension, or 0 if the index
	// has not been created yet.
	Dimensions() int

	// Upsert writes records into the namespace. Batches larger than
	// UpsertBatchSize are split into sequential sub-batches; an error
	// identifies the failing sub-batch.
	Upsert(ctx context.Context, ns types.Namespace, records []*types.VectorRecord) error

	// Query returns up to topK hits ordered by descending similarity.
	Query(ctx context.Context, ns types.Namespace, vector []float32, topK int) ([]*types.SearchHit, error)

	// DeleteByDocument removes all vectors of one document from the
	// namespace.
	DeleteByDocument(ctx context.Context, ns types.Namespace, documentID string) error

	// Close releases any resources.
	Close() error
}

// VectorStoreConfig contains configuration for vector stores.
type VectorStoreConfig struct {
	Provider   string // "sqlitevec", "qdrant"
	Path       string // Database file path (sqlitevec)
	Endpoint   string // Service URL (qdrant)
	APIKey     string
	Collection string // Collection name (qdrant)
	Dimensions int    // Index dimension
}
