package provider

import (
	"context"

	"github.com/spetr/studyrag/pkg/types"
)

// DocumentSaver is the external persistence collaborator that records
// document metadata after ingestion. Implementations live outside the core;
// orchestrators treat a nil saver as a no-op and log save failures without
// failing the pipeline.
type DocumentSaver interface {
	SaveDocument(ctx context.Context, doc *types.Document) error
}

// ChatRecorder is the external persistence collaborator that records one
// question/answer exchange after a query.
type ChatRecorder interface {
	SaveExchange(ctx context.Context, userID, documentID, question string, answer *types.Answer) error
}

// DocumentLister enumerates a user's ingested documents. The query engine
// uses it to resolve the per-document namespaces to search when the caller
// names no documents; vectors live under "{userID}_{documentID}", never
// under the bare tenant namespace.
type DocumentLister interface {
	ListDocuments(ctx context.Context, ownerID string) ([]*types.Document, error)
}
