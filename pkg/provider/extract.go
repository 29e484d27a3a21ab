package provider

import (
	"context"

	"github.com/spetr/studyrag/pkg/types"
)

// TextExtractor converts one source document into a normalized text blob.
// One extractor is registered per source kind.
type TextExtractor interface {
	// Name returns the extractor name (e.g., "plain", "pdf", "web").
	Name() string

	// Extract returns the normalized full text of the source.
	Extract(ctx context.Context, src *types.Source) (string, error)
}

// ExtractorConfig contains configuration for text extractors.
type ExtractorConfig struct {
	MaxFetchBytes int64 // Cap on fetched URL bodies
	UserAgent     string
}
