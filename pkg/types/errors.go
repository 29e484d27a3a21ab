package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy.
var (
	// ErrExtraction is returned when a source is unreadable, corrupt or of
	// an unsupported type.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyInput is returned when a source yields no usable text.
	ErrEmptyInput = errors.New("no usable text")

	// ErrDimensionMismatch is returned when the embedding provider and the
	// vector store index disagree on dimensions. Fatal, configuration-level.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingProvider is returned on embedding call failures.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrVectorStore is returned on upsert/query/delete failures, including
	// partial sub-batch failures.
	ErrVectorStore = errors.New("vector store operation failed")

	// ErrGeneration is returned when a model invocation fails or times out.
	// It never reaches an end user as an answer; the answer generator
	// converts it to the fixed fallback phrase.
	ErrGeneration = errors.New("generation failed")

	// ErrNamespaceDenied is returned when an operation targets a namespace
	// outside the caller's tenant. Always fatal, never downgraded to empty
	// results.
	ErrNamespaceDenied = errors.New("namespace not authorized")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StageError identifies which ingestion stage failed.
type StageError struct {
	Stage IngestStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the failing stage.
func NewStageError(stage IngestStage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
