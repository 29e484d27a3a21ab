// Package types contains shared data types used across the studyrag project.
package types

import (
	"fmt"
	"strings"
	"time"
)

// SourceKind identifies how a document entered the system.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
	SourceText SourceKind = "text"
)

// Source is one uploaded study document before extraction.
type Source struct {
	Kind SourceKind
	Name string // Display name (filename, URL, or user-given title)
	Data []byte // Raw bytes for file/text sources
	URL  string // Remote location for url sources
}

// Document is the metadata of one ingested source. It is created by the
// ingestion orchestrator and read-only afterward except for the Processed
// transition.
type Document struct {
	ID         string
	OwnerID    string
	Name       string
	SourceKind SourceKind
	Text       string // Extracted full text
	ChunkCount int
	Dimensions int // Embedding dimension used at ingestion time
	UploadedAt time.Time
	Processed  bool
}

// Chunk is a contiguous text span of a document. Chunks are ephemeral; only
// the text and its position survive as vector metadata.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
}

// VectorID returns the composite vector record id for this chunk.
func (c *Chunk) VectorID() string {
	return fmt.Sprintf("%s-chunk-%d", c.DocumentID, c.Index)
}

// Metadata keys carried on every vector record so provenance can be
// reconstructed without re-fetching the document.
const (
	MetaNamespace  = "namespace"
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
	MetaText       = "text"
)

// VectorRecord is one embedded chunk as stored in the vector store.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Namespace is the logical vector-store partition isolating one tenant's
// (and optionally one document's) vectors. Format: "{userID}" or
// "{userID}_{documentID}".
type Namespace string

// NewNamespace builds the per-document namespace for a user.
func NewNamespace(userID, documentID string) Namespace {
	if documentID == "" {
		return Namespace(userID)
	}
	return Namespace(userID + "_" + documentID)
}

// OwnedBy reports whether the namespace belongs to the given user.
func (n Namespace) OwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	s := string(n)
	return s == userID || strings.HasPrefix(s, userID+"_")
}

// Validate checks that the namespace is non-empty.
func (n Namespace) Validate() error {
	if strings.TrimSpace(string(n)) == "" {
		return fmt.Errorf("%w: empty namespace", ErrNamespaceDenied)
	}
	return nil
}

// SearchHit is one similarity-search match.
type SearchHit struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Language selects the locale for prompts, fallback phrases and the
// function-word heuristic.
type Language string

const (
	LanguageSwedish Language = "sv"
	LanguageEnglish Language = "en"
)

// AnswerStyle is a pure post-formatting variant; it never triggers a second
// model call.
type AnswerStyle string

const (
	StyleConcise     AnswerStyle = "concise"
	StyleDetailed    AnswerStyle = "detailed"
	StyleEducational AnswerStyle = "educational"
)

// Answer is the validated output of the answer generator.
type Answer struct {
	Text     string
	Language Language
	Style    AnswerStyle
	Fallback bool // True when the fixed "not found" phrase was used
}

// IngestStage is a state of the ingestion pipeline.
type IngestStage string

const (
	StageReceived  IngestStage = "received"
	StageExtracted IngestStage = "extracted"
	StageChunked   IngestStage = "chunked"
	StageEmbedded  IngestStage = "embedded"
	StageStored    IngestStage = "stored"
	StageProcessed IngestStage = "processed"
)

// IngestProgress reports the current state of one ingestion.
type IngestProgress struct {
	Stage          IngestStage
	TotalChunks    int
	EmbeddedChunks int
	StoredChunks   int
}

// IngestResult is returned on successful ingestion for the caller to persist.
type IngestResult struct {
	Document   *Document
	ChunkCount int
	Dimensions int
	TextSize   int
	Duration   time.Duration
}

// QueryResult is the outcome of one question against a user's documents.
type QueryResult struct {
	Question string
	Answer   *Answer
	Hits     []*SearchHit
	Context  string
}

// QuestionKind tags which strategy produced a practice question.
type QuestionKind string

const (
	QuestionConcept    QuestionKind = "concept"
	QuestionNumber     QuestionKind = "number"
	QuestionDefinition QuestionKind = "definition"
	QuestionGeneral    QuestionKind = "general"
)

// Question is one generated practice question with its grounding answer.
type Question struct {
	Kind   QuestionKind
	Prompt string
	Answer string
}
