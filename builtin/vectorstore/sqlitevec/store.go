// Package sqlitevec implements VectorStore using sqlite-vec for local,
// embedded vector search.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// Ensure sqlite-vec Auto() is called exactly once before any db connection
	vecAutoOnce sync.Once
)

// Default values
const (
	DefaultPath = ".studyrag/vectors.db"
)

// Config contains sqlite-vec store configuration.
type Config struct {
	Path       string
	Dimensions int
}

// Store implements the VectorStore interface using sqlite-vec. Vectors from
// all namespaces share one database; isolation is enforced by the namespace
// column on every read and delete.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
	mu         sync.Mutex
}

// New creates and initializes a sqlite-vec store at the configured path.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	// Register sqlite-vec extension before opening any database connection.
	// This must be called once before sql.Open() to ensure vec_* functions are available.
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for concurrent reads, busy_timeout to wait for locks instead of failing immediately
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("SELECT vec_version()"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not available: %w", err)
	}

	s := &Store{
		db:         db,
		path:       cfg.Path,
		dimensions: cfg.Dimensions,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates the passages table and, when dimensions are known,
// the vector table.
func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			namespace TEXT NOT NULL,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_passages_namespace ON passages(namespace)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(namespace, document_id)`)
	if err != nil {
		return err
	}

	if s.dimensions > 0 {
		return s.createVectorTable(s.dimensions)
	}
	return nil
}

// createVectorTable creates the vector table with the specified dimensions.
func (s *Store) createVectorTable(dimensions int) error {
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS passage_embeddings USING vec0(
			passage_id TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, dimensions))
	if err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}
	s.dimensions = dimensions
	return nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "sqlitevec"
}

// Dimensions returns the configured vector dimensions, 0 when the table has
// not been created yet.
func (s *Store) Dimensions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dimensions
}

// Upsert writes records into the namespace in sub-batches of at most
// UpsertBatchSize, each in its own transaction. A failing sub-batch is
// reported with its index so the caller can clean up by document.
func (s *Store) Upsert(ctx context.Context, ns types.Namespace, records []*types.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.dimensions == 0 {
		if err := s.createVectorTable(len(records[0].Values)); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	dims := s.dimensions
	s.mu.Unlock()

	for i, r := range records {
		if len(r.Values) != dims {
			return fmt.Errorf("record %d has %d dimensions, index expects %d", i, len(r.Values), dims)
		}
	}

	for start := 0; start < len(records); start += provider.UpsertBatchSize {
		end := start + provider.UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsertBatch(ctx, ns, records[start:end]); err != nil {
			return fmt.Errorf("batch %d (records %d-%d): %w", start/provider.UpsertBatchSize, start, end-1, err)
		}
	}

	return nil
}

// upsertBatch writes one sub-batch in a single transaction.
func (s *Store) upsertBatch(ctx context.Context, ns types.Namespace, records []*types.VectorRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	passageStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO passages (id, namespace, document_id, chunk_index, text)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer passageStmt.Close()

	embeddingStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO passage_embeddings (passage_id, embedding)
		VALUES (?, ?)
	`)
	if err != nil {
		return err
	}
	defer embeddingStmt.Close()

	for _, r := range records {
		_, err := passageStmt.ExecContext(ctx,
			r.ID, string(ns),
			r.Metadata[types.MetaDocumentID],
			r.Metadata[types.MetaChunkIndex],
			r.Metadata[types.MetaText],
		)
		if err != nil {
			return fmt.Errorf("failed to store passage %s: %w", r.ID, err)
		}

		_, err = embeddingStmt.ExecContext(ctx, r.ID, floatsToBytes(r.Values))
		if err != nil {
			return fmt.Errorf("failed to store embedding for %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Query returns the topK most similar passages inside the namespace, scored
// by cosine similarity descending.
func (s *Store) Query(ctx context.Context, ns types.Namespace, vector []float32, topK int) ([]*types.SearchHit, error) {
	s.mu.Lock()
	dims := s.dimensions
	s.mu.Unlock()
	if dims == 0 {
		return nil, nil // nothing stored yet
	}
	if len(vector) != dims {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d", len(vector), dims)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			pe.passage_id,
			vec_distance_cosine(pe.embedding, ?) as distance,
			p.namespace, p.document_id, p.chunk_index, p.text
		FROM passage_embeddings pe
		JOIN passages p ON pe.passage_id = p.id
		WHERE p.namespace = ?
		ORDER BY distance ASC
		LIMIT ?
	`, floatsToBytes(vector), string(ns), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var hits []*types.SearchHit
	for rows.Next() {
		var (
			id         string
			distance   float64
			namespace  string
			documentID string
			chunkIndex string
			text       string
		)
		if err := rows.Scan(&id, &distance, &namespace, &documentID, &chunkIndex, &text); err != nil {
			return nil, err
		}

		hits = append(hits, &types.SearchHit{
			ID:    id,
			Score: float32(1.0 - distance),
			Text:  text,
			Metadata: map[string]string{
				types.MetaNamespace:  namespace,
				types.MetaDocumentID: documentID,
				types.MetaChunkIndex: chunkIndex,
				types.MetaText:       text,
			},
		})
	}

	return hits, rows.Err()
}

// DeleteByDocument removes all passages of a document from the namespace.
func (s *Store) DeleteByDocument(ctx context.Context, ns types.Namespace, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM passages WHERE namespace = ? AND document_id = ?",
		string(ns), documentID)
	if err != nil {
		return err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM passage_embeddings WHERE passage_id = ?", id); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM passages WHERE namespace = ? AND document_id = ?",
		string(ns), documentID); err != nil {
		return err
	}

	return tx.Commit()
}

// Close releases resources and closes connections.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// floatsToBytes converts float32 slice to bytes for sqlite-vec.
func floatsToBytes(floats []float32) []byte {
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		bits := math.Float32bits(f)
		bytes[i*4] = byte(bits)
		bytes[i*4+1] = byte(bits >> 8)
		bytes[i*4+2] = byte(bits >> 16)
		bytes[i*4+3] = byte(bits >> 24)
	}
	return bytes
}

// Ensure Store implements VectorStore interface
var _ provider.VectorStore = (*Store)(nil)
