// Package sqlite implements document and chat history persistence in a
// plain SQLite database, separate from the vector index.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spetr/studyrag/pkg/provider"
	"github.com/spetr/studyrag/pkg/types"
)

// Store persists document metadata and question/answer exchanges.
type Store struct {
	db *sql.DB
}

// New opens or creates the metadata database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			source_kind TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			dimensions INTEGER NOT NULL,
			uploaded_at DATETIME NOT NULL,
			processed BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id)`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			document_id TEXT,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			language TEXT NOT NULL,
			fallback BOOLEAN NOT NULL,
			asked_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_chat_user ON chat_history(user_id)`)
	return err
}

// SaveDocument stores or replaces a document's metadata. The extracted text
// is not persisted; chunks live in the vector store.
func (s *Store) SaveDocument(ctx context.Context, doc *types.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents
		(id, owner_id, name, source_kind, chunk_count, dimensions, uploaded_at, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.OwnerID, doc.Name, string(doc.SourceKind),
		doc.ChunkCount, doc.Dimensions, doc.UploadedAt, doc.Processed)
	return err
}

// ListDocuments returns all documents owned by the user, newest first.
func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]*types.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, source_kind, chunk_count, dimensions, uploaded_at, processed
		FROM documents WHERE owner_id = ? ORDER BY uploaded_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		var doc types.Document
		var kind string
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Name, &kind,
			&doc.ChunkCount, &doc.Dimensions, &doc.UploadedAt, &doc.Processed); err != nil {
			return nil, err
		}
		doc.SourceKind = types.SourceKind(kind)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document's metadata.
func (s *Store) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ? AND owner_id = ?", documentID, ownerID)
	return err
}

// SaveExchange records one question/answer pair.
func (s *Store) SaveExchange(ctx context.Context, userID, documentID, question string, answer *types.Answer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_history (user_id, document_id, question, answer, language, fallback)
		VALUES (?, ?, ?, ?, ?, ?)
	`, userID, documentID, question, answer.Text, string(answer.Language), answer.Fallback)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements the persistence interfaces
var (
	_ provider.DocumentSaver = (*Store)(nil)
	_ provider.ChatRecorder  = (*Store)(nil)
)
