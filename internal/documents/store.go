package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/healthtrace/internal/db"
)

// Store provides persistence for documents and their chunks.
type Store struct {
	db *db.DB
}

// NewStore creates a new document store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// Save inserts a document, or replaces title, type and content when the ID
// already exists.
func (s *Store) Save(ctx context.Context, d *Document) error {
	if d.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.DocumentType == "" {
		d.DocumentType = TypeOther
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, user_id, title, document_type, content, source_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, document_type = excluded.document_type,
		   content = excluded.content, source_path = excluded.source_path`,
		d.ID, d.UserID, d.Title, string(d.DocumentType), d.Content, d.SourcePath, db.Millis(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get returns a document by ID, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	var (
		d       Document
		typ     string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, document_type, content, source_path, created_at FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.UserID, &d.Title, &typ, &d.Content, &d.SourcePath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	d.DocumentType = Type(typ)
	d.CreatedAt = db.FromMillis(created)
	return &d, nil
}

// GetMany returns the documents with the given IDs keyed by ID, without
// their content. Unknown IDs are absent from the map.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]Document, error) {
	out := make(map[string]Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, document_type, source_path, created_at FROM documents WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d       Document
			typ     string
			created int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &typ, &d.SourcePath, &created); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.DocumentType = Type(typ)
		d.CreatedAt = db.FromMillis(created)
		out[d.ID] = d
	}
	return out, rows.Err()
}

// List returns a user's documents, newest first, without their content.
func (s *Store) List(ctx context.Context, userID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, document_type, source_path, created_at
		 FROM documents WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var (
			d       Document
			typ     string
			created int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &typ, &d.SourcePath, &created); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.DocumentType = Type(typ)
		d.CreatedAt = db.FromMillis(created)
		result = append(result, d)
	}
	return result, rows.Err()
}

// AddChunk persists one embedded chunk.
func (s *Store) AddChunk(ctx context.Context, c *Chunk) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_chunks (id, document_id, user_id, content, chunk_index, total_chunks, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DocumentID, c.UserID, c.Content, c.ChunkIndex, c.TotalChunks,
		db.EncodeVector(c.Embedding), db.Millis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("adding chunk %d: %w", c.ChunkIndex, err)
	}
	return nil
}

// ListChunks returns a document's chunks in index order.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, user_id, content, chunk_index, total_chunks, embedding, created_at
		 FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var result []Chunk
	for rows.Next() {
		var (
			c       Chunk
			emb     []byte
			created int64
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.UserID, &c.Content, &c.ChunkIndex, &c.TotalChunks, &emb, &created); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if c.Embedding, err = db.DecodeVector(emb); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		c.CreatedAt = db.FromMillis(created)
		result = append(result, c)
	}
	return result, rows.Err()
}

// DeleteChunks removes all chunks of a document and returns their IDs so the
// caller can drop them from the similarity index as well.
func (s *Store) DeleteChunks(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM document_chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing chunk ids: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return nil, fmt.Errorf("deleting chunks: %w", err)
	}
	return ids, nil
}
