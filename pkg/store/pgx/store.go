package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/vantagegraph/vantage/backend/pkg/common"
	"github.com/vantagegraph/vantage/backend/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	SendBatch(ctx context.Context, b *pgxv5.Batch) pgxv5.BatchResults
}

// ChunkStore implements store.ChunkStore on PostgreSQL with pgvector.
type ChunkStore struct {
	conn pgxIConn
}

// NewChunkStore creates a ChunkStore using an existing database connection.
// The connection must have pgvector types registered.
func NewChunkStore(conn pgxIConn) *ChunkStore {
	return &ChunkStore{conn: conn}
}

const similaritySearchSQL = `
SELECT c.id, c.document_id, c.content,
       1 - (c.embedding <=> $1) AS similarity,
       c.metadata, d.title, d.source, d.created_at
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
ORDER BY c.embedding <=> $1
LIMIT $2`

// SimilaritySearch returns the k chunks closest to the query embedding by
// cosine distance.
func (s *ChunkStore) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]store.SearchRow, error) {
	rows, err := s.conn.Query(ctx, similaritySearchSQL, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	out := make([]store.SearchRow, 0, k)
	for rows.Next() {
		var r store.SearchRow
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.Similarity,
			&r.Metadata, &r.DocumentTitle, &r.DocumentSource, &r.DocumentDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const hybridSearchSQL = `
SELECT c.id, c.document_id, c.content,
       1 - (c.embedding <=> $1) AS similarity,
       (1 - $4::float8) * (1 - (c.embedding <=> $1)) +
       $4::float8 * ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $2)) AS combined_score,
       c.metadata, d.title, d.source, d.created_at
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
ORDER BY combined_score DESC
LIMIT $3`

// HybridSearch blends cosine similarity with full-text rank. textWeight in
// [0, 1] controls how much the text match contributes to the combined score.
func (s *ChunkStore) HybridSearch(ctx context.Context, embedding []float32, text string, k int, textWeight float64) ([]store.SearchRow, error) {
	rows, err := s.conn.Query(ctx, hybridSearchSQL, pgvector.NewVector(embedding), text, k, textWeight)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	out := make([]store.SearchRow, 0, k)
	for rows.Next() {
		var r store.SearchRow
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.Similarity,
			&r.CombinedScore, &r.Metadata, &r.DocumentTitle, &r.DocumentSource, &r.DocumentDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertDocument inserts or updates a document row.
func (s *ChunkStore) UpsertDocument(ctx context.Context, doc common.Document) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO documents (id, title, source, content, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    source = EXCLUDED.source,
		    content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    updated_at = now()`,
		doc.DocumentID, doc.Title, doc.Source, doc.Content, doc.Metadata)
	return err
}

// InsertChunks writes chunk rows in a single batch. Existing chunks with the
// same id are replaced.
func (s *ChunkStore) InsertChunks(ctx context.Context, chunks []common.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgxv5.Batch{}
	for _, c := range chunks {
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}
		batch.Queue(`
			INSERT INTO chunks (id, document_id, content, chunk_index, token_count, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET content = EXCLUDED.content,
			    chunk_index = EXCLUDED.chunk_index,
			    token_count = EXCLUDED.token_count,
			    metadata = EXCLUDED.metadata,
			    embedding = EXCLUDED.embedding`,
			c.ChunkID, c.DocumentID, c.Content, c.ChunkIndex, c.TokenCount, c.Metadata, embedding)
	}

	results := s.conn.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return nil
}

// GetDocument returns a document by id, without its chunks.
func (s *ChunkStore) GetDocument(ctx context.Context, documentID string) (*common.Document, error) {
	var doc common.Document
	err := s.conn.QueryRow(ctx, `
		SELECT id, title, source, content, metadata, created_at, updated_at
		FROM documents WHERE id = $1`, documentID).
		Scan(&doc.DocumentID, &doc.Title, &doc.Source, &doc.Content, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if err == pgxv5.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first, without content.
func (s *ChunkStore) ListDocuments(ctx context.Context) ([]common.Document, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, title, source, metadata, created_at, updated_at
		FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]common.Document, 0)
	for rows.Next() {
		var doc common.Document
		if err := rows.Scan(&doc.DocumentID, &doc.Title, &doc.Source, &doc.Metadata,
			&doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and, via the foreign key cascade, all of
// its chunks.
func (s *ChunkStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	return err
}
