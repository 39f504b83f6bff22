package store

import (
	"context"
	"time"

	"github.com/vantagegraph/vantage/backend/pkg/common"
)

// SearchRow is one hit from the chunk store. Similarity is the cosine
// similarity of the query embedding to the chunk embedding; CombinedScore
// is only populated by hybrid search, where the text-match rank is blended
// in according to the text weight.
type SearchRow struct {
	ChunkID        string            `json:"chunk_id"`
	DocumentID     string            `json:"document_id"`
	Content        string            `json:"content"`
	Similarity     float64           `json:"similarity"`
	CombinedScore  float64           `json:"combined_score,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	DocumentTitle  string            `json:"document_title,omitempty"`
	DocumentSource string            `json:"document_source,omitempty"`
	DocumentDate   *time.Time        `json:"document_date,omitempty"`
}

// ChunkStore is the dense retrieval surface over ingested documents.
type ChunkStore interface {
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]SearchRow, error)
	HybridSearch(ctx context.Context, embedding []float32, text string, k int, textWeight float64) ([]SearchRow, error)

	UpsertDocument(ctx context.Context, doc common.Document) error
	InsertChunks(ctx context.Context, chunks []common.Chunk) error
	GetDocument(ctx context.Context, documentID string) (*common.Document, error)
	ListDocuments(ctx context.Context) ([]common.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}
