package search

import (
	"context"

	"github.com/vantagegraph/vantage/backend/internal/util"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// VectorSearch embeds the query and returns the limit closest chunks. The
// store's ordering is authoritative; no score threshold is applied.
func (e *Engine) VectorSearch(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	embedding, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]float32, error) {
		return e.aiClient.GenerateEmbedding(ctx, []byte(query))
	})
	if err != nil {
		logger.Error("[Search] Vector query embedding failed", "err", err)
		return []Result{}, nil
	}

	rows, err := e.chunks.SimilaritySearch(ctx, embedding, limit)
	if err != nil {
		logger.Error("[Search] Similarity search failed", "err", err)
		return []Result{}, nil
	}

	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, Result{
			Fact:         r.Content,
			UUID:         r.ChunkID,
			SearchMethod: MethodVectorSimilarity,
			Score:        r.Similarity,
			Extra: map[string]any{
				"document_id":     r.DocumentID,
				"document_title":  r.DocumentTitle,
				"document_source": r.DocumentSource,
			},
		})
	}
	return out, nil
}
