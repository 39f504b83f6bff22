package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/store"
)

const (
	rerankPriorWeight  = 0.7
	rerankCosineWeight = 0.3
	rerankSnippetChars = 500
	dedupeJaccardMax   = 0.85
	recentBoost        = 0.05
	recentWindow       = 365 * 24 * time.Hour
)

// RankedChunk is one hybrid-search hit after reranking.
type RankedChunk struct {
	store.SearchRow
	EnhancedScore    float64        `json:"enhanced_score"`
	RelevanceFactors map[string]any `json:"relevance_factors,omitempty"`
}

// HybridOptions controls the ranking pipeline. Zero values fall back to
// the engine's configuration.
type HybridOptions struct {
	Limit       int
	TextWeight  float64
	Expand      bool
	Rerank      bool
	Dedupe      bool
	BoostRecent bool
}

// HybridOptionsFromConfig builds the default pipeline options.
func (e *Engine) HybridOptionsFromConfig(limit int) HybridOptions {
	return HybridOptions{
		Limit:       limit,
		TextWeight:  e.cfg.TextWeight,
		Expand:      e.cfg.EnableQueryExpansion,
		Rerank:      e.cfg.EnableSemanticReranking,
		Dedupe:      e.cfg.EnableDeduplication,
		BoostRecent: e.cfg.BoostRecentDocuments,
	}
}

// HybridSearch runs the full ranking pipeline: expand the query, blend
// vector and text scores in the store, semantically rerank, deduplicate,
// and truncate. Every step is gated by its flag and recorded in each
// result's relevance factors.
func (e *Engine) HybridSearch(ctx context.Context, query string, opts HybridOptions) ([]RankedChunk, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	searchText := query
	if opts.Expand {
		searchText = ExpandQuery(query)
	}

	queryEmbedding, err := e.aiClient.GenerateEmbedding(ctx, []byte(searchText))
	if err != nil {
		logger.Error("[Search] Hybrid query embedding failed", "err", err)
		return []RankedChunk{}, nil
	}

	fetch := opts.Limit
	if opts.Dedupe {
		fetch = 2 * opts.Limit
	}

	rows, err := e.chunks.HybridSearch(ctx, queryEmbedding, searchText, fetch, opts.TextWeight)
	if err != nil {
		logger.Error("[Search] Hybrid search failed", "err", err)
		return []RankedChunk{}, nil
	}

	factors := map[string]any{
		"query_expanded":     opts.Expand,
		"semantic_reranking": opts.Rerank,
		"deduplication":      opts.Dedupe,
		"text_weight":        opts.TextWeight,
	}

	ranked := make([]RankedChunk, len(rows))
	for i, r := range rows {
		ranked[i] = RankedChunk{
			SearchRow:        r,
			EnhancedScore:    r.CombinedScore,
			RelevanceFactors: factors,
		}
	}

	if opts.Rerank {
		e.rerank(ctx, queryEmbedding, ranked)
	}

	if opts.BoostRecent {
		now := time.Now()
		for i := range ranked {
			if d := ranked[i].DocumentDate; d != nil && now.Sub(*d) < recentWindow {
				ranked[i].EnhancedScore += recentBoost
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EnhancedScore > ranked[j].EnhancedScore
	})

	if opts.Dedupe {
		ranked = DedupeByOverlap(ranked, dedupeJaccardMax)
	}

	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	return ranked, nil
}

// rerank embeds the head of each chunk concurrently and blends the cosine
// similarity into the score. Rows whose embedding fails keep their prior
// score; they are never dropped.
func (e *Engine) rerank(ctx context.Context, queryEmbedding []float32, ranked []RankedChunk) {
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(4)

	for i := range ranked {
		idx := i
		eg.Go(func() error {
			snippet := ranked[idx].Content
			if len(snippet) > rerankSnippetChars {
				snippet = snippet[:rerankSnippetChars]
			}
			embedding, err := e.aiClient.GenerateEmbedding(ectx, []byte(snippet))
			if err != nil {
				logger.Warn("[Search] Rerank embedding failed", "chunk", ranked[idx].ChunkID, "err", err)
				return nil
			}
			cosine := CosineSimilarity(queryEmbedding, embedding)
			ranked[idx].EnhancedScore = RerankScore(ranked[idx].CombinedScore, cosine)
			return nil
		})
	}
	_ = eg.Wait()
}

// RerankScore blends a chunk's prior combined score with its cosine
// similarity to the query.
func RerankScore(prior, cosine float64) float64 {
	return rerankPriorWeight*prior + rerankCosineWeight*cosine
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths compare over the shorter prefix; zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DedupeByOverlap scans rows in order and rejects a candidate iff its
// Jaccard word overlap with any already-kept row exceeds threshold. The
// scan is deterministic, so running it twice yields the same list.
func DedupeByOverlap(rows []RankedChunk, threshold float64) []RankedChunk {
	kept := make([]RankedChunk, 0, len(rows))
	for _, candidate := range rows {
		duplicate := false
		for _, k := range kept {
			if JaccardSimilarity(candidate.Content, k.Content) > threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// JaccardSimilarity computes word-set overlap between two texts.
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
