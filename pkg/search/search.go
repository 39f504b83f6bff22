// Package search holds the retrieval executors: vector similarity over the
// chunk store, semantic search over the temporal graph, entity-typed
// lookups, the hybrid ranker, and the two-entity relationship finder.
package search

import (
	"time"

	"github.com/vantagegraph/vantage/backend/pkg/ai"
	"github.com/vantagegraph/vantage/backend/pkg/config"
	"github.com/vantagegraph/vantage/backend/pkg/graphiti"
	"github.com/vantagegraph/vantage/backend/pkg/store"
)

// Search method tags recorded on every result.
const (
	MethodVectorSimilarity     = "vector_similarity"
	MethodGraphSemantic        = "graph_semantic_search"
	MethodEntityTyped          = "entity_typed_search"
	MethodHybrid               = "hybrid_search"
	MethodEnhancedPersonSearch = "enhanced_person_search"
)

// Result is the uniform envelope shared by all executors. Graph results
// carry temporal validity and provenance; vector results carry the chunk
// content as the fact and document fields in Extra.
type Result struct {
	Fact           string         `json:"fact"`
	UUID           string         `json:"uuid,omitempty"`
	ValidAt        *time.Time     `json:"valid_at,omitempty"`
	InvalidAt      *time.Time     `json:"invalid_at,omitempty"`
	SourceNodeUUID string         `json:"source_node_uuid,omitempty"`
	SearchMethod   string         `json:"search_method"`
	Score          float64        `json:"score,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// Engine bundles the clients the executors need. All executor methods are
// idempotent, side-effect-free, and safe to run concurrently.
type Engine struct {
	aiClient ai.Client
	chunks   store.ChunkStore
	graph    *graphiti.Client
	cfg      config.Config
}

// NewEngine creates a search engine over the given stores.
func NewEngine(aiClient ai.Client, chunks store.ChunkStore, graph *graphiti.Client, cfg config.Config) *Engine {
	return &Engine{
		aiClient: aiClient,
		chunks:   chunks,
		graph:    graph,
		cfg:      cfg,
	}
}

func factToResult(f graphiti.Fact, method string) Result {
	return Result{
		Fact:           f.Fact,
		UUID:           f.UUID,
		ValidAt:        f.ValidAt,
		InvalidAt:      f.InvalidAt,
		SourceNodeUUID: f.SourceNodeUUID,
		SearchMethod:   method,
	}
}
