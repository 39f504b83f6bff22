package config

import (
	"github.com/vantagegraph/vantage/backend/internal/util"
)

// Config holds the tunable options of the retrieval and staging pipeline.
// All values are read from the environment with the documented defaults;
// they are configuration, not computation.
type Config struct {
	// Ingestion
	ChunkSize           int
	ChunkOverlap        int
	MaxChunkSize        int
	UseSemanticChunking bool
	ExtractEntities     bool
	SkipGraphBuilding   bool

	// Review
	AutoApproveThreshold float64
	AutoResolveConflicts bool
	ConfidenceThreshold  float64

	// Hybrid search
	TextWeight              float64
	EnableQueryExpansion    bool
	EnableSemanticReranking bool
	EnableDeduplication     bool
	BoostRecentDocuments    bool
	SimilarityThreshold     float64
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		ChunkSize:           int(util.GetEnvNumeric("CHUNK_SIZE", 1000)),
		ChunkOverlap:        int(util.GetEnvNumeric("CHUNK_OVERLAP", 200)),
		MaxChunkSize:        int(util.GetEnvNumeric("MAX_CHUNK_SIZE", 2000)),
		UseSemanticChunking: util.GetEnvBool("USE_SEMANTIC_CHUNKING", true),
		ExtractEntities:     util.GetEnvBool("EXTRACT_ENTITIES", true),
		SkipGraphBuilding:   util.GetEnvBool("SKIP_GRAPH_BUILDING", false),

		AutoApproveThreshold: util.GetEnvNumeric("AUTO_APPROVE_THRESHOLD", 0.9),
		AutoResolveConflicts: util.GetEnvBool("AUTO_RESOLVE_CONFLICTS", false),
		ConfidenceThreshold:  util.GetEnvNumeric("CONFIDENCE_THRESHOLD", 0.5),

		TextWeight:              util.GetEnvNumeric("TEXT_WEIGHT", 0.3),
		EnableQueryExpansion:    util.GetEnvBool("ENABLE_QUERY_EXPANSION", true),
		EnableSemanticReranking: util.GetEnvBool("ENABLE_SEMANTIC_RERANKING", true),
		EnableDeduplication:     util.GetEnvBool("ENABLE_DEDUPLICATION", true),
		BoostRecentDocuments:    util.GetEnvBool("BOOST_RECENT_DOCUMENTS", false),
		SimilarityThreshold:     util.GetEnvNumeric("SIMILARITY_THRESHOLD", 0.85),
	}
}
