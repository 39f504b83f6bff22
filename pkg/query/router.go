package query

import (
	"context"

	"github.com/vantagegraph/vantage/backend/pkg/ai"
	"github.com/vantagegraph/vantage/backend/pkg/facts"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/search"
)

// Router dispatches analyzed queries to the search engine.
type Router struct {
	aiClient ai.Client
	engine   *search.Engine
}

func NewRouter(aiClient ai.Client, engine *search.Engine) *Router {
	return &Router{aiClient: aiClient, engine: engine}
}

// Response is the routed query result: the matching facts or chunks plus
// the routing decision that produced them.
type Response struct {
	Query    string               `json:"query"`
	Analysis Analysis             `json:"analysis"`
	Results  []search.Result      `json:"results"`
	Chunks   []search.RankedChunk `json:"chunks,omitempty"`
	Triples  []facts.Triple       `json:"triples,omitempty"`
}

// Query answers a natural-language query. "Who is X" questions short-circuit
// into a structured person lookup; everything else goes through analysis and
// the matching backend. Retrieval failures degrade to empty results.
func (r *Router) Query(ctx context.Context, query string, limit int) (*Response, error) {
	if limit <= 0 {
		limit = 10
	}

	if subject := WhoIsSubject(query); subject != "" {
		if resp := r.whoIs(ctx, query, subject); resp != nil {
			return resp, nil
		}
	}

	analysis := AnalyzeQuery(ctx, r.aiClient, query)
	resp := &Response{Query: query, Analysis: analysis, Results: []search.Result{}}

	switch analysis.SearchType {
	case SearchTypeGraph:
		variants := analysis.Entities
		results, err := r.engine.GraphSearch(ctx, query, variants...)
		if err != nil {
			logger.Error("[Query] Graph search failed", "err", err)
			return resp, nil
		}
		resp.Results = results
		for _, res := range results {
			for _, entity := range analysis.Entities {
				if triples := facts.ParseFact(res.Fact, entity); len(triples) > 0 {
					resp.Triples = append(resp.Triples, triples...)
					break
				}
			}
		}
	default:
		chunks, err := r.engine.HybridSearch(ctx, query, r.engine.HybridOptionsFromConfig(limit))
		if err != nil {
			logger.Error("[Query] Hybrid search failed", "err", err)
			return resp, nil
		}
		resp.Chunks = chunks
	}

	if len(resp.Results) > limit {
		resp.Results = resp.Results[:limit]
	}
	return resp, nil
}

// whoIs is the fast path for "who is X" questions. Returns nil when the
// graph knows nothing about the subject, so the caller falls through to
// regular routing.
func (r *Router) whoIs(ctx context.Context, query, subject string) *Response {
	record, err := r.engine.PersonLookup(ctx, subject, 5)
	if err != nil || record == nil {
		return nil
	}

	logger.Debug("[Query] Who-is fast path", "subject", subject)

	resp := &Response{
		Query: query,
		Analysis: Analysis{
			SearchType:  SearchTypeGraph,
			Entities:    []string{subject},
			Reasoning:   "who-is question answered from person lookup",
			LLMAnalysis: false,
		},
		Results: []search.Result{{
			Fact:         record.CompositeFact(),
			SearchMethod: search.MethodEnhancedPersonSearch,
			Score:        1.0,
			Extra: map[string]any{
				"person": record,
			},
		}},
	}
	return resp
}
