package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vantagegraph/vantage/backend/pkg/ai"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/search"
)

const agenticSystemPrompt = `You are a retrieval assistant over a document store and a temporal
knowledge graph of people, companies, and their relationships. Use the
available tools to gather evidence before answering. Prefer graph tools for
questions about entities and their connections, and vector or hybrid search
for questions about document content. Cite the facts you used. If the tools
return nothing relevant, say so instead of guessing.`

func truncateContent(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseLimit(params map[string]any, fallback int) int {
	if raw, ok := params["limit"].(float64); ok && raw > 0 {
		return int(raw)
	}
	return fallback
}

func toolGraphSearch(engine *search.Engine) ai.Tool {
	return ai.Tool{
		Name:        "graph_search",
		Description: "Search the knowledge graph for facts matching a query using semantic similarity. Returns temporal facts about entities and their relationships. Use this for questions about people, companies, and how they are connected.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to find relevant facts.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of facts to return (default: 10).",
					"default":     10,
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var params map[string]any
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				return "", fmt.Errorf("failed to parse arguments: %w", err)
			}

			query, ok := params["query"].(string)
			if !ok || query == "" {
				return "", fmt.Errorf("query is required and must be a string")
			}
			limit := parseLimit(params, 10)

			logger.Debug("[Tool] graph_search", "query", query, "limit", limit)

			results, err := engine.GraphSearch(ctx, query)
			if err != nil {
				return "", fmt.Errorf("failed to search graph: %w", err)
			}
			if len(results) > limit {
				results = results[:limit]
			}

			var result strings.Builder
			result.WriteString("## Graph Facts\n")
			if len(results) == 0 {
				result.WriteString("No facts found matching the query.\n")
			} else {
				for i, r := range results {
					fmt.Fprintf(&result, "%d. %s", i+1, truncateContent(r.Fact, 300))
					if r.ValidAt != nil {
						fmt.Fprintf(&result, " (valid from %s)", r.ValidAt.Format("2006-01-02"))
					}
					if r.InvalidAt != nil {
						fmt.Fprintf(&result, " (invalid since %s)", r.InvalidAt.Format("2006-01-02"))
					}
					result.WriteString("\n")
				}
			}
			return result.String(), nil
		},
	}
}

func toolVectorSearch(engine *search.Engine) ai.Tool {
	return ai.Tool{
		Name:        "vector_search",
		Description: "Search document chunks by embedding similarity. Returns the text passages closest to the query. Use this for questions about document content and topics.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to find relevant document chunks.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of chunks to return (default: 10).",
					"default":     10,
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var params map[string]any
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				return "", fmt.Errorf("failed to parse arguments: %w", err)
			}

			query, ok := params["query"].(string)
			if !ok || query == "" {
				return "", fmt.Errorf("query is required and must be a string")
			}
			limit := parseLimit(params, 10)

			logger.Debug("[Tool] vector_search", "query", query, "limit", limit)

			results, err := engine.VectorSearch(ctx, query, limit)
			if err != nil {
				return "", fmt.Errorf("failed to search chunks: %w", err)
			}

			var result strings.Builder
			result.WriteString("## Document Chunks\n")
			if len(results) == 0 {
				result.WriteString("No chunks found matching the query.\n")
			} else {
				for i, r := range results {
					title, _ := r.Extra["document_title"].(string)
					fmt.Fprintf(&result, "%d. [%s] (score: %.2f) %s\n",
						i+1, title, r.Score, truncateContent(r.Fact, 300))
				}
			}
			return result.String(), nil
		},
	}
}

func toolHybridSearch(engine *search.Engine) ai.Tool {
	return ai.Tool{
		Name:        "hybrid_search",
		Description: "Search document chunks blending embedding similarity with full-text relevance, then semantically rerank and deduplicate. Use this when keyword precision matters as well as meaning.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of chunks to return (default: 10).",
					"default":     10,
				},
			},
			"required": []string{"query"},
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var params map[string]any
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				return "", fmt.Errorf("failed to parse arguments: %w", err)
			}

			query, ok := params["query"].(string)
			if !ok || query == "" {
				return "", fmt.Errorf("query is required and must be a string")
			}
			limit := parseLimit(params, 10)

			logger.Debug("[Tool] hybrid_search", "query", query, "limit", limit)

			chunks, err := engine.HybridSearch(ctx, query, engine.HybridOptionsFromConfig(limit))
			if err != nil {
				return "", fmt.Errorf("failed to run hybrid search: %w", err)
			}

			var result strings.Builder
			result.WriteString("## Ranked Chunks\n")
			if len(chunks) == 0 {
				result.WriteString("No chunks found matching the query.\n")
			} else {
				for i, c := range chunks {
					fmt.Fprintf(&result, "%d. [%s] (score: %.2f) %s\n",
						i+1, c.DocumentTitle, c.EnhancedScore, truncateContent(c.Content, 300))
				}
			}
			return result.String(), nil
		},
	}
}

func toolPersonSearch(engine *search.Engine) ai.Tool {
	return ai.Tool{
		Name:        "person_search",
		Description: "Search the knowledge graph for facts about people matching a name, company, or position. Use this to find information about a specific person.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Full or partial name of the person.",
				},
				"company": map[string]any{
					"type":        "string",
					"description": "Company the person is associated with.",
				},
				"position": map[string]any{
					"type":        "string",
					"description": "Role or title of the person.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of facts to return (default: 10).",
					"default":     10,
				},
			},
			"required": []string{"name"},
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var filter search.EntityFilter
			if err := json.Unmarshal([]byte(args), &filter); err != nil {
				return "", fmt.Errorf("failed to parse arguments: %w", err)
			}
			if filter.Name == "" {
				return "", fmt.Errorf("name is required and must be a string")
			}

			logger.Debug("[Tool] person_search", "name", filter.Name, "company", filter.Company, "position", filter.Position)

			results, err := engine.PersonSearch(ctx, filter)
			if err != nil {
				return "", fmt.Errorf("failed to search people: %w", err)
			}
			return renderEntityFacts("People", results), nil
		},
	}
}

func toolCompanySearch(engine *search.Engine) ai.Tool {
	return ai.Tool{
		Name:        "company_search",
		Description: "Search the knowledge graph for facts about companies matching a name, industry, or location. Use this to find information about a specific company.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Full or partial name of the company.",
				},
				"industry": map[string]any{
					"type":        "string",
					"description": "Industry the company operates in.",
				},
				"location": map[string]any{
					"type":        "string",
					"description": "Location of the company.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of facts to return (default: 10).",
					"default":     10,
				},
			},
			"required": []string{"name"},
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var filter search.EntityFilter
			if err := json.Unmarshal([]byte(args), &filter); err != nil {
				return "", fmt.Errorf("failed to parse arguments: %w", err)
			}
			if filter.Name == "" {
				return "", fmt.Errorf("name is required and must be a string")
			}

			logger.Debug("[Tool] company_search", "name", filter.Name, "industry", filter.Industry, "location", filter.Location)

			results, err := engine.CompanySearch(ctx, filter)
			if err != nil {
				return "", fmt.Errorf("failed to search companies: %w", err)
			}
			return renderEntityFacts("Companies", results), nil
		},
	}
}

func toolFindRelationship(engine *search.Engine) ai.Tool {
	return ai.Tool{
		Name:        "find_relationship",
		Description: "Find connections between two named entities. Runs multiple graph probes, scores the facts by co-mention, and returns direct and indirect relationships with a connection strength. Use this for questions of the form 'how are X and Y related'.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"entity1": map[string]any{
					"type":        "string",
					"description": "The first entity name.",
				},
				"entity2": map[string]any{
					"type":        "string",
					"description": "The second entity name.",
				},
			},
			"required": []string{"entity1", "entity2"},
		},
		Handler: func(ctx context.Context, args string) (string, error) {
			var params map[string]any
			if err := json.Unmarshal([]byte(args), &params); err != nil {
				return "", fmt.Errorf("failed to parse arguments: %w", err)
			}

			entity1, ok := params["entity1"].(string)
			if !ok || entity1 == "" {
				return "", fmt.Errorf("entity1 is required and must be a string")
			}
			entity2, ok := params["entity2"].(string)
			if !ok || entity2 == "" {
				return "", fmt.Errorf("entity2 is required and must be a string")
			}

			logger.Debug("[Tool] find_relationship", "entity1", entity1, "entity2", entity2)

			report, err := engine.FindRelationships(ctx, entity1, entity2)
			if err != nil {
				return "", fmt.Errorf("failed to find relationships: %w", err)
			}

			var result strings.Builder
			fmt.Fprintf(&result, "## Connections between %q and %q\n", entity1, entity2)
			fmt.Fprintf(&result, "- connection_strength: %.2f\n", report.ConnectionStrength)
			fmt.Fprintf(&result, "- summary: %s\n", report.Summary)
			if len(report.DirectRelationships) > 0 {
				result.WriteString("### Direct\n")
				for i, t := range report.DirectRelationships {
					fmt.Fprintf(&result, "%d. %s %s %s\n", i+1, t.Source, t.Type, t.Target)
				}
			}
			if len(report.IndirectRelationships) > 0 {
				result.WriteString("### Indirect\n")
				for i, t := range report.IndirectRelationships {
					fmt.Fprintf(&result, "%d. %s %s %s\n", i+1, t.Source, t.Type, t.Target)
				}
			}
			return result.String(), nil
		},
	}
}

func renderEntityFacts(heading string, results []search.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", heading)
	if len(results) == 0 {
		b.WriteString("No facts found matching the query.\n")
		return b.String()
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncateContent(r.Fact, 300))
	}
	return b.String()
}

// GetToolList returns the retrieval tools for agentic querying: graph,
// vector, and hybrid search plus typed entity probes and the two-entity
// relationship finder.
func GetToolList(engine *search.Engine) []ai.Tool {
	return []ai.Tool{
		toolGraphSearch(engine),
		toolVectorSearch(engine),
		toolHybridSearch(engine),
		toolPersonSearch(engine),
		toolCompanySearch(engine),
		toolFindRelationship(engine),
	}
}

// QueryAgentic answers a query by letting the model drive the retrieval
// tools in a conversation loop.
func (r *Router) QueryAgentic(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	return r.aiClient.GenerateChatWithTools(ctx, messages, GetToolList(r.engine),
		ai.WithSystemPrompts(agenticSystemPrompt))
}
