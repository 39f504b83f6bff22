package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vantagegraph/vantage/backend/pkg/ai"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// SearchType selects which retrieval backend serves a query.
type SearchType string

const (
	SearchTypeGraph  SearchType = "graph"
	SearchTypeVector SearchType = "vector"
)

// Analysis is the routing decision for a user query.
type Analysis struct {
	SearchType  SearchType `json:"search_type"`
	Entities    []string   `json:"entities"`
	Reasoning   string     `json:"reasoning"`
	LLMAnalysis bool       `json:"llm_analysis"`
}

const analyzePrompt = `Analyze the user query and decide which retrieval backend should serve it.

Use "graph" when the query asks about entities and how they relate to each other
(people, companies, employment, ownership, partnerships). Use "vector" when the
query asks about document content, topics, or general information.

List every entity name mentioned in the query.

Query: %s`

// properNounRe matches capitalized word runs, the heuristic stand-in for
// entity mentions when no model is available.
var properNounRe = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\b`)

var quotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// graphCues are phrases that indicate a relationship-centric question.
var graphCues = []string{
	"relationship", "relation", "connection", "connected", "associated",
	"works at", "works for", "employed by", "ceo of", "director of",
	"between", "partnership", "collaboration", "member of",
}

// AnalyzeQuery classifies a query with the model, falling back to the
// heuristic classifier when the model call fails or returns an unusable
// decision. The result always carries a usable search type.
func AnalyzeQuery(ctx context.Context, aiClient ai.Client, query string) Analysis {
	var analysis Analysis
	err := aiClient.GenerateCompletionWithFormat(
		ctx,
		"query_analysis",
		"Routing decision for a retrieval query",
		fmt.Sprintf(analyzePrompt, query),
		&analysis,
	)
	if err == nil && (analysis.SearchType == SearchTypeGraph || analysis.SearchType == SearchTypeVector) {
		analysis.LLMAnalysis = true
		if analysis.Entities == nil {
			analysis.Entities = []string{}
		}
		return analysis
	}
	if err != nil {
		logger.Warn("[Query] Model analysis failed, using heuristics", "err", err)
	}
	return HeuristicAnalyze(query)
}

// HeuristicAnalyze classifies a query without a model: quoted spans and
// capitalized word runs become entities, and a fixed cue list decides
// between graph and vector search.
func HeuristicAnalyze(query string) Analysis {
	analysis := Analysis{
		SearchType:  SearchTypeVector,
		Entities:    []string{},
		LLMAnalysis: false,
	}

	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			return
		}
		seen[strings.ToLower(s)] = true
		analysis.Entities = append(analysis.Entities, s)
	}

	for _, m := range quotedRe.FindAllStringSubmatch(query, -1) {
		if m[1] != "" {
			add(m[1])
		} else {
			add(m[2])
		}
	}
	for _, m := range properNounRe.FindAllString(query, -1) {
		add(m)
	}

	lower := strings.ToLower(query)
	for _, cue := range graphCues {
		if strings.Contains(lower, cue) {
			analysis.SearchType = SearchTypeGraph
			analysis.Reasoning = fmt.Sprintf("query contains relationship cue %q", cue)
			return analysis
		}
	}
	if len(analysis.Entities) > 0 {
		analysis.SearchType = SearchTypeGraph
		analysis.Reasoning = "query mentions an entity"
		return analysis
	}

	analysis.Reasoning = "no relationship cues found"
	return analysis
}

// WhoIsSubject extracts the subject of a "who is X" question, or "" when
// the query is not one.
func WhoIsSubject(query string) string {
	lower := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(lower, "who is ") {
		return ""
	}
	subject := strings.TrimSpace(query[len("who is "):])
	subject = strings.TrimRight(subject, "?!. ")
	subject = strings.Trim(subject, `"'`)
	return subject
}
