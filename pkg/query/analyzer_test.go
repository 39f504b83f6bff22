package query

import (
	"reflect"
	"testing"
)

func TestHeuristicAnalyze(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantType     SearchType
		wantEntities []string
	}{
		{
			name:         "relationship cue routes to graph",
			query:        "What is the relationship between Alice Chen and Acme?",
			wantType:     SearchTypeGraph,
			wantEntities: []string{"What", "Alice Chen", "Acme"},
		},
		{
			name:         "employment cue routes to graph",
			query:        "who works at DataFlow Systems",
			wantType:     SearchTypeGraph,
			wantEntities: []string{"DataFlow Systems"},
		},
		{
			name:         "two entities without cue routes to graph",
			query:        "Acme Corp and TechCorp quarterly results",
			wantType:     SearchTypeGraph,
			wantEntities: []string{"Acme Corp", "TechCorp"},
		},
		{
			name:         "single quoted entity without cue routes to graph",
			query:        `tell me about "Acme Corp"`,
			wantType:     SearchTypeGraph,
			wantEntities: []string{"Acme Corp"},
		},
		{
			name:         "content question routes to vector",
			query:        "what were the revenue figures last quarter",
			wantType:     SearchTypeVector,
			wantEntities: []string{},
		},
		{
			name:         "quoted span becomes an entity and routes to graph",
			query:        `summary of the "annual shareholder letter"`,
			wantType:     SearchTypeGraph,
			wantEntities: []string{"annual shareholder letter"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicAnalyze(tt.query)
			if got.SearchType != tt.wantType {
				t.Fatalf("search type = %q, want %q", got.SearchType, tt.wantType)
			}
			if !reflect.DeepEqual(got.Entities, tt.wantEntities) {
				t.Fatalf("entities = %v, want %v", got.Entities, tt.wantEntities)
			}
			if got.LLMAnalysis {
				t.Fatal("heuristic analysis must report llm_analysis=false")
			}
		})
	}
}

func TestWhoIsSubject(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Who is Alice Chen?", "Alice Chen"},
		{"who is John Smith", "John Smith"},
		{"Who is \"Bob Jones\"?", "Bob Jones"},
		{"Who isn't happy", ""},
		{"Tell me who is the CEO", ""},
		{"What is Acme", ""},
	}
	for _, tt := range tests {
		if got := WhoIsSubject(tt.query); got != tt.want {
			t.Fatalf("WhoIsSubject(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
