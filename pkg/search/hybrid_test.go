package search

import (
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/vantagegraph/vantage/backend/pkg/store"
)

func TestRerankScoreReordering(t *testing.T) {
	ranked := []RankedChunk{
		{SearchRow: store.SearchRow{ChunkID: "c1", CombinedScore: 0.6}},
		{SearchRow: store.SearchRow{ChunkID: "c2", CombinedScore: 0.5}},
	}
	cosines := []float64{0.2, 0.9}

	for i := range ranked {
		ranked[i].EnhancedScore = RerankScore(ranked[i].CombinedScore, cosines[i])
	}

	if math.Abs(ranked[0].EnhancedScore-0.48) > 1e-9 {
		t.Fatalf("chunk c1 enhanced score = %v, want 0.48", ranked[0].EnhancedScore)
	}
	if math.Abs(ranked[1].EnhancedScore-0.62) > 1e-9 {
		t.Fatalf("chunk c2 enhanced score = %v, want 0.62", ranked[1].EnhancedScore)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EnhancedScore > ranked[j].EnhancedScore
	})
	if ranked[0].ChunkID != "c2" {
		t.Fatalf("expected c2 at rank 1 after rerank, got %s", ranked[0].ChunkID)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 1}, []float32{1, 0, 1}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestJaccardSimilarity(t *testing.T) {
	if got := JaccardSimilarity("a b c", "a b c"); got != 1 {
		t.Fatalf("identical texts = %v, want 1", got)
	}
	if got := JaccardSimilarity("a b", "c d"); got != 0 {
		t.Fatalf("disjoint texts = %v, want 0", got)
	}
	// 3 shared words of 4 total.
	if got := JaccardSimilarity("a b c", "a b d"); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("half overlap = %v, want 0.5", got)
	}
}

func TestDedupeByOverlapIdempotent(t *testing.T) {
	rows := []RankedChunk{
		{SearchRow: store.SearchRow{ChunkID: "c1", Content: "the quick brown fox jumps over the lazy dog"}},
		{SearchRow: store.SearchRow{ChunkID: "c2", Content: "the quick brown fox jumps over the lazy dog today"}},
		{SearchRow: store.SearchRow{ChunkID: "c3", Content: "completely different subject matter entirely"}},
	}

	once := DedupeByOverlap(rows, 0.85)
	twice := DedupeByOverlap(once, 0.85)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("dedupe not idempotent: first %+v, second %+v", once, twice)
	}

	ids := make([]string, 0, len(once))
	for _, r := range once {
		ids = append(ids, r.ChunkID)
	}
	want := []string{"c1", "c3"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("dedupe kept %v, want %v", ids, want)
	}
}

func TestExpandQuery(t *testing.T) {
	got := ExpandQuery("company acquisition details")
	want := "company OR corporation OR business acquisition OR takeover OR purchase details"
	if got != want {
		t.Fatalf("ExpandQuery = %q, want %q", got, want)
	}

	unchanged := "something without matches"
	if got := ExpandQuery(unchanged); got != unchanged {
		t.Fatalf("ExpandQuery(%q) = %q, want unchanged", unchanged, got)
	}
}
