package search

import (
	"math"
	"testing"
)

func TestScoreFact(t *testing.T) {
	tests := []struct {
		name string
		fact string
		want float64
	}{
		{"both entities", "Alice and Acme signed", 1.0},
		{"one entity", "Alice visited Paris", 0.5},
		{"case insensitive", "ALICE works with ACME on the deal", 1.0},
		{"neither", "Bob founded DataFlow", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreFact(tt.fact, "Alice", "Acme"); got != tt.want {
				t.Fatalf("ScoreFact(%q) = %v, want %v", tt.fact, got, tt.want)
			}
		})
	}
}

func TestConnectionStrength(t *testing.T) {
	// One high-relevance fact plus one single-mention fact.
	if got := ConnectionStrength(1, 2); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("ConnectionStrength(1, 2) = %v, want 0.5", got)
	}
	if got := ConnectionStrength(0, 0); got != 0 {
		t.Fatalf("ConnectionStrength(0, 0) = %v, want 0", got)
	}
	// Capped at 1.
	if got := ConnectionStrength(10, 20); got != 1.0 {
		t.Fatalf("ConnectionStrength(10, 20) = %v, want 1.0", got)
	}
}

func TestRelationshipProbes(t *testing.T) {
	probes := RelationshipProbes("Alice", "Acme")
	if len(probes) != 9 {
		t.Fatalf("expected 9 probes, got %d", len(probes))
	}
	if probes[0] != "Alice Acme" {
		t.Fatalf("first probe = %q, want %q", probes[0], "Alice Acme")
	}
	if probes[7] != "Acme Alice" {
		t.Fatalf("reversed probe = %q, want %q", probes[7], "Acme Alice")
	}
}
