package facts

import (
	"reflect"
	"testing"

	"github.com/vantagegraph/vantage/backend/pkg/common"
)

func TestParseFactRelationshipLine(t *testing.T) {
	fact := "Relationship: TechCorp Shareholder_OF DataFlow"
	got := ParseFact(fact, "DataFlow")

	want := []Triple{{
		Source:    "TechCorp",
		Type:      "Shareholder_OF",
		Target:    "DataFlow",
		Direction: DirectionIncoming,
		Method:    MethodDirectIngestion,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFact(%q) = %+v, want %+v", fact, got, want)
	}
}

func TestParseFactPersonBlock(t *testing.T) {
	fact := "PERSON: John Chen\nEntity Type: Person\nCurrent company: TechCorp\nCurrent position: CEO"
	got := ParseFact(fact, "John Chen")

	want := []Triple{{
		Source:    "John Chen",
		Type:      "Executive_OF",
		Target:    "TechCorp",
		Direction: DirectionOutgoing,
		Method:    MethodStructuredEmployment,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFact(%q) = %+v, want %+v", fact, got, want)
	}
}

func TestParseFactPersonBlockNonExecutive(t *testing.T) {
	fact := "PERSON: Dana Lee\nCurrent company: TechCorp\nCurrent position: Software Engineer"
	got := ParseFact(fact, "Dana Lee")

	if len(got) != 1 {
		t.Fatalf("expected 1 triple, got %d: %+v", len(got), got)
	}
	if got[0].Type != "Employee_OF" {
		t.Fatalf("expected Employee_OF for non-executive position, got %s", got[0].Type)
	}
}

func TestParseFactPersonBlockCompanyPerspective(t *testing.T) {
	fact := "PERSON: John Chen\nCurrent company: TechCorp\nCurrent position: CEO"
	got := ParseFact(fact, "TechCorp")

	want := []Triple{{
		Source:    "TechCorp",
		Type:      "Employs",
		Target:    "John Chen",
		Direction: DirectionIncoming,
		Method:    MethodStructuredEmployment,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFact from company perspective = %+v, want %+v", got, want)
	}
}

func TestParseFactCompanyBlock(t *testing.T) {
	fact := "COMPANY: TechCorp\nIndustry: Software\nKey executives: John Chen, Dana Lee"
	got := ParseFact(fact, "")

	want := []Triple{
		{Source: "John Chen", Type: "Executive_OF", Target: "TechCorp", Direction: DirectionUnknown, Method: MethodStructuredExecutiveList},
		{Source: "Dana Lee", Type: "Executive_OF", Target: "TechCorp", Direction: DirectionUnknown, Method: MethodStructuredExecutiveList},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseFact(company block) = %+v, want %+v", got, want)
	}
}

func TestParseFactProse(t *testing.T) {
	tests := []struct {
		name string
		fact string
		want Triple
	}{
		{
			name: "executive employment",
			fact: "John Smith is the CEO of TechCorp.",
			want: Triple{Source: "John Smith", Type: "Executive_OF", Target: "TechCorp", Direction: DirectionUnknown, Method: "natural_language_employment"},
		},
		{
			name: "plain employment",
			fact: "Dana Lee works as an engineer at DataFlow.",
			want: Triple{Source: "Dana Lee", Type: "Employee_OF", Target: "DataFlow", Direction: DirectionUnknown, Method: "natural_language_employment"},
		},
		{
			name: "executive shorthand",
			fact: "Alice Wong Chairman of Acme Holdings",
			want: Triple{Source: "Alice Wong", Type: "Executive_OF", Target: "Acme Holdings", Direction: DirectionUnknown, Method: "natural_language_executive"},
		},
		{
			name: "employs",
			fact: "TechCorp employs John Chen",
			want: Triple{Source: "TechCorp", Type: "Employs", Target: "John Chen", Direction: DirectionUnknown, Method: "natural_language_employs"},
		},
		{
			name: "owns",
			fact: "Acme owns DataFlow",
			want: Triple{Source: "Acme", Type: "Owns", Target: "DataFlow", Direction: DirectionUnknown, Method: "natural_language_ownership"},
		},
		{
			name: "owned by",
			fact: "DataFlow is owned by Acme",
			want: Triple{Source: "DataFlow", Type: "Owned_BY", Target: "Acme", Direction: DirectionUnknown, Method: "natural_language_ownership"},
		},
		{
			name: "subsidiary",
			fact: "DataFlow is a subsidiary of TechCorp",
			want: Triple{Source: "DataFlow", Type: "Subsidiary_OF", Target: "TechCorp", Direction: DirectionUnknown, Method: "natural_language_subsidiary"},
		},
		{
			name: "shareholder",
			fact: "Acme is a shareholder in DataFlow",
			want: Triple{Source: "Acme", Type: "Shareholder_OF", Target: "DataFlow", Direction: DirectionUnknown, Method: "natural_language_shareholder"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFact(tt.fact, "")
			if len(got) != 1 {
				t.Fatalf("ParseFact(%q) returned %d triples: %+v", tt.fact, len(got), got)
			}
			if got[0] != tt.want {
				t.Fatalf("ParseFact(%q) = %+v, want %+v", tt.fact, got[0], tt.want)
			}
		})
	}
}

func TestParseFactFiltersByEntity(t *testing.T) {
	fact := "Relationship: Acme Subsidiary_OF MegaCorp\nRelationship: TechCorp Shareholder_OF DataFlow"
	got := ParseFact(fact, "Acme")

	if len(got) != 1 {
		t.Fatalf("expected 1 triple after filtering, got %d: %+v", len(got), got)
	}
	if got[0].Source != "Acme" {
		t.Fatalf("expected the Acme triple to survive, got %+v", got[0])
	}
}

func TestParseFactDedupes(t *testing.T) {
	fact := "Relationship: Acme Subsidiary_OF MegaCorp\nRelationship: acme Subsidiary_OF MEGACORP"
	got := ParseFact(fact, "")

	if len(got) != 1 {
		t.Fatalf("expected duplicates collapsed to 1, got %d: %+v", len(got), got)
	}
}

func TestParseFactGarbage(t *testing.T) {
	got := ParseFact("completely unrelated text with no structure at all", "")
	if len(got) != 0 {
		t.Fatalf("expected no triples from garbage, got %+v", got)
	}
}

func TestParseFactRelationTokensValid(t *testing.T) {
	facts := []string{
		"Relationship: TechCorp Shareholder_OF DataFlow",
		"Relationship: Acme flibbertigibbet DataFlow",
		"John Smith is the CEO of TechCorp.",
		"PERSON: John Chen\nCurrent company: TechCorp\nCurrent position: CEO",
	}
	for _, fact := range facts {
		for _, tr := range ParseFact(fact, "") {
			if tr.Source == "" || tr.Target == "" {
				t.Fatalf("triple with empty endpoint from %q: %+v", fact, tr)
			}
			if !common.KnownRelationType(tr.Type) {
				t.Fatalf("relation %q from %q is outside the taxonomy", tr.Type, fact)
			}
		}
	}
}

func TestRenderTripleRoundTrip(t *testing.T) {
	triples := []Triple{
		{Source: "TechCorp", Type: "Shareholder_OF", Target: "DataFlow"},
		{Source: "Acme Corp", Type: "Employs", Target: "John Chen"},
		{Source: "John Chen", Type: "Executive_OF", Target: "TechCorp"},
		{Source: "DataFlow", Type: "Subsidiary_OF", Target: "Mega Holdings Group"},
	}

	for _, want := range triples {
		line := RenderTriple(want)
		got := ParseFact(line, "")
		if len(got) != 1 {
			t.Fatalf("round trip of %q produced %d triples: %+v", line, len(got), got)
		}
		if got[0].Source != want.Source || got[0].Type != want.Type || got[0].Target != want.Target {
			t.Fatalf("round trip of %q = %+v, want %+v", line, got[0], want)
		}
		if got[0].Direction != DirectionUnknown {
			t.Fatalf("round trip without entity should have unknown direction, got %s", got[0].Direction)
		}
	}
}
