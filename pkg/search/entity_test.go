package search

import (
	"strings"
	"testing"
)

func TestPersonProbe(t *testing.T) {
	probe := PersonProbe(EntityFilter{Name: "Alice Chen", Company: "Acme", Position: "CEO"})
	want := "person named Alice Chen at Acme with position CEO"
	if probe != want {
		t.Fatalf("PersonProbe = %q, want %q", probe, want)
	}
}

func TestCompanyProbe(t *testing.T) {
	probe := CompanyProbe(EntityFilter{Name: "Acme", Industry: "Software", Location: "Berlin"})
	want := "company named Acme in industry Software located in Berlin"
	if probe != want {
		t.Fatalf("CompanyProbe = %q, want %q", probe, want)
	}
}

func TestCompositeFact(t *testing.T) {
	record := &PersonRecord{
		Name:     "Alice Chen",
		Position: "CEO",
		Company:  "Acme",
		Relationships: []PersonRelationship{
			{RelationshipType: "CEO_OF", Target: "Acme"},
		},
	}

	fact := record.CompositeFact()
	if !strings.HasPrefix(fact, "Alice Chen is a person with position CEO at Acme.") {
		t.Fatalf("composite fact has wrong prefix: %q", fact)
	}
	if !strings.Contains(fact, "Relationships: CEO_OF Acme") {
		t.Fatalf("composite fact missing relationships: %q", fact)
	}
}

func TestCompositeFactMinimal(t *testing.T) {
	record := &PersonRecord{Name: "Bob"}
	if got := record.CompositeFact(); got != "Bob is a person." {
		t.Fatalf("minimal composite fact = %q", got)
	}
}
