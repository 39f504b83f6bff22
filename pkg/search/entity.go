package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/vantagegraph/vantage/backend/pkg/facts"
	"github.com/vantagegraph/vantage/backend/pkg/graphiti"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// EntityFilter narrows an entity-typed search. Name is matched as a
// substring; the remaining fields are optional qualifiers.
type EntityFilter struct {
	Name     string `json:"name,omitempty"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Industry string `json:"industry,omitempty"`
	Location string `json:"location,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (f EntityFilter) limit() int {
	if f.Limit <= 0 {
		return 10
	}
	return f.Limit
}

// PersonProbe renders the filter as a natural-language probe for the graph
// store's semantic search.
func PersonProbe(f EntityFilter) string {
	var b strings.Builder
	b.WriteString("person")
	if f.Name != "" {
		fmt.Fprintf(&b, " named %s", f.Name)
	}
	if f.Company != "" {
		fmt.Fprintf(&b, " at %s", f.Company)
	}
	if f.Position != "" {
		fmt.Fprintf(&b, " with position %s", f.Position)
	}
	if f.Location != "" {
		fmt.Fprintf(&b, " located in %s", f.Location)
	}
	return b.String()
}

// CompanyProbe renders the filter as a company-typed probe.
func CompanyProbe(f EntityFilter) string {
	var b strings.Builder
	b.WriteString("company")
	if f.Name != "" {
		fmt.Fprintf(&b, " named %s", f.Name)
	}
	if f.Industry != "" {
		fmt.Fprintf(&b, " in industry %s", f.Industry)
	}
	if f.Location != "" {
		fmt.Fprintf(&b, " located in %s", f.Location)
	}
	return b.String()
}

// PersonSearch probes the graph for facts about matching people.
func (e *Engine) PersonSearch(ctx context.Context, f EntityFilter) ([]Result, error) {
	return e.entitySearch(ctx, PersonProbe(f), f.limit())
}

// CompanySearch probes the graph for facts about matching companies.
func (e *Engine) CompanySearch(ctx context.Context, f EntityFilter) ([]Result, error) {
	return e.entitySearch(ctx, CompanyProbe(f), f.limit())
}

func (e *Engine) entitySearch(ctx context.Context, probe string, limit int) ([]Result, error) {
	found, err := e.graph.SemanticSearch(ctx, probe, graphiti.WithMaxFacts(limit))
	if err != nil {
		logger.Error("[Search] Entity probe failed", "probe", probe, "err", err)
		return []Result{}, nil
	}

	out := make([]Result, 0, len(found))
	for _, f := range found {
		out = append(out, factToResult(f, MethodEntityTyped))
	}
	return out, nil
}

// PersonRelationship is one relationship attached to a person record.
type PersonRelationship struct {
	RelationshipType string `json:"relationship_type"`
	Target           string `json:"target"`
}

// PersonRecord is the structured view of a person assembled from the graph,
// used by the who-is fast path.
type PersonRecord struct {
	Name          string               `json:"name"`
	Position      string               `json:"position,omitempty"`
	Company       string               `json:"company,omitempty"`
	Summary       string               `json:"summary,omitempty"`
	Relationships []PersonRelationship `json:"relationships,omitempty"`
}

// PersonLookup assembles a structured person record for the given name:
// the best-matching person node plus relationships parsed from the facts
// mentioning them. Returns nil when the graph knows nothing about the name.
func (e *Engine) PersonLookup(ctx context.Context, name string, limit int) (*PersonRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	nodes, err := e.graph.NodeSearch(ctx, name, []string{"Person"}, limit)
	if err != nil {
		logger.Warn("[Search] Person node search failed", "name", name, "err", err)
		nodes = []graphiti.Node{}
	}

	record := &PersonRecord{Name: name}
	if len(nodes) > 0 {
		top := nodes[0]
		record.Name = top.Name
		record.Summary = top.Summary
		if v, ok := top.Attributes["current_position"].(string); ok {
			record.Position = v
		}
		if v, ok := top.Attributes["current_company"].(string); ok {
			record.Company = v
		}
	}

	found, err := e.graph.SemanticSearch(ctx, name, graphiti.WithMaxFacts(limit*2))
	if err != nil {
		logger.Warn("[Search] Person fact search failed", "name", name, "err", err)
		found = []graphiti.Fact{}
	}

	for _, f := range found {
		for _, tr := range facts.ParseFact(f.Fact, record.Name) {
			target := tr.Target
			if tr.Direction == facts.DirectionIncoming {
				target = tr.Source
			}
			record.Relationships = append(record.Relationships, PersonRelationship{
				RelationshipType: tr.Type,
				Target:           target,
			})
			if record.Company == "" && (tr.Type == "Executive_OF" || tr.Type == "Employee_OF") {
				record.Company = tr.Target
			}
		}
	}

	if len(nodes) == 0 && len(record.Relationships) == 0 {
		return nil, nil
	}
	return record, nil
}

// CompositeFact renders a person record as the single synthetic fact the
// who-is route returns.
func (r *PersonRecord) CompositeFact() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is a person", r.Name)
	if r.Position != "" {
		fmt.Fprintf(&b, " with position %s", r.Position)
	}
	if r.Company != "" {
		fmt.Fprintf(&b, " at %s", r.Company)
	}
	b.WriteString(".")
	if r.Summary != "" {
		fmt.Fprintf(&b, " Summary: %s", r.Summary)
	}
	if len(r.Relationships) > 0 {
		parts := make([]string, 0, len(r.Relationships))
		for _, rel := range r.Relationships {
			parts = append(parts, fmt.Sprintf("%s %s", rel.RelationshipType, rel.Target))
		}
		fmt.Fprintf(&b, " Relationships: %s", strings.Join(parts, ", "))
	}
	return b.String()
}
