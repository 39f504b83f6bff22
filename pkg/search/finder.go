package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/vantagegraph/vantage/backend/pkg/facts"
)

const (
	scoreBothEntities   = 1.0
	scoreSingleEntity   = 0.5
	strengthHighWeight  = 0.3
	strengthTotalWeight = 0.1
)

// EntityInfo summarizes one endpoint of a connection report.
type EntityInfo struct {
	Name          string         `json:"name"`
	Facts         []string       `json:"facts,omitempty"`
	Relationships []facts.Triple `json:"relationships,omitempty"`
}

// ConnectionReport is the result of a two-entity relationship search.
type ConnectionReport struct {
	Entity1               string         `json:"entity1"`
	Entity2               string         `json:"entity2"`
	DirectRelationships   []facts.Triple `json:"direct_relationships"`
	IndirectRelationships []facts.Triple `json:"indirect_relationships"`
	Entity1Info           *EntityInfo    `json:"entity1_info,omitempty"`
	Entity2Info           *EntityInfo    `json:"entity2_info,omitempty"`
	ConnectionStrength    float64        `json:"connection_strength"`
	Summary               string         `json:"summary"`
}

// RelationshipProbes is the fixed probe set the finder runs for a pair of
// entity names.
func RelationshipProbes(a, b string) []string {
	return []string{
		fmt.Sprintf("%s %s", a, b),
		fmt.Sprintf("%s and %s", a, b),
		fmt.Sprintf("relationship %s %s", a, b),
		fmt.Sprintf("%s works at %s", a, b),
		fmt.Sprintf("%s employed by %s", a, b),
		fmt.Sprintf("%s director of %s", a, b),
		fmt.Sprintf("%s executive of %s", a, b),
		fmt.Sprintf("%s %s", b, a),
		fmt.Sprintf("facts about %s %s", a, b),
	}
}

// ScoreFact rates a fact's relevance to the entity pair: 1.0 when both
// names appear, 0.5 when exactly one does, 0 otherwise (discard).
func ScoreFact(fact, a, b string) float64 {
	lower := strings.ToLower(fact)
	hasA := strings.Contains(lower, strings.ToLower(a))
	hasB := strings.Contains(lower, strings.ToLower(b))
	switch {
	case hasA && hasB:
		return scoreBothEntities
	case hasA || hasB:
		return scoreSingleEntity
	}
	return 0
}

// ConnectionStrength maps fact counts onto [0, 1].
func ConnectionStrength(highRelevance, total int) float64 {
	strength := strengthHighWeight*float64(highRelevance) + strengthTotalWeight*float64(total)
	if strength > 1.0 {
		return 1.0
	}
	return strength
}

// FindRelationships searches the graph for connections between two named
// entities using a fixed set of probe queries, scores the surviving facts
// by co-mention, and assembles a connection report with per-entity
// context. Best-effort: probe failures degrade the report, they do not
// fail it.
func (e *Engine) FindRelationships(ctx context.Context, entity1, entity2 string) (*ConnectionReport, error) {
	report := &ConnectionReport{
		Entity1:               entity1,
		Entity2:               entity2,
		DirectRelationships:   []facts.Triple{},
		IndirectRelationships: []facts.Triple{},
	}

	probes := RelationshipProbes(entity1, entity2)
	results, err := e.GraphSearch(ctx, probes[0], probes[1:]...)
	if err != nil {
		results = []Result{}
	}

	highCount := 0
	total := 0
	for _, r := range results {
		score := ScoreFact(r.Fact, entity1, entity2)
		if score == 0 {
			continue
		}
		total++

		triples := facts.ParseFact(r.Fact, entity1)
		if len(triples) == 0 {
			triples = facts.ParseFact(r.Fact, entity2)
		}

		if score >= scoreBothEntities {
			highCount++
			report.DirectRelationships = append(report.DirectRelationships, triples...)
		} else {
			report.IndirectRelationships = append(report.IndirectRelationships, triples...)
		}
	}

	report.Entity1Info = e.entityInfo(ctx, entity1)
	report.Entity2Info = e.entityInfo(ctx, entity2)

	report.ConnectionStrength = ConnectionStrength(highCount, total)

	if total > 0 {
		report.Summary = fmt.Sprintf(
			"Found %d potential connections between %s and %s (%d direct).",
			total, entity1, entity2, highCount)
	} else {
		report.Summary = fmt.Sprintf(
			"No direct connections found between %s and %s.", entity1, entity2)
	}
	return report, nil
}

// entityInfo gathers context for one entity: person-typed probe first,
// then company-typed, keeping the top 5 parsed relationships.
func (e *Engine) entityInfo(ctx context.Context, name string) *EntityInfo {
	info := &EntityInfo{Name: name}

	results, _ := e.PersonSearch(ctx, EntityFilter{Name: name, Limit: 10})
	if len(results) == 0 {
		results, _ = e.CompanySearch(ctx, EntityFilter{Name: name, Limit: 10})
	}

	for _, r := range results {
		info.Facts = append(info.Facts, r.Fact)
		info.Relationships = append(info.Relationships, facts.ParseFact(r.Fact, name)...)
	}
	if len(info.Relationships) > 5 {
		info.Relationships = info.Relationships[:5]
	}
	return info
}
