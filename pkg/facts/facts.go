// Package facts reconstructs typed relationship triples from the textual
// facts the graph store returns. The graph store speaks prose; everything
// downstream wants (source, relation, target).
package facts

import "fmt"

// Direction locates the queried entity within a triple: outgoing when it
// is the source, incoming when it is the target, unknown when no entity
// was requested.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionUnknown  Direction = "unknown"
)

// Extraction method tags, recorded on every triple so reviewers can see
// which recognizer produced it.
const (
	MethodDirectIngestion         = "direct_relationship_ingestion"
	MethodStructuredEmployment    = "structured_employment"
	MethodStructuredExecutiveList = "structured_executive_list"
	methodNaturalLanguagePrefix   = "natural_language_"
)

// Triple is one typed, directed relationship extracted from a fact.
type Triple struct {
	Source    string    `json:"source_entity"`
	Type      string    `json:"relationship_type"`
	Target    string    `json:"target_entity"`
	Direction Direction `json:"direction"`
	Method    string    `json:"extraction_method"`
}

// RenderTriple formats a triple as an explicit relationship line, the shape
// the parser round-trips and the graph store ingests verbatim.
func RenderTriple(t Triple) string {
	return fmt.Sprintf("Relationship: %s %s %s", t.Source, t.Type, t.Target)
}
