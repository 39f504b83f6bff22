package graphiti

import "time"

// Fact is one temporal edge returned by the graph store. ValidAt and
// InvalidAt bound the interval in which the fact held; a nil InvalidAt
// means the fact is still current.
type Fact struct {
	Fact           string     `json:"fact"`
	UUID           string     `json:"uuid"`
	Name           string     `json:"name,omitempty"`
	ValidAt        *time.Time `json:"valid_at,omitempty"`
	InvalidAt      *time.Time `json:"invalid_at,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	ExpiredAt      *time.Time `json:"expired_at,omitempty"`
	SourceNodeUUID string     `json:"source_node_uuid,omitempty"`
	TargetNodeUUID string     `json:"target_node_uuid,omitempty"`
}

// Node is an entity node returned by node search.
type Node struct {
	UUID       string         `json:"uuid"`
	Name       string         `json:"name"`
	GroupID    string         `json:"group_id,omitempty"`
	Labels     []string       `json:"labels,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  *time.Time     `json:"created_at,omitempty"`
}

// Episode is a unit of source content added to the graph. The graph store
// extracts entities and temporal edges from the body.
type Episode struct {
	Name              string              `json:"name"`
	EpisodeBody       string              `json:"episode_body"`
	SourceDescription string              `json:"source_description"`
	ReferenceTime     time.Time           `json:"reference_time"`
	GroupID           string              `json:"group_id,omitempty"`
	EntityTypes       map[string]any      `json:"entity_types,omitempty"`
	EdgeTypes         map[string]any      `json:"edge_types,omitempty"`
	EdgeTypeMap       map[string][]string `json:"edge_type_map,omitempty"`
}

type searchRequest struct {
	Query    string   `json:"query"`
	MaxFacts int      `json:"max_facts,omitempty"`
	GroupIDs []string `json:"group_ids,omitempty"`
}

type searchResponse struct {
	Facts []Fact `json:"facts"`
}

type nodeSearchRequest struct {
	Query       string   `json:"query"`
	Limit       int      `json:"limit,omitempty"`
	EntityTypes []string `json:"entity_types,omitempty"`
	GroupIDs    []string `json:"group_ids,omitempty"`
}

type nodeSearchResponse struct {
	Nodes []Node `json:"nodes"`
}
