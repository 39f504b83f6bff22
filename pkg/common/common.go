package common

import "time"

// EntityType identifies the variant of an entity.
type EntityType string

const (
	EntityTypePerson  EntityType = "person"
	EntityTypeCompany EntityType = "company"
	EntityTypeGeneric EntityType = "generic"
)

// PersonSubtype classifies a person entity by their role.
type PersonSubtype string

const (
	PersonExecutive  PersonSubtype = "executive"
	PersonDirector   PersonSubtype = "director"
	PersonEmployee   PersonSubtype = "employee"
	PersonConsultant PersonSubtype = "consultant"
	PersonInvestor   PersonSubtype = "investor"
	PersonOther      PersonSubtype = "other"
)

// CompanySubtype classifies a company entity by its legal form.
type CompanySubtype string

const (
	CompanyPublic      CompanySubtype = "public"
	CompanyPrivate     CompanySubtype = "private"
	CompanySubsidiary  CompanySubtype = "subsidiary"
	CompanyPartnership CompanySubtype = "partnership"
	CompanyNonProfit   CompanySubtype = "non_profit"
	CompanyGovernment  CompanySubtype = "government"
	CompanyOther       CompanySubtype = "other"
)

// Entity represents a node in the knowledge graph. An entity is a person,
// a company, or a generic concept. The entity id is usually the canonical
// name; aliases record alternative spellings seen in the sources.
//
// The entity type is frozen after creation and confidence stays in [0, 1].
type Entity struct {
	EntityID        string         `json:"entity_id"`
	Name            string         `json:"name"`
	Type            EntityType     `json:"entity_type"`
	Aliases         []string       `json:"aliases,omitempty"`
	Description     string         `json:"description,omitempty"`
	SourceDocuments []string       `json:"source_documents,omitempty"`
	Confidence      float64        `json:"confidence"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Attributes      map[string]any `json:"attributes,omitempty"`

	Person  *PersonDetails  `json:"person,omitempty"`
	Company *CompanyDetails `json:"company,omitempty"`
}

// PersonDetails holds the person-specific attributes of an entity.
type PersonDetails struct {
	Subtype         PersonSubtype `json:"subtype,omitempty"`
	CurrentCompany  string        `json:"current_company,omitempty"`
	CurrentPosition string        `json:"current_position,omitempty"`
	Education       []string      `json:"education,omitempty"`
	Skills          []string      `json:"skills,omitempty"`
}

// CompanyDetails holds the company-specific attributes of an entity.
type CompanyDetails struct {
	Subtype       CompanySubtype `json:"subtype,omitempty"`
	Industry      string         `json:"industry,omitempty"`
	Headquarters  string         `json:"headquarters,omitempty"`
	Ticker        string         `json:"ticker,omitempty"`
	KeyExecutives []string       `json:"key_executives,omitempty"`
}

// Relationship represents a typed, directional edge between two entities.
// The relationship type is drawn from the closed taxonomy in taxonomy.go.
// Strength and confidence stay in [0, 1]; the temporal window records when
// the relationship held.
type Relationship struct {
	RelationshipID string         `json:"relationship_id"`
	SourceEntityID string         `json:"source_entity_id"`
	TargetEntityID string         `json:"target_entity_id"`
	Type           string         `json:"relationship_type"`
	Description    string         `json:"description,omitempty"`
	Strength       float64        `json:"strength"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	IsActive       bool           `json:"is_active"`
	Confidence     float64        `json:"confidence"`
	SourceDocument string         `json:"source_document,omitempty"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// Document represents an ingested source document. Documents own their
// chunks; deleting a document deletes its chunks.
type Document struct {
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title"`
	Source     string            `json:"source"`
	Content    string            `json:"content,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Chunk is a contiguous segment of a document with its dense embedding.
// Chunks are created by the external ingester and never mutated.
type Chunk struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	ChunkIndex int               `json:"chunk_index"`
	TokenCount int               `json:"token_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Embedding  []float32         `json:"embedding,omitempty"`
}
