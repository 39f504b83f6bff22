package staging

import (
	"time"

	"github.com/vantagegraph/vantage/backend/pkg/common"
)

// ItemStatus is the review state of a staged entity or relationship.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusApproved   ItemStatus = "approved"
	StatusRejected   ItemStatus = "rejected"
	StatusEdited     ItemStatus = "edited"
	StatusConflicted ItemStatus = "conflicted"
)

// ApprovalStage tracks how far an item is through review.
type ApprovalStage string

const (
	StageInitial ApprovalStage = "initial"
	StageFinal   ApprovalStage = "final"
)

// SessionStatus is the lifecycle state of a whole review session.
type SessionStatus string

const (
	SessionPendingReview SessionStatus = "pending_review"
	SessionInReview      SessionStatus = "in_review"
	SessionApproved      SessionStatus = "approved"
	SessionIngested      SessionStatus = "ingested"
	SessionArchived      SessionStatus = "archived"
)

// WorkflowStage names the coarse step of the ingest workflow the session
// is in.
type WorkflowStage string

const (
	WorkflowExtraction WorkflowStage = "extraction"
	WorkflowReview     WorkflowStage = "review"
	WorkflowIngestion  WorkflowStage = "ingestion"
	WorkflowDone       WorkflowStage = "done"
)

// AuditEntry records one mutation. Entries are append-only and never
// mutated after being written.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Action    string         `json:"action"`
	Changes   map[string]any `json:"changes,omitempty"`
	Comment   string         `json:"comment,omitempty"`
}

// ValidationResult is the outcome of validating one staged item.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// StagedEntity is an extracted entity awaiting review.
type StagedEntity struct {
	common.Entity

	Status            ItemStatus        `json:"status"`
	ApprovalStage     ApprovalStage     `json:"approval_stage"`
	EditHistory       []AuditEntry      `json:"edit_history,omitempty"`
	ValidationResults *ValidationResult `json:"validation_results,omitempty"`
	Conflicts         []string          `json:"conflicts,omitempty"`
	SourceText        string            `json:"source_text,omitempty"`
}

// StagedRelationship is an extracted relationship awaiting review.
type StagedRelationship struct {
	common.Relationship

	Status            ItemStatus        `json:"status"`
	ApprovalStage     ApprovalStage     `json:"approval_stage"`
	EditHistory       []AuditEntry      `json:"edit_history,omitempty"`
	ValidationResults *ValidationResult `json:"validation_results,omitempty"`
	Conflicts         []string          `json:"conflicts,omitempty"`
	SourceText        string            `json:"source_text,omitempty"`
}

// SessionStatistics counts items per status. It is recomputed by a full
// pass over the item lists after every mutation, never updated in place.
type SessionStatistics struct {
	TotalEntities           int `json:"total_entities"`
	ApprovedEntities        int `json:"approved_entities"`
	RejectedEntities        int `json:"rejected_entities"`
	PendingEntities         int `json:"pending_entities"`
	EditedEntities          int `json:"edited_entities"`
	ConflictedEntities      int `json:"conflicted_entities"`
	TotalRelationships      int `json:"total_relationships"`
	ApprovedRelationships   int `json:"approved_relationships"`
	RejectedRelationships   int `json:"rejected_relationships"`
	PendingRelationships    int `json:"pending_relationships"`
	EditedRelationships     int `json:"edited_relationships"`
	ConflictedRelationships int `json:"conflicted_relationships"`
}

// Session is one per-document review session: every entity and
// relationship extracted from the document, their review state, and the
// audit trail of everything that happened to them.
type Session struct {
	SessionID      string               `json:"session_id"`
	DocumentTitle  string               `json:"document_title"`
	DocumentSource string               `json:"document_source"`
	Status         SessionStatus        `json:"status"`
	WorkflowStage  WorkflowStage        `json:"workflow_stage"`
	Metadata       map[string]string    `json:"metadata,omitempty"`
	Statistics     SessionStatistics    `json:"statistics"`
	AuditTrail     []AuditEntry         `json:"audit_trail,omitempty"`
	Entities       []StagedEntity       `json:"entities"`
	Relationships  []StagedRelationship `json:"relationships"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	SessionID      string            `json:"session_id"`
	DocumentTitle  string            `json:"document_title"`
	DocumentSource string            `json:"document_source"`
	Status         SessionStatus     `json:"status"`
	WorkflowStage  WorkflowStage     `json:"workflow_stage"`
	Statistics     SessionStatistics `json:"statistics"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Summary reduces the session to its listing view.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		SessionID:      s.SessionID,
		DocumentTitle:  s.DocumentTitle,
		DocumentSource: s.DocumentSource,
		Status:         s.Status,
		WorkflowStage:  s.WorkflowStage,
		Statistics:     s.Statistics,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// RecomputeStatistics recounts every item status from scratch and stores
// the result on the session.
func (s *Session) RecomputeStatistics() {
	stats := SessionStatistics{
		TotalEntities:      len(s.Entities),
		TotalRelationships: len(s.Relationships),
	}
	for _, e := range s.Entities {
		switch e.Status {
		case StatusApproved:
			stats.ApprovedEntities++
		case StatusRejected:
			stats.RejectedEntities++
		case StatusEdited:
			stats.EditedEntities++
		case StatusConflicted:
			stats.ConflictedEntities++
		default:
			stats.PendingEntities++
		}
	}
	for _, r := range s.Relationships {
		switch r.Status {
		case StatusApproved:
			stats.ApprovedRelationships++
		case StatusRejected:
			stats.RejectedRelationships++
		case StatusEdited:
			stats.EditedRelationships++
		case StatusConflicted:
			stats.ConflictedRelationships++
		default:
			stats.PendingRelationships++
		}
	}
	s.Statistics = stats
}

// AppendAudit pushes an entry onto the session audit trail.
func (s *Session) AppendAudit(user, action string, changes map[string]any, comment string) {
	s.AuditTrail = append(s.AuditTrail, AuditEntry{
		Timestamp: time.Now().UTC(),
		User:      user,
		Action:    action,
		Changes:   changes,
		Comment:   comment,
	})
}

// FindEntity returns a pointer into the entity list, or nil.
func (s *Session) FindEntity(entityID string) *StagedEntity {
	for i := range s.Entities {
		if s.Entities[i].EntityID == entityID {
			return &s.Entities[i]
		}
	}
	return nil
}

// FindRelationship returns a pointer into the relationship list, or nil.
func (s *Session) FindRelationship(relationshipID string) *StagedRelationship {
	for i := range s.Relationships {
		if s.Relationships[i].RelationshipID == relationshipID {
			return &s.Relationships[i]
		}
	}
	return nil
}
