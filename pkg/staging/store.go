package staging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/vantagegraph/vantage/backend/pkg/common"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

var (
	ErrSessionNotFound = errors.New("staging session not found")
	ErrItemNotFound    = errors.New("staged item not found")
)

// RecordStore persists whole session records. Reads and writes are
// whole-record; the manager performs read-modify-write on top of it.
// Concurrent writers to the same session are not supported.
type RecordStore interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]*Session, error)
}

// ListFilter narrows ListSessions. Zero values match everything.
type ListFilter struct {
	Status SessionStatus
	Source string
}

// ApprovedItems is the commit-ready subset of a session.
type ApprovedItems struct {
	Entities      []StagedEntity       `json:"entities"`
	Relationships []StagedRelationship `json:"relationships"`
}

// Manager implements the review operations over a record store. Every
// mutation appends audit entries, recomputes the session statistics, and
// writes the whole record back before returning.
type Manager struct {
	records RecordStore
}

func NewManager(records RecordStore) *Manager {
	return &Manager{records: records}
}

// CreateSession starts an empty review session for one document.
func (m *Manager) CreateSession(ctx context.Context, title, source string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		SessionID:      uuid.NewString(),
		DocumentTitle:  title,
		DocumentSource: source,
		Status:         SessionPendingReview,
		WorkflowStage:  WorkflowExtraction,
		Entities:       []StagedEntity{},
		Relationships:  []StagedRelationship{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	session.AppendAudit("system", "created", map[string]any{
		"new_title":  title,
		"new_source": source,
	}, "")
	session.RecomputeStatistics()

	if err := m.records.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	logger.Info("[Staging] Session created", "session", session.SessionID, "title", title)
	return session, nil
}

// AddEntity stages an extracted entity and returns its id. The entity id
// defaults to the canonical name and is suffixed when that id is already
// taken in the session.
func (m *Manager) AddEntity(ctx context.Context, sessionID string, entity common.Entity, sourceText string) (string, error) {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return "", err
	}

	validation := validateEntity(entity)

	if entity.EntityID == "" {
		entity.EntityID = entity.Name
	}
	if session.FindEntity(entity.EntityID) != nil {
		suffix, nerr := gonanoid.New(6)
		if nerr != nil {
			return "", fmt.Errorf("failed to generate entity id: %w", nerr)
		}
		entity.EntityID = fmt.Sprintf("%s-%s", entity.EntityID, suffix)
	}

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	staged := StagedEntity{
		Entity:            entity,
		Status:            StatusPending,
		ApprovalStage:     StageInitial,
		ValidationResults: &validation,
		SourceText:        sourceText,
	}
	staged.EditHistory = append(staged.EditHistory, AuditEntry{
		Timestamp: now,
		User:      "system",
		Action:    "created",
	})

	session.Entities = append(session.Entities, staged)
	session.AppendAudit("system", "created", map[string]any{"new_entity_id": entity.EntityID}, "")
	session.RecomputeStatistics()

	if err := m.records.Save(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return entity.EntityID, nil
}

// AddRelationship stages an extracted relationship and returns its id.
func (m *Manager) AddRelationship(ctx context.Context, sessionID string, rel common.Relationship, sourceText string) (string, error) {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return "", err
	}

	validation := validateRelationship(session, rel)

	if rel.RelationshipID == "" {
		id, nerr := gonanoid.New(12)
		if nerr != nil {
			return "", fmt.Errorf("failed to generate relationship id: %w", nerr)
		}
		rel.RelationshipID = id
	}

	now := time.Now().UTC()
	staged := StagedRelationship{
		Relationship:      rel,
		Status:            StatusPending,
		ApprovalStage:     StageInitial,
		ValidationResults: &validation,
		SourceText:        sourceText,
	}
	staged.EditHistory = append(staged.EditHistory, AuditEntry{
		Timestamp: now,
		User:      "system",
		Action:    "created",
	})

	session.Relationships = append(session.Relationships, staged)
	session.AppendAudit("system", "created", map[string]any{"new_relationship_id": rel.RelationshipID}, "")
	session.RecomputeStatistics()

	if err := m.records.Save(ctx, session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return rel.RelationshipID, nil
}

// StatusUpdate carries one review decision on a staged item.
type StatusUpdate struct {
	ItemID    string
	NewStatus ItemStatus
	// Edits replaces the item's attribute map when the decision is an edit.
	Edits   map[string]any
	User    string
	Comment string
}

// UpdateStatus applies a review decision to an entity or relationship.
// Edits record the old and new attribute maps; approvals and rejections
// record the prior status.
func (m *Manager) UpdateStatus(ctx context.Context, sessionID string, update StatusUpdate) error {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	applied := false

	if entity := session.FindEntity(update.ItemID); entity != nil {
		entry := AuditEntry{
			Timestamp: now,
			User:      update.User,
			Comment:   update.Comment,
			Changes: map[string]any{
				"old_status": entity.Status,
				"new_status": update.NewStatus,
			},
		}
		switch update.NewStatus {
		case StatusEdited:
			entry.Action = "edited"
			entry.Changes["old_attributes"] = entity.Attributes
			entry.Changes["new_attributes"] = update.Edits
			entity.Attributes = update.Edits
		case StatusApproved:
			entry.Action = "approved"
			entity.ApprovalStage = StageFinal
			entry.Changes["new_approval_stage"] = StageFinal
		case StatusRejected:
			entry.Action = "rejected"
		default:
			entry.Action = "status_changed"
		}
		entity.Status = update.NewStatus
		entity.UpdatedAt = now
		entity.EditHistory = append(entity.EditHistory, entry)
		session.AuditTrail = append(session.AuditTrail, entry)
		applied = true
	} else if rel := session.FindRelationship(update.ItemID); rel != nil {
		entry := AuditEntry{
			Timestamp: now,
			User:      update.User,
			Comment:   update.Comment,
			Changes: map[string]any{
				"old_status": rel.Status,
				"new_status": update.NewStatus,
			},
		}
		switch update.NewStatus {
		case StatusEdited:
			entry.Action = "edited"
			entry.Changes["old_attributes"] = rel.Attributes
			entry.Changes["new_attributes"] = update.Edits
			rel.Attributes = update.Edits
		case StatusApproved:
			entry.Action = "approved"
			rel.ApprovalStage = StageFinal
			entry.Changes["new_approval_stage"] = StageFinal
		case StatusRejected:
			entry.Action = "rejected"
		default:
			entry.Action = "status_changed"
		}
		rel.Status = update.NewStatus
		rel.EditHistory = append(rel.EditHistory, entry)
		session.AuditTrail = append(session.AuditTrail, entry)
		applied = true
	}

	if !applied {
		return fmt.Errorf("%w: %s", ErrItemNotFound, update.ItemID)
	}

	if session.Status == SessionPendingReview {
		session.Status = SessionInReview
		session.WorkflowStage = WorkflowReview
	}
	session.UpdatedAt = now
	session.RecomputeStatistics()
	return m.records.Save(ctx, session)
}

// GetSession loads one session.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return m.load(ctx, sessionID)
}

// ListSessions returns summaries of the sessions matching the filter,
// newest first.
func (m *Manager) ListSessions(ctx context.Context, filter ListFilter) ([]SessionSummary, error) {
	sessions, err := m.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Source != "" && !strings.EqualFold(s.DocumentSource, filter.Source) {
			continue
		}
		summaries = append(summaries, s.Summary())
	}
	return summaries, nil
}

// GetApprovedItems returns the commit-eligible items of a session.
func (m *Manager) GetApprovedItems(ctx context.Context, sessionID string) (*ApprovedItems, error) {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items := &ApprovedItems{
		Entities:      []StagedEntity{},
		Relationships: []StagedRelationship{},
	}
	for _, e := range session.Entities {
		if e.Status == StatusApproved {
			items.Entities = append(items.Entities, e)
		}
	}
	for _, r := range session.Relationships {
		if r.Status == StatusApproved {
			items.Relationships = append(items.Relationships, r)
		}
	}
	return items, nil
}

// MarkIngested records that the approved items of a session have been
// committed to the graph.
func (m *Manager) MarkIngested(ctx context.Context, sessionID, user string) error {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}

	session.AppendAudit(user, "ingested", map[string]any{
		"old_status": session.Status,
		"new_status": SessionIngested,
	}, "")
	session.Status = SessionIngested
	session.WorkflowStage = WorkflowDone
	session.UpdatedAt = time.Now().UTC()
	session.RecomputeStatistics()
	return m.records.Save(ctx, session)
}

// DeleteSession removes a session record entirely.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := m.load(ctx, sessionID); err != nil {
		return err
	}
	logger.Info("[Staging] Session deleted", "session", sessionID)
	return m.records.Delete(ctx, sessionID)
}

// DeleteItem physically removes an entity or relationship from a session
// and records the removal in the session audit trail.
func (m *Manager) DeleteItem(ctx context.Context, sessionID, itemID, user string) error {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !removeItem(session, itemID, user) {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	session.UpdatedAt = time.Now().UTC()
	session.RecomputeStatistics()
	return m.records.Save(ctx, session)
}

func removeItem(session *Session, itemID, user string) bool {
	for i := range session.Entities {
		if session.Entities[i].EntityID == itemID {
			session.Entities = append(session.Entities[:i], session.Entities[i+1:]...)
			session.AppendAudit(user, "deleted", map[string]any{"old_entity_id": itemID}, "")
			return true
		}
	}
	for i := range session.Relationships {
		if session.Relationships[i].RelationshipID == itemID {
			session.Relationships = append(session.Relationships[:i], session.Relationships[i+1:]...)
			session.AppendAudit(user, "deleted", map[string]any{"old_relationship_id": itemID}, "")
			return true
		}
	}
	return false
}

func (m *Manager) load(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.records.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

func validateEntity(entity common.Entity) ValidationResult {
	result := ValidationResult{IsValid: true}
	if strings.TrimSpace(entity.Name) == "" {
		result.Errors = append(result.Errors, "name is required")
	}
	if entity.Type == "" {
		result.Errors = append(result.Errors, "entity_type is required")
	}
	if entity.Confidence < 0 || entity.Confidence > 1 {
		result.Errors = append(result.Errors, "confidence must be in [0, 1]")
	}
	seen := make(map[string]bool)
	for _, alias := range entity.Aliases {
		if seen[alias] {
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate alias %q", alias))
		}
		seen[alias] = true
	}
	result.IsValid = len(result.Errors) == 0
	return result
}

func validateRelationship(session *Session, rel common.Relationship) ValidationResult {
	result := ValidationResult{IsValid: true}
	if rel.SourceEntityID == "" {
		result.Errors = append(result.Errors, "source_entity_id is required")
	}
	if rel.TargetEntityID == "" {
		result.Errors = append(result.Errors, "target_entity_id is required")
	}
	if rel.Type == "" {
		result.Errors = append(result.Errors, "relationship_type is required")
	}

	source := session.FindEntity(rel.SourceEntityID)
	target := session.FindEntity(rel.TargetEntityID)
	if rel.SourceEntityID != "" && source == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("source entity %q not in session", rel.SourceEntityID))
	}
	if rel.TargetEntityID != "" && target == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("target entity %q not in session", rel.TargetEntityID))
	}
	if rel.SourceEntityID != "" && rel.SourceEntityID == rel.TargetEntityID {
		result.Errors = append(result.Errors, "self-loop relationship")
	}
	if source != nil && target != nil && rel.Type != "" {
		if !common.ValidRelationship(source.Type, target.Type, rel.Type) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("relationship type %q not valid for %s -> %s", rel.Type, source.Type, target.Type))
		}
	}
	for _, existing := range session.Relationships {
		if existing.SourceEntityID == rel.SourceEntityID &&
			existing.TargetEntityID == rel.TargetEntityID &&
			existing.Type == rel.Type {
			result.Errors = append(result.Errors, "duplicate (source, type, target) triple in session")
			break
		}
	}
	result.IsValid = len(result.Errors) == 0
	return result
}
