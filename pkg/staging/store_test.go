package staging

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/vantagegraph/vantage/backend/pkg/common"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return NewManager(store)
}

func seedSession(t *testing.T, m *Manager) *Session {
	t.Helper()
	ctx := context.Background()

	session, err := m.CreateSession(ctx, "Annual Report 2025", "filings")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if _, err := m.AddEntity(ctx, session.SessionID, common.Entity{
		Name: "Alice Chen", Type: common.EntityTypePerson, Confidence: 0.9,
	}, "Alice Chen is the CEO."); err != nil {
		t.Fatalf("failed to add entity: %v", err)
	}
	if _, err := m.AddEntity(ctx, session.SessionID, common.Entity{
		Name: "Acme", Type: common.EntityTypeCompany, Confidence: 0.95,
	}, ""); err != nil {
		t.Fatalf("failed to add entity: %v", err)
	}
	if _, err := m.AddRelationship(ctx, session.SessionID, common.Relationship{
		SourceEntityID: "Alice Chen",
		TargetEntityID: "Acme",
		Type:           "Executive_OF",
		Confidence:     0.9,
	}, ""); err != nil {
		t.Fatalf("failed to add relationship: %v", err)
	}

	session, err = m.GetSession(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	return session
}

func TestSessionLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session := seedSession(t, m)

	if session.Status != SessionPendingReview {
		t.Fatalf("new session status = %q, want %q", session.Status, SessionPendingReview)
	}
	if session.Statistics.TotalEntities != 2 || session.Statistics.PendingEntities != 2 {
		t.Fatalf("unexpected entity statistics: %+v", session.Statistics)
	}
	if session.Statistics.TotalRelationships != 1 {
		t.Fatalf("unexpected relationship statistics: %+v", session.Statistics)
	}

	err := m.UpdateStatus(ctx, session.SessionID, StatusUpdate{
		ItemID: "Alice Chen", NewStatus: StatusApproved, User: "reviewer",
	})
	if err != nil {
		t.Fatalf("failed to approve entity: %v", err)
	}

	session, _ = m.GetSession(ctx, session.SessionID)
	if session.Status != SessionInReview {
		t.Fatalf("session status after first review = %q, want %q", session.Status, SessionInReview)
	}
	entity := session.FindEntity("Alice Chen")
	if entity == nil || entity.Status != StatusApproved || entity.ApprovalStage != StageFinal {
		t.Fatalf("unexpected entity state: %+v", entity)
	}
	if session.Statistics.ApprovedEntities != 1 || session.Statistics.PendingEntities != 1 {
		t.Fatalf("statistics not recomputed: %+v", session.Statistics)
	}

	if err := m.MarkIngested(ctx, session.SessionID, "reviewer"); err != nil {
		t.Fatalf("failed to mark ingested: %v", err)
	}
	session, _ = m.GetSession(ctx, session.SessionID)
	if session.Status != SessionIngested || session.WorkflowStage != WorkflowDone {
		t.Fatalf("unexpected final state: status=%q stage=%q", session.Status, session.WorkflowStage)
	}
}

func TestStatisticsMatchRecount(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session := seedSession(t, m)

	updates := []StatusUpdate{
		{ItemID: "Alice Chen", NewStatus: StatusApproved, User: "reviewer"},
		{ItemID: "Acme", NewStatus: StatusRejected, User: "reviewer"},
	}
	for _, u := range updates {
		if err := m.UpdateStatus(ctx, session.SessionID, u); err != nil {
			t.Fatalf("failed to update status: %v", err)
		}
	}

	session, _ = m.GetSession(ctx, session.SessionID)
	stored := session.Statistics
	session.RecomputeStatistics()
	if !reflect.DeepEqual(stored, session.Statistics) {
		t.Fatalf("stored statistics %+v differ from recount %+v", stored, session.Statistics)
	}
}

func TestEditRecordsOldAndNewAttributes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session := seedSession(t, m)

	edits := map[string]any{"current_position": "CTO"}
	err := m.UpdateStatus(ctx, session.SessionID, StatusUpdate{
		ItemID: "Alice Chen", NewStatus: StatusEdited, Edits: edits,
		User: "reviewer", Comment: "position corrected",
	})
	if err != nil {
		t.Fatalf("failed to edit entity: %v", err)
	}

	session, _ = m.GetSession(ctx, session.SessionID)
	entity := session.FindEntity("Alice Chen")
	if entity.Status != StatusEdited {
		t.Fatalf("entity status = %q, want %q", entity.Status, StatusEdited)
	}

	last := entity.EditHistory[len(entity.EditHistory)-1]
	if last.Action != "edited" {
		t.Fatalf("audit action = %q, want edited", last.Action)
	}
	if last.Changes["old_attributes"] != nil {
		t.Fatalf("old_attributes = %v, want nil (entity had no attributes)", last.Changes["old_attributes"])
	}
	newAttrs, ok := last.Changes["new_attributes"].(map[string]any)
	if !ok || newAttrs["current_position"] != "CTO" {
		t.Fatalf("new_attributes = %v, want the applied edits", last.Changes["new_attributes"])
	}
	if got, ok := entity.Attributes["current_position"]; !ok || got != "CTO" {
		t.Fatalf("entity attributes not updated: %v", entity.Attributes)
	}
}

func TestEditRelationshipRecordsOldAndNewAttributes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session := seedSession(t, m)
	relID := session.Relationships[0].RelationshipID

	edits := map[string]any{"role": "interim"}
	err := m.UpdateStatus(ctx, session.SessionID, StatusUpdate{
		ItemID: relID, NewStatus: StatusEdited, Edits: edits,
		User: "reviewer", Comment: "role clarified",
	})
	if err != nil {
		t.Fatalf("failed to edit relationship: %v", err)
	}

	session, _ = m.GetSession(ctx, session.SessionID)
	rel := session.FindRelationship(relID)
	if rel.Status != StatusEdited {
		t.Fatalf("relationship status = %q, want %q", rel.Status, StatusEdited)
	}

	last := rel.EditHistory[len(rel.EditHistory)-1]
	if last.Action != "edited" {
		t.Fatalf("audit action = %q, want edited", last.Action)
	}
	if last.Changes["old_attributes"] != nil {
		t.Fatalf("old_attributes = %v, want nil (relationship had no attributes)", last.Changes["old_attributes"])
	}
	newAttrs, ok := last.Changes["new_attributes"].(map[string]any)
	if !ok || newAttrs["role"] != "interim" {
		t.Fatalf("new_attributes = %v, want the applied edits", last.Changes["new_attributes"])
	}
	if got, ok := rel.Attributes["role"]; !ok || got != "interim" {
		t.Fatalf("relationship attributes not updated: %v", rel.Attributes)
	}
}

func TestRelationshipValidation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session := seedSession(t, m)

	relID, err := m.AddRelationship(ctx, session.SessionID, common.Relationship{
		SourceEntityID: "Alice Chen",
		TargetEntityID: "Nobody",
		Type:           "Executive_OF",
	}, "")
	if err != nil {
		t.Fatalf("adding an invalid relationship must still stage it: %v", err)
	}

	session, _ = m.GetSession(ctx, session.SessionID)
	rel := session.FindRelationship(relID)
	if rel == nil {
		t.Fatal("relationship not staged")
	}
	if rel.ValidationResults == nil || rel.ValidationResults.IsValid {
		t.Fatalf("validation should have failed: %+v", rel.ValidationResults)
	}
}

func TestGetApprovedItems(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session := seedSession(t, m)

	if err := m.UpdateStatus(ctx, session.SessionID, StatusUpdate{
		ItemID: "Acme", NewStatus: StatusApproved, User: "reviewer",
	}); err != nil {
		t.Fatalf("failed to approve: %v", err)
	}

	items, err := m.GetApprovedItems(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("failed to get approved items: %v", err)
	}
	if len(items.Entities) != 1 || items.Entities[0].EntityID != "Acme" {
		t.Fatalf("unexpected approved entities: %+v", items.Entities)
	}
	if len(items.Relationships) != 0 {
		t.Fatalf("unexpected approved relationships: %+v", items.Relationships)
	}
}

func TestSessionNotFound(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.GetSession(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
	if err := m.UpdateStatus(ctx, "missing", StatusUpdate{ItemID: "x", NewStatus: StatusApproved}); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	m := newTestManager(t)
	session := seedSession(t, m)

	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("failed to marshal session: %v", err)
	}
	var decoded Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal session: %v", err)
	}

	if decoded.SessionID != session.SessionID ||
		len(decoded.Entities) != len(session.Entities) ||
		len(decoded.Relationships) != len(session.Relationships) ||
		len(decoded.AuditTrail) != len(session.AuditTrail) {
		t.Fatalf("round trip lost data: %+v", decoded)
	}
	if !reflect.DeepEqual(decoded.Statistics, session.Statistics) {
		t.Fatalf("statistics changed in round trip: %+v vs %+v", decoded.Statistics, session.Statistics)
	}
}
