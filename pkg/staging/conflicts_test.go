package staging

import (
	"context"
	"testing"

	"github.com/vantagegraph/vantage/backend/pkg/common"
)

func conflictCategories(conflicts []Conflict) map[string]int {
	counts := make(map[string]int)
	for _, c := range conflicts {
		counts[c.Category]++
	}
	return counts
}

func TestDetectDuplicatesAndTypes(t *testing.T) {
	session := &Session{SessionID: "s1", Entities: []StagedEntity{
		{Entity: common.Entity{EntityID: "E1", Name: "Acme", Type: common.EntityTypeCompany, Confidence: 0.9}},
		{Entity: common.Entity{EntityID: "E2", Name: "acme", Type: common.EntityTypeCompany, Confidence: 0.6}},
		{Entity: common.Entity{EntityID: "E3", Name: "Acme", Type: common.EntityTypePerson, Confidence: 0.8}},
		{Entity: common.Entity{EntityID: "E4", Name: "Acmee", Type: common.EntityTypeCompany, Confidence: 0.7}},
	}}

	counts := conflictCategories(NewDetector(0.5).Detect(session))
	if counts[ConflictExactDuplicate] != 1 {
		t.Fatalf("exact duplicates = %d, want 1", counts[ConflictExactDuplicate])
	}
	if counts[ConflictInconsistentType] != 2 {
		t.Fatalf("inconsistent types = %d, want 2", counts[ConflictInconsistentType])
	}
	if counts[ConflictSimilarEntity] == 0 {
		t.Fatal("expected a similar_entity conflict for Acme vs Acmee")
	}
}

func TestDetectRelationshipProblems(t *testing.T) {
	session := &Session{SessionID: "s1",
		Entities: []StagedEntity{
			{Entity: common.Entity{EntityID: "A", Name: "A", Type: common.EntityTypeCompany, Confidence: 0.9}},
			{Entity: common.Entity{EntityID: "B", Name: "B", Type: common.EntityTypeCompany, Confidence: 0.9}},
		},
		Relationships: []StagedRelationship{
			{Relationship: common.Relationship{RelationshipID: "R1", SourceEntityID: "A", TargetEntityID: "Ghost", Type: "Owns", Confidence: 0.9}},
			{Relationship: common.Relationship{RelationshipID: "R2", SourceEntityID: "A", TargetEntityID: "A", Type: "Owns", Confidence: 0.9}},
			{Relationship: common.Relationship{RelationshipID: "R3", SourceEntityID: "A", TargetEntityID: "B", Confidence: 0.9}},
		},
	}

	counts := conflictCategories(NewDetector(0.5).Detect(session))
	if counts[ConflictInvalidRel] != 2 {
		t.Fatalf("invalid relationships = %d, want 2", counts[ConflictInvalidRel])
	}
	if counts[ConflictOrphanedRel] != 1 {
		t.Fatalf("orphaned relationships = %d, want 1", counts[ConflictOrphanedRel])
	}
	if counts[ConflictMissingFields] != 1 {
		t.Fatalf("missing fields = %d, want 1", counts[ConflictMissingFields])
	}
}

func TestDetectCycle(t *testing.T) {
	session := &Session{SessionID: "s1",
		Entities: []StagedEntity{
			{Entity: common.Entity{EntityID: "A", Name: "A", Type: common.EntityTypeCompany, Confidence: 0.9}},
			{Entity: common.Entity{EntityID: "B", Name: "B", Type: common.EntityTypeCompany, Confidence: 0.9}},
			{Entity: common.Entity{EntityID: "C", Name: "C", Type: common.EntityTypeCompany, Confidence: 0.9}},
		},
		Relationships: []StagedRelationship{
			{Relationship: common.Relationship{RelationshipID: "R1", SourceEntityID: "A", TargetEntityID: "B", Type: "Owns", Confidence: 0.9}},
			{Relationship: common.Relationship{RelationshipID: "R2", SourceEntityID: "B", TargetEntityID: "C", Type: "Owns", Confidence: 0.9}},
			{Relationship: common.Relationship{RelationshipID: "R3", SourceEntityID: "C", TargetEntityID: "A", Type: "Owns", Confidence: 0.9}},
		},
	}

	counts := conflictCategories(NewDetector(0.5).Detect(session))
	if counts[ConflictCircularRel] != 1 {
		t.Fatalf("circular relationships = %d, want 1", counts[ConflictCircularRel])
	}
}

func TestDetectLowConfidence(t *testing.T) {
	session := &Session{SessionID: "s1", Entities: []StagedEntity{
		{Entity: common.Entity{EntityID: "A", Name: "A", Type: common.EntityTypeCompany, Confidence: 0.3}},
		{Entity: common.Entity{EntityID: "B", Name: "B", Type: common.EntityTypeCompany, Confidence: 0.9}},
	}}

	conflicts := NewDetector(0.5).Detect(session)
	counts := conflictCategories(conflicts)
	if counts[ConflictLowConfidence] != 1 {
		t.Fatalf("low confidence = %d, want 1", counts[ConflictLowConfidence])
	}
	for _, c := range conflicts {
		if c.Category == ConflictLowConfidence && c.Severity != SeverityLow {
			t.Fatalf("low confidence severity = %q, want low", c.Severity)
		}
	}
}

func TestDetectionMonotoneInAdditions(t *testing.T) {
	session := &Session{SessionID: "s1", Entities: []StagedEntity{
		{Entity: common.Entity{EntityID: "E1", Name: "Acme", Type: common.EntityTypeCompany, Confidence: 0.9}},
		{Entity: common.Entity{EntityID: "E2", Name: "acme", Type: common.EntityTypeCompany, Confidence: 0.6}},
	}}

	detector := NewDetector(0.5)
	before := detector.Detect(session)

	session.Entities = append(session.Entities, StagedEntity{
		Entity: common.Entity{EntityID: "E3", Name: "Other", Type: common.EntityTypeCompany, Confidence: 0.2},
	})
	after := detector.Detect(session)

	afterIDs := make(map[string]bool)
	for _, c := range after {
		afterIDs[c.ID] = true
	}
	for _, c := range before {
		if !afterIDs[c.ID] {
			t.Fatalf("conflict %q disappeared after adding an item", c.ID)
		}
	}
	if len(after) <= len(before) {
		t.Fatalf("expected new conflicts after adding a low-confidence entity: before=%d after=%d", len(before), len(after))
	}
}

func TestMergeResolution(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	session, err := m.CreateSession(ctx, "Merge test", "unit")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	sid := session.SessionID

	e1, _ := m.AddEntity(ctx, sid, common.Entity{
		EntityID: "E1", Name: "Acme", Type: common.EntityTypeCompany, Confidence: 0.9,
	}, "")
	e2, _ := m.AddEntity(ctx, sid, common.Entity{
		EntityID: "E2", Name: "acme", Type: common.EntityTypeCompany, Confidence: 0.6,
	}, "")
	if _, err := m.AddEntity(ctx, sid, common.Entity{
		EntityID: "P", Name: "Pat", Type: common.EntityTypePerson, Confidence: 0.9,
	}, ""); err != nil {
		t.Fatalf("failed to add entity: %v", err)
	}
	relID, _ := m.AddRelationship(ctx, sid, common.Relationship{
		SourceEntityID: e2, TargetEntityID: "P", Type: "Employs", Confidence: 0.8,
	}, "")

	session, _ = m.GetSession(ctx, sid)
	totalBefore := session.Statistics.TotalEntities

	conflicts := NewDetector(0.5).Detect(session)
	var dup *Conflict
	for i := range conflicts {
		if conflicts[i].Category == ConflictExactDuplicate {
			dup = &conflicts[i]
			break
		}
	}
	if dup == nil {
		t.Fatal("exact duplicate conflict not detected")
	}

	if err := m.ResolveConflict(ctx, sid, *dup, ActionMerge, "reviewer"); err != nil {
		t.Fatalf("failed to resolve conflict: %v", err)
	}

	session, _ = m.GetSession(ctx, sid)
	if session.FindEntity(e2) != nil {
		t.Fatal("duplicate entity still present after merge")
	}
	kept := session.FindEntity(e1)
	if kept == nil {
		t.Fatal("kept entity missing after merge")
	}

	rel := session.FindRelationship(relID)
	if rel == nil || rel.SourceEntityID != e1 {
		t.Fatalf("relationship not redirected to kept entity: %+v", rel)
	}

	found := false
	for _, entry := range kept.EditHistory {
		if entry.Action == "edited" && entry.Changes["merged_entity_id"] == e2 {
			found = true
		}
	}
	if !found {
		t.Fatal("kept entity has no edit entry referencing the merged duplicate")
	}

	if session.Statistics.TotalEntities != totalBefore-1 {
		t.Fatalf("total entities = %d, want %d", session.Statistics.TotalEntities, totalBefore-1)
	}
}
