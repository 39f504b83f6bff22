package staging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vantagegraph/vantage/backend/pkg/logger"
)

// Severity ranks how urgently a conflict needs a reviewer.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Conflict categories.
const (
	ConflictExactDuplicate   = "exact_duplicate_entity"
	ConflictSimilarEntity    = "similar_entity"
	ConflictInvalidRel       = "invalid_relationship"
	ConflictCircularRel      = "circular_relationship"
	ConflictOrphanedRel      = "orphaned_relationship"
	ConflictLowConfidence    = "low_confidence_item"
	ConflictInconsistentType = "inconsistent_type"
	ConflictMissingFields    = "missing_required_fields"
)

// Resolution actions.
const (
	ActionMerge           = "merge"
	ActionDeleteDuplicate = "delete_duplicate"
	ActionDelete          = "delete"
	ActionFixReferences   = "fix_references"
	ActionMarkAsDifferent = "mark_as_different"
	ActionReviewManually  = "review_manually"
	ActionStandardizeType = "standardize_type"
	ActionBreakCycle      = "break_cycle"
	ActionMarkAsResolved  = "mark_as_resolved"
)

const similarNameThreshold = 0.8

// Conflict is one detected problem inside a session (or across sessions,
// with the cross_session_ category prefix).
type Conflict struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Severity         Severity `json:"severity"`
	Description      string   `json:"description"`
	ItemIDs          []string `json:"item_ids"`
	SessionIDs       []string `json:"session_ids,omitempty"`
	SuggestedActions []string `json:"suggested_actions"`
}

func conflictID(category string, itemIDs ...string) string {
	sorted := append([]string(nil), itemIDs...)
	sort.Strings(sorted)
	return category + ":" + strings.Join(sorted, "|")
}

// Detector scans sessions for duplicates, broken relationships, cycles,
// and other review-blocking problems.
type Detector struct {
	// ConfidenceThreshold flags items below it as low confidence.
	ConfidenceThreshold float64
}

func NewDetector(confidenceThreshold float64) *Detector {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.5
	}
	return &Detector{ConfidenceThreshold: confidenceThreshold}
}

// Detect scans one session and returns every conflict found. Adding items
// to the session never removes a previously reported conflict.
func (d *Detector) Detect(session *Session) []Conflict {
	conflicts := []Conflict{}
	conflicts = append(conflicts, d.duplicateEntities(session)...)
	conflicts = append(conflicts, d.relationshipIntegrity(session)...)
	conflicts = append(conflicts, d.cycles(session)...)
	conflicts = append(conflicts, d.lowConfidence(session)...)
	conflicts = append(conflicts, d.missingFields(session)...)
	for i := range conflicts {
		conflicts[i].SessionIDs = []string{session.SessionID}
	}
	return conflicts
}

// DetectCrossSession applies the duplicate and type rules across the
// union of the given sessions, tagging results as cross_session_*.
func (d *Detector) DetectCrossSession(sessions []*Session) []Conflict {
	merged := &Session{SessionID: "cross"}
	owner := make(map[string]string)
	for _, s := range sessions {
		for _, e := range s.Entities {
			merged.Entities = append(merged.Entities, e)
			owner[e.EntityID] = s.SessionID
		}
	}

	conflicts := d.duplicateEntities(merged)
	for i := range conflicts {
		conflicts[i].Category = "cross_session_" + conflicts[i].Category
		conflicts[i].ID = "cross_session_" + conflicts[i].ID
		sessionIDs := make([]string, 0, len(conflicts[i].ItemIDs))
		seen := make(map[string]bool)
		for _, id := range conflicts[i].ItemIDs {
			if sid := owner[id]; sid != "" && !seen[sid] {
				seen[sid] = true
				sessionIDs = append(sessionIDs, sid)
			}
		}
		conflicts[i].SessionIDs = sessionIDs
	}
	return conflicts
}

// GroupByCategory buckets conflicts for presentation.
func GroupByCategory(conflicts []Conflict) map[string][]Conflict {
	grouped := make(map[string][]Conflict)
	for _, c := range conflicts {
		grouped[c.Category] = append(grouped[c.Category], c)
	}
	return grouped
}

func (d *Detector) duplicateEntities(session *Session) []Conflict {
	var conflicts []Conflict
	entities := session.Entities

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]
			nameA := strings.ToLower(strings.TrimSpace(a.Name))
			nameB := strings.ToLower(strings.TrimSpace(b.Name))
			typeA := strings.ToLower(string(a.Type))
			typeB := strings.ToLower(string(b.Type))

			switch {
			case nameA == nameB && typeA == typeB:
				conflicts = append(conflicts, Conflict{
					ID:          conflictID(ConflictExactDuplicate, a.EntityID, b.EntityID),
					Category:    ConflictExactDuplicate,
					Severity:    SeverityHigh,
					Description: fmt.Sprintf("entities %q and %q have the same name and type", a.EntityID, b.EntityID),
					ItemIDs:     []string{a.EntityID, b.EntityID},
					SuggestedActions: []string{
						ActionMerge, ActionDeleteDuplicate, ActionMarkAsResolved,
					},
				})
			case nameA == nameB && typeA != typeB:
				conflicts = append(conflicts, Conflict{
					ID:          conflictID(ConflictInconsistentType, a.EntityID, b.EntityID),
					Category:    ConflictInconsistentType,
					Severity:    SeverityMedium,
					Description: fmt.Sprintf("entities %q and %q share a name but differ in type (%s vs %s)", a.EntityID, b.EntityID, a.Type, b.Type),
					ItemIDs:     []string{a.EntityID, b.EntityID},
					SuggestedActions: []string{
						ActionStandardizeType, ActionReviewManually, ActionMarkAsResolved,
					},
				})
			case typeA == typeB && lcsRatio(nameA, nameB) >= similarNameThreshold:
				conflicts = append(conflicts, Conflict{
					ID:          conflictID(ConflictSimilarEntity, a.EntityID, b.EntityID),
					Category:    ConflictSimilarEntity,
					Severity:    SeverityMedium,
					Description: fmt.Sprintf("entities %q and %q have similar names", a.EntityID, b.EntityID),
					ItemIDs:     []string{a.EntityID, b.EntityID},
					SuggestedActions: []string{
						ActionMerge, ActionMarkAsDifferent, ActionReviewManually,
					},
				})
			}
		}
	}
	return conflicts
}

func (d *Detector) relationshipIntegrity(session *Session) []Conflict {
	var conflicts []Conflict
	ids := make(map[string]bool, len(session.Entities))
	for _, e := range session.Entities {
		ids[e.EntityID] = true
	}

	for _, r := range session.Relationships {
		missing := !ids[r.SourceEntityID] || !ids[r.TargetEntityID]
		selfLoop := r.SourceEntityID != "" && r.SourceEntityID == r.TargetEntityID

		if missing || selfLoop {
			conflicts = append(conflicts, Conflict{
				ID:          conflictID(ConflictInvalidRel, r.RelationshipID),
				Category:    ConflictInvalidRel,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("relationship %q references missing entities or itself", r.RelationshipID),
				ItemIDs:     []string{r.RelationshipID},
				SuggestedActions: []string{
					ActionFixReferences, ActionDelete, ActionMarkAsResolved,
				},
			})
		}
		if missing {
			conflicts = append(conflicts, Conflict{
				ID:          conflictID(ConflictOrphanedRel, r.RelationshipID),
				Category:    ConflictOrphanedRel,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("relationship %q has endpoints outside the session entity set", r.RelationshipID),
				ItemIDs:     []string{r.RelationshipID},
				SuggestedActions: []string{
					ActionFixReferences, ActionDelete,
				},
			})
		}
	}
	return conflicts
}

// cycles runs a DFS with a recursion stack over the directed relationship
// graph and reports one conflict per cycle found.
func (d *Detector) cycles(session *Session) []Conflict {
	adjacency := make(map[string][]string)
	for _, r := range session.Relationships {
		adjacency[r.SourceEntityID] = append(adjacency[r.SourceEntityID], r.TargetEntityID)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string
	var conflicts []Conflict
	reported := make(map[string]bool)

	var visit func(node string)
	visit = func(node string) {
		visited[node] = true
		onStack[node] = true
		stack = append(stack, node)

		for _, next := range adjacency[node] {
			if onStack[next] {
				cycle := extractCycle(stack, next)
				id := conflictID(ConflictCircularRel, cycle...)
				if !reported[id] {
					reported[id] = true
					conflicts = append(conflicts, Conflict{
						ID:          id,
						Category:    ConflictCircularRel,
						Severity:    SeverityMedium,
						Description: fmt.Sprintf("circular relationship chain: %s", strings.Join(cycle, " -> ")),
						ItemIDs:     cycle,
						SuggestedActions: []string{
							ActionBreakCycle, ActionReviewManually,
						},
					})
				}
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[node] = false
	}

	nodes := make([]string, 0, len(adjacency))
	for node := range adjacency {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if !visited[node] {
			visit(node)
		}
	}
	return conflicts
}

func extractCycle(stack []string, entry string) []string {
	for i, node := range stack {
		if node == entry {
			return append([]string(nil), stack[i:]...)
		}
	}
	return []string{entry}
}

func (d *Detector) lowConfidence(session *Session) []Conflict {
	var conflicts []Conflict
	flag := func(itemID string, confidence float64) {
		conflicts = append(conflicts, Conflict{
			ID:          conflictID(ConflictLowConfidence, itemID),
			Category:    ConflictLowConfidence,
			Severity:    SeverityLow,
			Description: fmt.Sprintf("item %q has confidence %.2f below %.2f", itemID, confidence, d.ConfidenceThreshold),
			ItemIDs:     []string{itemID},
			SuggestedActions: []string{
				ActionReviewManually, ActionDelete, ActionMarkAsResolved,
			},
		})
	}
	for _, e := range session.Entities {
		if e.Confidence < d.ConfidenceThreshold {
			flag(e.EntityID, e.Confidence)
		}
	}
	for _, r := range session.Relationships {
		if r.Confidence < d.ConfidenceThreshold {
			flag(r.RelationshipID, r.Confidence)
		}
	}
	return conflicts
}

func (d *Detector) missingFields(session *Session) []Conflict {
	var conflicts []Conflict
	flag := func(itemID, what string) {
		conflicts = append(conflicts, Conflict{
			ID:          conflictID(ConflictMissingFields, itemID),
			Category:    ConflictMissingFields,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("item %q is missing required fields: %s", itemID, what),
			ItemIDs:     []string{itemID},
			SuggestedActions: []string{
				ActionReviewManually, ActionDelete,
			},
		})
	}
	for _, e := range session.Entities {
		var missing []string
		if strings.TrimSpace(e.Name) == "" {
			missing = append(missing, "name")
		}
		if e.Type == "" {
			missing = append(missing, "entity_type")
		}
		if len(missing) > 0 {
			flag(e.EntityID, strings.Join(missing, ", "))
		}
	}
	for _, r := range session.Relationships {
		var missing []string
		if r.SourceEntityID == "" {
			missing = append(missing, "source_entity_id")
		}
		if r.TargetEntityID == "" {
			missing = append(missing, "target_entity_id")
		}
		if r.Type == "" {
			missing = append(missing, "relationship_type")
		}
		if len(missing) > 0 {
			flag(r.RelationshipID, strings.Join(missing, ", "))
		}
	}
	return conflicts
}

// lcsRatio is the longest-common-subsequence length over the mean of the
// two string lengths.
func lcsRatio(a, b string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// ResolveConflict applies one resolution action to a session and saves it.
func (m *Manager) ResolveConflict(ctx context.Context, sessionID string, conflict Conflict, action, user string) error {
	session, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}

	switch action {
	case ActionMerge:
		if err := mergeEntities(session, conflict, user); err != nil {
			return err
		}
	case ActionDeleteDuplicate:
		if err := deleteLowerConfidence(session, conflict, user); err != nil {
			return err
		}
	case ActionDelete:
		for _, id := range conflict.ItemIDs {
			removeItem(session, id, user)
		}
	case ActionMarkAsResolved:
		// Audit entry only, appended below.
	default:
		return fmt.Errorf("unsupported resolution action %q", action)
	}

	session.AppendAudit(user, "conflict_resolved", map[string]any{
		"conflict_id": conflict.ID,
		"category":    conflict.Category,
		"action":      action,
	}, conflict.Description)
	session.RecomputeStatistics()

	logger.Info("[Staging] Conflict resolved", "session", sessionID, "conflict", conflict.ID, "action", action)
	return m.records.Save(ctx, session)
}

// mergeEntities keeps the higher-confidence entity, unions the attribute
// maps with the newer entity winning collisions, redirects relationships
// off the duplicate, and removes it.
func mergeEntities(session *Session, conflict Conflict, user string) error {
	if len(conflict.ItemIDs) < 2 {
		return fmt.Errorf("merge needs two entity ids, got %d", len(conflict.ItemIDs))
	}
	a := session.FindEntity(conflict.ItemIDs[0])
	b := session.FindEntity(conflict.ItemIDs[1])
	if a == nil || b == nil {
		return fmt.Errorf("%w: merge targets", ErrItemNotFound)
	}

	keep, drop := a, b
	if b.Confidence > a.Confidence {
		keep, drop = b, a
	}
	now := time.Now().UTC()

	older, newer := drop, keep
	if drop.UpdatedAt.After(keep.UpdatedAt) {
		older, newer = keep, drop
	}
	merged := make(map[string]any, len(older.Attributes)+len(newer.Attributes))
	for k, v := range older.Attributes {
		merged[k] = v
	}
	for k, v := range newer.Attributes {
		merged[k] = v
	}
	oldAttributes := keep.Attributes
	keep.Attributes = merged

	for _, alias := range append(drop.Aliases, drop.Name) {
		if alias != keep.Name && !containsString(keep.Aliases, alias) {
			keep.Aliases = append(keep.Aliases, alias)
		}
	}

	for i := range session.Relationships {
		r := &session.Relationships[i]
		redirected := false
		if r.SourceEntityID == drop.EntityID {
			r.SourceEntityID = keep.EntityID
			redirected = true
		}
		if r.TargetEntityID == drop.EntityID {
			r.TargetEntityID = keep.EntityID
			redirected = true
		}
		if redirected {
			r.EditHistory = append(r.EditHistory, AuditEntry{
				Timestamp: now,
				User:      user,
				Action:    "edited",
				Changes: map[string]any{
					"old_entity_id": drop.EntityID,
					"new_entity_id": keep.EntityID,
				},
				Comment: "redirected by entity merge",
			})
		}
	}

	keep.UpdatedAt = now
	keep.EditHistory = append(keep.EditHistory, AuditEntry{
		Timestamp: now,
		User:      user,
		Action:    "edited",
		Changes: map[string]any{
			"old_attributes":   oldAttributes,
			"new_attributes":   merged,
			"merged_entity_id": drop.EntityID,
		},
		Comment: "merged duplicate entity",
	})

	removeItem(session, drop.EntityID, user)
	return nil
}

func deleteLowerConfidence(session *Session, conflict Conflict, user string) error {
	if len(conflict.ItemIDs) < 2 {
		return fmt.Errorf("delete_duplicate needs two entity ids, got %d", len(conflict.ItemIDs))
	}
	a := session.FindEntity(conflict.ItemIDs[0])
	b := session.FindEntity(conflict.ItemIDs[1])
	if a == nil || b == nil {
		return fmt.Errorf("%w: duplicate targets", ErrItemNotFound)
	}
	drop := a
	if b.Confidence < a.Confidence {
		drop = b
	}
	removeItem(session, drop.EntityID, user)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
