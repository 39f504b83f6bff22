package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rabbitmq/amqp091-go"

	"github.com/vantagegraph/vantage/backend/internal/util"
	"github.com/vantagegraph/vantage/backend/pkg/common"
	"github.com/vantagegraph/vantage/backend/pkg/config"
	"github.com/vantagegraph/vantage/backend/pkg/facts"
	"github.com/vantagegraph/vantage/backend/pkg/graphiti"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/staging"
)

// ExtractedEntityMsg is one entity in an extraction payload.
type ExtractedEntityMsg struct {
	common.Entity
	SourceText string `json:"source_text,omitempty"`
}

// ExtractedRelationshipMsg is one relationship in an extraction payload.
type ExtractedRelationshipMsg struct {
	common.Relationship
	SourceText string `json:"source_text,omitempty"`
}

// ExtractionMsg is the payload the extractor publishes for each processed
// document.
type ExtractionMsg struct {
	DocumentID    string                     `json:"document_id"`
	Title         string                     `json:"title"`
	Source        string                     `json:"source"`
	Entities      []ExtractedEntityMsg       `json:"entities"`
	Relationships []ExtractedRelationshipMsg `json:"relationships"`
}

// IngestMsg asks the worker to commit a reviewed session to the graph.
type IngestMsg struct {
	SessionID string `json:"session_id"`
	User      string `json:"user,omitempty"`
}

// ProcessExtractionMessage stages one document's extraction output: it
// creates a review session, adds every item, flags conflicts, and
// auto-approves items whose confidence clears the configured threshold.
func ProcessExtractionMessage(
	ctx context.Context,
	cfg config.Config,
	manager *staging.Manager,
	ch *amqp091.Channel,
	msg string,
) error {
	data := new(ExtractionMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode extraction message: %w", err)
	}

	session, err := manager.CreateSession(ctx, data.Title, data.Source)
	if err != nil {
		return err
	}
	sessionID := session.SessionID

	idsByName := make(map[string]string, len(data.Entities))
	for _, entity := range data.Entities {
		if data.DocumentID != "" {
			entity.SourceDocuments = append(entity.SourceDocuments, data.DocumentID)
		}
		id, err := manager.AddEntity(ctx, sessionID, entity.Entity, entity.SourceText)
		if err != nil {
			return err
		}
		idsByName[entity.Name] = id
	}

	for _, rel := range data.Relationships {
		if id, ok := idsByName[rel.SourceEntityID]; ok {
			rel.SourceEntityID = id
		}
		if id, ok := idsByName[rel.TargetEntityID]; ok {
			rel.TargetEntityID = id
		}
		if data.DocumentID != "" && rel.SourceDocument == "" {
			rel.SourceDocument = data.DocumentID
		}
		if _, err := manager.AddRelationship(ctx, sessionID, rel.Relationship, rel.SourceText); err != nil {
			return err
		}
	}

	session, err = manager.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	detector := staging.NewDetector(cfg.ConfidenceThreshold)
	conflicts := detector.Detect(session)

	conflicted := make(map[string]bool)
	for _, c := range conflicts {
		if c.Severity == staging.SeverityHigh {
			for _, id := range c.ItemIDs {
				conflicted[id] = true
			}
		}
	}
	for id := range conflicted {
		if err := manager.UpdateStatus(ctx, sessionID, staging.StatusUpdate{
			ItemID:    id,
			NewStatus: staging.StatusConflicted,
			User:      "system",
			Comment:   "flagged by conflict detection",
		}); err != nil {
			logger.Warn("[Queue] Failed to flag conflicted item", "session", sessionID, "item", id, "err", err)
		}
	}

	if cfg.AutoResolveConflicts {
		for _, c := range conflicts {
			if c.Category != staging.ConflictExactDuplicate {
				continue
			}
			if err := manager.ResolveConflict(ctx, sessionID, c, staging.ActionMerge, "system"); err != nil {
				logger.Warn("[Queue] Auto-resolve failed", "session", sessionID, "conflict", c.ID, "err", err)
			}
		}
	}

	session, err = manager.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	autoApproved := 0
	for _, e := range session.Entities {
		if e.Status == staging.StatusPending && e.Confidence >= cfg.AutoApproveThreshold &&
			(e.ValidationResults == nil || e.ValidationResults.IsValid) {
			if err := manager.UpdateStatus(ctx, sessionID, staging.StatusUpdate{
				ItemID:    e.EntityID,
				NewStatus: staging.StatusApproved,
				User:      "system",
				Comment:   "auto-approved above confidence threshold",
			}); err == nil {
				autoApproved++
			}
		}
	}
	for _, r := range session.Relationships {
		if r.Status == staging.StatusPending && r.Confidence >= cfg.AutoApproveThreshold &&
			(r.ValidationResults == nil || r.ValidationResults.IsValid) {
			if err := manager.UpdateStatus(ctx, sessionID, staging.StatusUpdate{
				ItemID:    r.RelationshipID,
				NewStatus: staging.StatusApproved,
				User:      "system",
				Comment:   "auto-approved above confidence threshold",
			}); err == nil {
				autoApproved++
			}
		}
	}

	logger.Info("[Queue] Extraction staged",
		"session", sessionID,
		"entities", len(data.Entities),
		"relationships", len(data.Relationships),
		"conflicts", len(conflicts),
		"auto_approved", autoApproved,
	)

	// A fully auto-approved session skips the human review queue.
	session, err = manager.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	stats := session.Statistics
	if stats.PendingEntities == 0 && stats.PendingRelationships == 0 &&
		stats.ConflictedEntities == 0 && stats.ConflictedRelationships == 0 &&
		stats.ApprovedEntities+stats.ApprovedRelationships > 0 {
		payload, merr := json.Marshal(IngestMsg{SessionID: sessionID, User: "system"})
		if merr != nil {
			return merr
		}
		if err := PublishFIFO(ch, "ingest_queue", payload); err != nil {
			return fmt.Errorf("failed to enqueue ingest: %w", err)
		}
		logger.Info("[Queue] Session auto-queued for ingest", "session", sessionID)
	}
	return nil
}

// ProcessIngestMessage commits a session's approved items to the graph
// store as one episode and marks the session ingested.
func ProcessIngestMessage(
	ctx context.Context,
	manager *staging.Manager,
	graph *graphiti.Client,
	msg string,
) error {
	data := new(IngestMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to decode ingest message: %w", err)
	}

	session, err := manager.GetSession(ctx, data.SessionID)
	if err != nil {
		return err
	}

	items, err := manager.GetApprovedItems(ctx, data.SessionID)
	if err != nil {
		return err
	}
	if len(items.Entities) == 0 && len(items.Relationships) == 0 {
		logger.Warn("[Queue] Nothing approved to ingest", "session", data.SessionID)
		return manager.MarkIngested(ctx, data.SessionID, data.User)
	}

	body := buildEpisodeBody(session, items)
	err = util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return graph.AddEpisode(ctx, graphiti.Episode{
			Name:              fmt.Sprintf("review-%s", data.SessionID),
			EpisodeBody:       body,
			SourceDescription: session.DocumentSource,
			GroupID:           session.DocumentSource,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to add episode: %w", err)
	}

	if err := manager.MarkIngested(ctx, data.SessionID, data.User); err != nil {
		return err
	}

	logger.Info("[Queue] Session ingested",
		"session", data.SessionID,
		"entities", len(items.Entities),
		"relationships", len(items.Relationships),
	)
	return nil
}

func buildEpisodeBody(session *staging.Session, items *staging.ApprovedItems) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", session.DocumentTitle)
	for _, e := range items.Entities {
		fmt.Fprintf(&b, "%s is a %s.", e.Name, e.Type)
		if e.Description != "" {
			fmt.Fprintf(&b, " %s", e.Description)
		}
		b.WriteString("\n")
	}
	for _, r := range items.Relationships {
		b.WriteString(facts.RenderTriple(facts.Triple{
			Source: r.SourceEntityID,
			Type:   r.Type,
			Target: r.TargetEntityID,
		}))
		b.WriteString("\n")
	}
	return b.String()
}
