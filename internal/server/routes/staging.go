package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vantagegraph/vantage/backend/internal/queue"
	"github.com/vantagegraph/vantage/backend/internal/server/middleware"
	"github.com/vantagegraph/vantage/backend/pkg/common"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/staging"
)

type stagingResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func stagingError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, staging.ErrSessionNotFound) || errors.Is(err, staging.ErrItemNotFound) {
		status = http.StatusNotFound
	}
	return c.JSON(status, stagingResponse{Success: false, Error: err.Error()})
}

// CreateSessionHandler starts a new review session.
func CreateSessionHandler(c echo.Context) error {
	type createRequest struct {
		Title  string `json:"title" validate:"required"`
		Source string `json:"source"`
	}

	data := new(createRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}

	manager := c.(*middleware.AppContext).App.Staging
	session, err := manager.CreateSession(c.Request().Context(), data.Title, data.Source)
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: session})
}

// ListSessionsHandler lists session summaries, optionally filtered.
func ListSessionsHandler(c echo.Context) error {
	filter := staging.ListFilter{
		Status: staging.SessionStatus(c.QueryParam("status")),
		Source: c.QueryParam("source"),
	}

	manager := c.(*middleware.AppContext).App.Staging
	summaries, err := manager.ListSessions(c.Request().Context(), filter)
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: summaries})
}

// GetSessionHandler returns one full session record.
func GetSessionHandler(c echo.Context) error {
	manager := c.(*middleware.AppContext).App.Staging
	session, err := manager.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: session})
}

// AddEntityHandler stages an entity in a session.
func AddEntityHandler(c echo.Context) error {
	type addEntityRequest struct {
		common.Entity
		SourceText string `json:"source_text"`
	}

	data := new(addEntityRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}

	manager := c.(*middleware.AppContext).App.Staging
	id, err := manager.AddEntity(c.Request().Context(), c.Param("id"), data.Entity, data.SourceText)
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: map[string]string{"entity_id": id}})
}

// AddRelationshipHandler stages a relationship in a session.
func AddRelationshipHandler(c echo.Context) error {
	type addRelationshipRequest struct {
		common.Relationship
		SourceText string `json:"source_text"`
	}

	data := new(addRelationshipRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}

	manager := c.(*middleware.AppContext).App.Staging
	id, err := manager.AddRelationship(c.Request().Context(), c.Param("id"), data.Relationship, data.SourceText)
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: map[string]string{"relationship_id": id}})
}

// UpdateStatusHandler applies a review decision to a staged item.
func UpdateStatusHandler(c echo.Context) error {
	type updateRequest struct {
		ItemID    string         `json:"item_id" validate:"required"`
		NewStatus string         `json:"new_status" validate:"required"`
		Edits     map[string]any `json:"edits,omitempty"`
		User      string         `json:"user"`
		Comment   string         `json:"comment"`
	}

	data := new(updateRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}
	if data.User == "" {
		data.User = "reviewer"
	}

	manager := c.(*middleware.AppContext).App.Staging
	err := manager.UpdateStatus(c.Request().Context(), c.Param("id"), staging.StatusUpdate{
		ItemID:    data.ItemID,
		NewStatus: staging.ItemStatus(data.NewStatus),
		Edits:     data.Edits,
		User:      data.User,
		Comment:   data.Comment,
	})
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true})
}

// GetApprovedItemsHandler returns the commit-eligible items of a session.
func GetApprovedItemsHandler(c echo.Context) error {
	manager := c.(*middleware.AppContext).App.Staging
	items, err := manager.GetApprovedItems(c.Request().Context(), c.Param("id"))
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: items})
}

// IngestSessionHandler queues a reviewed session for graph commit.
func IngestSessionHandler(c echo.Context) error {
	type ingestRequest struct {
		User string `json:"user"`
	}

	data := new(ingestRequest)
	_ = c.Bind(data)
	if data.User == "" {
		data.User = "reviewer"
	}

	app := c.(*middleware.AppContext).App
	sessionID := c.Param("id")

	if _, err := app.Staging.GetSession(c.Request().Context(), sessionID); err != nil {
		return stagingError(c, err)
	}

	payload, err := json.Marshal(queue.IngestMsg{SessionID: sessionID, User: data.User})
	if err != nil {
		return stagingError(c, err)
	}
	if err := queue.PublishFIFO(app.Queue, "ingest_queue", payload); err != nil {
		logger.Error("[Server] Failed to publish ingest message", "session", sessionID, "err", err)
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true})
}

// DeleteSessionHandler removes a session record.
func DeleteSessionHandler(c echo.Context) error {
	manager := c.(*middleware.AppContext).App.Staging
	if err := manager.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true})
}

// DetectConflictsHandler scans a session for conflicts.
func DetectConflictsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	session, err := app.Staging.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return stagingError(c, err)
	}

	conflicts := app.Detector.Detect(session)
	return c.JSON(http.StatusOK, stagingResponse{Success: true, Data: map[string]any{
		"conflicts": conflicts,
		"grouped":   staging.GroupByCategory(conflicts),
	}})
}

// ResolveConflictHandler applies a resolution action to a conflict.
func ResolveConflictHandler(c echo.Context) error {
	type resolveRequest struct {
		Conflict staging.Conflict `json:"conflict" validate:"required"`
		Action   string           `json:"action" validate:"required"`
		User     string           `json:"user"`
	}

	data := new(resolveRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, stagingResponse{Success: false, Error: "invalid request body"})
	}
	if data.User == "" {
		data.User = "reviewer"
	}

	manager := c.(*middleware.AppContext).App.Staging
	err := manager.ResolveConflict(c.Request().Context(), c.Param("id"), data.Conflict, data.Action, data.User)
	if err != nil {
		return stagingError(c, err)
	}
	return c.JSON(http.StatusOK, stagingResponse{Success: true})
}
