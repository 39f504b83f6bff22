package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vantagegraph/vantage/backend/internal/server/middleware"
	"github.com/vantagegraph/vantage/backend/pkg/ai"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/query"
)

// QueryHandler routes a natural-language query to the right backend.
func QueryHandler(c echo.Context) error {
	type queryRequest struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit"`
	}

	type queryResponse struct {
		Message string          `json:"message,omitempty"`
		Result  *query.Response `json:"result,omitempty"`
	}

	data := new(queryRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	router := c.(*middleware.AppContext).App.Router

	result, err := router.Query(ctx, data.Query, data.Limit)
	if err != nil {
		logger.Error("[Server] Query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}
	return c.JSON(http.StatusOK, queryResponse{Result: result})
}

// AgenticQueryHandler lets the model drive the retrieval tools over a
// chat transcript.
func AgenticQueryHandler(c echo.Context) error {
	type agenticRequest struct {
		Messages []ai.ChatMessage `json:"messages" validate:"required"`
	}

	type agenticResponse struct {
		Message string           `json:"message"`
		Metrics *ai.ModelMetrics `json:"metrics,omitempty"`
	}

	data := new(agenticRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, agenticResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil || len(data.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, agenticResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	answer, err := app.Router.QueryAgentic(ctx, data.Messages)
	if err != nil || answer == "" {
		logger.Error("[Server] Agentic query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, agenticResponse{
			Message: "Internal server error",
		})
	}

	metrics := app.AiClient.GetMetrics()
	return c.JSON(http.StatusOK, agenticResponse{
		Message: answer,
		Metrics: &metrics,
	})
}
