package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vantagegraph/vantage/backend/internal/server/middleware"
	"github.com/vantagegraph/vantage/backend/pkg/logger"
	"github.com/vantagegraph/vantage/backend/pkg/search"
)

type searchRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Message string          `json:"message,omitempty"`
	Results []search.Result `json:"results,omitempty"`
}

func bindSearchRequest(c echo.Context) (*searchRequest, error) {
	data := new(searchRequest)
	if err := c.Bind(data); err != nil {
		return nil, err
	}
	if err := c.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

// VectorSearchHandler searches document chunks by embedding similarity.
func VectorSearchHandler(c echo.Context) error {
	data, err := bindSearchRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{Message: "Invalid request body"})
	}

	engine := c.(*middleware.AppContext).App.Engine
	results, err := engine.VectorSearch(c.Request().Context(), data.Query, data.Limit)
	if err != nil {
		logger.Error("[Server] Vector search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

// GraphSearchHandler searches the knowledge graph for matching facts.
func GraphSearchHandler(c echo.Context) error {
	data, err := bindSearchRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, searchResponse{Message: "Invalid request body"})
	}

	engine := c.(*middleware.AppContext).App.Engine
	results, err := engine.GraphSearch(c.Request().Context(), data.Query)
	if err != nil {
		logger.Error("[Server] Graph search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{Message: "Internal server error"})
	}
	if data.Limit > 0 && len(results) > data.Limit {
		results = results[:data.Limit]
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

// HybridSearchHandler runs the blended vector and full-text pipeline.
func HybridSearchHandler(c echo.Context) error {
	type hybridResponse struct {
		Message string               `json:"message,omitempty"`
		Results []search.RankedChunk `json:"results,omitempty"`
	}

	data, err := bindSearchRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, hybridResponse{Message: "Invalid request body"})
	}

	engine := c.(*middleware.AppContext).App.Engine
	results, err := engine.HybridSearch(c.Request().Context(), data.Query,
		engine.HybridOptionsFromConfig(data.Limit))
	if err != nil {
		logger.Error("[Server] Hybrid search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, hybridResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, hybridResponse{Results: results})
}

// PersonSearchHandler probes the graph for facts about people.
func PersonSearchHandler(c echo.Context) error {
	data := new(search.EntityFilter)
	if err := c.Bind(data); err != nil || data.Name == "" {
		return c.JSON(http.StatusBadRequest, searchResponse{Message: "Invalid request body"})
	}

	engine := c.(*middleware.AppContext).App.Engine
	results, err := engine.PersonSearch(c.Request().Context(), *data)
	if err != nil {
		logger.Error("[Server] Person search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

// CompanySearchHandler probes the graph for facts about companies.
func CompanySearchHandler(c echo.Context) error {
	data := new(search.EntityFilter)
	if err := c.Bind(data); err != nil || data.Name == "" {
		return c.JSON(http.StatusBadRequest, searchResponse{Message: "Invalid request body"})
	}

	engine := c.(*middleware.AppContext).App.Engine
	results, err := engine.CompanySearch(c.Request().Context(), *data)
	if err != nil {
		logger.Error("[Server] Company search failed", "err", err)
		return c.JSON(http.StatusInternalServerError, searchResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

// FindRelationshipHandler reports the connections between two entities.
func FindRelationshipHandler(c echo.Context) error {
	type findRequest struct {
		Entity1 string `json:"entity1" validate:"required"`
		Entity2 string `json:"entity2" validate:"required"`
	}

	type findResponse struct {
		Message string                   `json:"message,omitempty"`
		Report  *search.ConnectionReport `json:"report,omitempty"`
	}

	data := new(findRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, findResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, findResponse{Message: "Invalid request body"})
	}

	engine := c.(*middleware.AppContext).App.Engine
	report, err := engine.FindRelationships(c.Request().Context(), data.Entity1, data.Entity2)
	if err != nil {
		logger.Error("[Server] Relationship finder failed", "err", err)
		return c.JSON(http.StatusInternalServerError, findResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, findResponse{Report: report})
}
