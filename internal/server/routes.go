package server

import (
	"github.com/vantagegraph/vantage/backend/internal/server/middleware"
	"github.com/vantagegraph/vantage/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Query routes
	apiRoutes.POST("/query", routes.QueryHandler)
	apiRoutes.POST("/query/agentic", routes.AgenticQueryHandler)

	// Search routes
	apiRoutes.POST("/search/vector", routes.VectorSearchHandler)
	apiRoutes.POST("/search/graph", routes.GraphSearchHandler)
	apiRoutes.POST("/search/hybrid", routes.HybridSearchHandler)
	apiRoutes.POST("/search/person", routes.PersonSearchHandler)
	apiRoutes.POST("/search/company", routes.CompanySearchHandler)
	apiRoutes.POST("/relationships/find", routes.FindRelationshipHandler)

	// Review session routes
	apiRoutes.POST("/sessions", routes.CreateSessionHandler)
	apiRoutes.GET("/sessions", routes.ListSessionsHandler)
	apiRoutes.GET("/sessions/:id", routes.GetSessionHandler)
	apiRoutes.DELETE("/sessions/:id", routes.DeleteSessionHandler)
	apiRoutes.POST("/sessions/:id/entities", routes.AddEntityHandler)
	apiRoutes.POST("/sessions/:id/relationships", routes.AddRelationshipHandler)
	apiRoutes.POST("/sessions/:id/status", routes.UpdateStatusHandler)
	apiRoutes.GET("/sessions/:id/approved", routes.GetApprovedItemsHandler)
	apiRoutes.POST("/sessions/:id/ingest", routes.IngestSessionHandler)

	// Conflict routes
	apiRoutes.GET("/sessions/:id/conflicts", routes.DetectConflictsHandler)
	apiRoutes.POST("/sessions/:id/conflicts/resolve", routes.ResolveConflictHandler)
}
