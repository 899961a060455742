package server

import (
	"github.com/inboxgraph/backend/internal/server/middleware"
	"github.com/inboxgraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Pipeline routes
	apiRoutes.POST("/pipeline/run", routes.RunPipelineHandler)
	apiRoutes.POST("/pipeline/jobs", routes.CreateAnalyzeJobHandler)

	// Read-side routes
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.GET("/participants", routes.GetParticipantsHandler)
	apiRoutes.GET("/profiles", routes.GetProfilesHandler)
	apiRoutes.GET("/relationships", routes.GetRelationshipsHandler)
	apiRoutes.GET("/emails", routes.GetEmailsHandler)
}
