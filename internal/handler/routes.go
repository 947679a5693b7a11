package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, jobHandler *JobHandler) {
	e.GET("/health", jobHandler.Health)

	api := e.Group("/api/v1")
	api.GET("/jobs", jobHandler.ListJobs)
	api.POST("/jobs/:name/run", jobHandler.TriggerJob)
}
