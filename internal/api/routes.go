// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/studypulse/backend/internal/parser"
	"github.com/studypulse/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Parser            *parser.Parser
	Blobs             storage.BlobStore
	Results           ResultStore
	Logger            *slog.Logger
	Version           string
	MaxDocumentSize   int64
	AllowedExtensions []string
	TelemetryLimits   TelemetryLimits
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Documents DocumentHandler
	Telemetry TelemetryHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, pingerOf(deps.Results), deps.Logger),
		Documents: NewDocumentHandler(deps.Parser, deps.Blobs, deps.Results, deps.Logger, deps.MaxDocumentSize, deps.AllowedExtensions),
		Telemetry: NewTelemetryHandler(deps.Results, deps.Logger, deps.TelemetryLimits),
	}
}

// pingerOf returns the store's Ping when it has one.
func pingerOf(results ResultStore) Pinger {
	if p, ok := results.(Pinger); ok {
		return p
	}
	return nil
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Academic documents
	files := apiGroup.Group("/files")
	files.POST("/upload", handlers.Documents.HandleUploadFile)
	files.GET("", handlers.Documents.HandleListFiles)
	files.GET("/:id", handlers.Documents.HandleGetFile)
	files.GET("/:id/content", handlers.Documents.HandleDownloadFile)
	files.DELETE("/:id", handlers.Documents.HandleDeleteFile)

	// Wearable health metrics
	health := apiGroup.Group("/health")
	health.POST("/import", handlers.Telemetry.HandleHealthImport)
	health.GET("/metrics/summary", handlers.Telemetry.HandleHealthSummary)

	// Activity tracking
	activity := apiGroup.Group("/activity")
	activity.POST("/app-usage", handlers.Telemetry.HandleAppUsageImport)
	activity.GET("/app-usage/summary", handlers.Telemetry.HandleAppUsageSummary)
	activity.POST("/study-logs", handlers.Telemetry.HandleStudyImport)
	activity.GET("/study-logs/summary", handlers.Telemetry.HandleStudySummary)
}

// SetupMiddleware configures the error handler shared by every route
func SetupMiddleware(e *echo.Echo, logger *slog.Logger, debug bool) {
	e.HTTPErrorHandler = NewErrorHandler(logger, debug)
}
